package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const eventKeyPrefix = "event:uuid:"

// tombstoneVersion outranks any real version, so a deleted event cannot be
// brought back by a reader that loaded it before the delete.
const tombstoneVersion = 1 << 53

// storeIfNotOlder sets KEYS[1] to ARGV[1] unless the cached entry carries a
// newer version than ARGV[2]. ARGV[3] is the TTL in milliseconds.
var storeIfNotOlder = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
  local ok, doc = pcall(cjson.decode, cur)
  if ok and type(doc) == 'table' then
    local v = tonumber(doc.version)
    if v and v > tonumber(ARGV[2]) then
      return 0
    end
  end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// cachedEvent carries the fields model.Event hides from JSON. A nil Event
// marks a deleted one.
type cachedEvent struct {
	Event      *model.Event `json:"event"`
	LocationID int64        `json:"location_id"`
	Version    int64        `json:"version"`
}

// CachedEventRepository wraps an EventRepository with a Redis read-through
// cache for FindByUUID. Filter queries always hit the underlying store.
//
// Writes go through to the cache with the saved version, and a cached entry
// is only ever replaced by one at least as new. A reader that loaded an older
// copy before a concurrent write therefore cannot overwrite the newer entry.
type CachedEventRepository struct {
	repo  EventRepository
	cache *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedEventRepository constructs a CachedEventRepository.
func NewCachedEventRepository(repo EventRepository, cache *redis.Client, ttl time.Duration, log *zap.Logger) *CachedEventRepository {
	return &CachedEventRepository{repo: repo, cache: cache, ttl: ttl, log: log}
}

// FindByUUID serves from cache when possible. Cache errors fall through to the store.
func (r *CachedEventRepository) FindByUUID(ctx context.Context, uuid string) (*model.Event, error) {
	cached, err := r.cache.Get(ctx, eventKeyPrefix+uuid).Bytes()
	if err == nil {
		var c cachedEvent
		if err := json.Unmarshal(cached, &c); err == nil {
			if c.Event == nil {
				return nil, ErrNotFound
			}
			c.Event.Location.ID = c.LocationID
			return c.Event, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.log.Warn("event cache read failed", zap.String("event_uuid", uuid), zap.Error(err))
	}

	e, err := r.repo.FindByUUID(ctx, uuid)
	if err != nil {
		return nil, err
	}
	r.store(ctx, uuid, cachedEvent{Event: e, LocationID: e.Location.ID, Version: e.Version})
	return e, nil
}

// FindAllByStartingDateAfter bypasses the cache.
func (r *CachedEventRepository) FindAllByStartingDateAfter(ctx context.Context, t time.Time) ([]*model.Event, error) {
	return r.repo.FindAllByStartingDateAfter(ctx, t)
}

// FindAllByLocationTownContaining bypasses the cache.
func (r *CachedEventRepository) FindAllByLocationTownContaining(ctx context.Context, s string) ([]*model.Event, error) {
	return r.repo.FindAllByLocationTownContaining(ctx, s)
}

// Save writes through to the store and then to the cache. A version conflict
// means the caller worked from a stale copy, so the cache is refreshed from
// the store.
func (r *CachedEventRepository) Save(ctx context.Context, e *model.Event) (*model.Event, error) {
	saved, err := r.repo.Save(ctx, e)
	switch {
	case err == nil:
		r.put(ctx, saved)
	case errors.Is(err, ErrVersionConflict):
		if fresh, ferr := r.repo.FindByUUID(ctx, e.UUID); ferr == nil {
			r.put(ctx, fresh)
		} else {
			r.invalidate(ctx, e.UUID)
		}
	default:
		r.invalidate(ctx, e.UUID)
	}
	return saved, err
}

// Modify runs under the store's lock and writes the result through.
func (r *CachedEventRepository) Modify(ctx context.Context, uuid string, apply func(*model.Event) bool) (*model.Event, bool, error) {
	e, changed, err := r.repo.Modify(ctx, uuid, apply)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.invalidate(ctx, uuid)
		}
		return nil, false, err
	}
	r.put(ctx, e)
	return e, changed, nil
}

// DeleteByUUID deletes and leaves a tombstone in place of the cached copy.
func (r *CachedEventRepository) DeleteByUUID(ctx context.Context, uuid string) error {
	if err := r.repo.DeleteByUUID(ctx, uuid); err != nil {
		return err
	}
	r.store(ctx, uuid, cachedEvent{Version: tombstoneVersion})
	return nil
}

func (r *CachedEventRepository) put(ctx context.Context, e *model.Event) {
	r.store(ctx, e.UUID, cachedEvent{Event: e, LocationID: e.Location.ID, Version: e.Version})
}

func (r *CachedEventRepository) store(ctx context.Context, uuid string, c cachedEvent) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	key := eventKeyPrefix + uuid
	err = storeIfNotOlder.Run(ctx, r.cache, []string{key}, data, c.Version, r.ttl.Milliseconds()).Err()
	if err != nil {
		r.log.Warn("event cache write failed", zap.String("key", key), zap.Error(err))
		// Never leave an entry behind that may be older than the store.
		r.invalidate(ctx, uuid)
	}
}

func (r *CachedEventRepository) invalidate(ctx context.Context, uuid string) {
	if err := r.cache.Del(ctx, eventKeyPrefix+uuid).Err(); err != nil {
		r.log.Warn("event cache invalidation failed", zap.String("event_uuid", uuid), zap.Error(err))
	}
}

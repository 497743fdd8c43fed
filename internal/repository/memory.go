package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/google/uuid"
)

// MemoryEventRepository keeps events in process memory. It enforces the same
// version check as the PostgreSQL implementation.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	nextID int64
	events []*model.Event // id order
}

// NewMemoryEventRepository constructs an empty MemoryEventRepository.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) indexOf(uuid string) int {
	for i, e := range r.events {
		if e.UUID == uuid {
			return i
		}
	}
	return -1
}

// FindByUUID returns a copy of the stored event or ErrNotFound.
func (r *MemoryEventRepository) FindByUUID(_ context.Context, uuid string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(uuid)
	if i < 0 {
		return nil, ErrNotFound
	}
	return r.events[i].Clone(), nil
}

// FindAllByStartingDateAfter returns events starting strictly after t.
func (r *MemoryEventRepository) FindAllByStartingDateAfter(_ context.Context, t time.Time) ([]*model.Event, error) {
	return r.filter(func(e *model.Event) bool { return e.StartingDate.After(t) }), nil
}

// FindAllByLocationTownContaining returns events whose town contains s.
func (r *MemoryEventRepository) FindAllByLocationTownContaining(_ context.Context, s string) ([]*model.Event, error) {
	return r.filter(func(e *model.Event) bool { return strings.Contains(e.Location.Town, s) }), nil
}

func (r *MemoryEventRepository) filter(keep func(*model.Event) bool) []*model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Event{}
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Save inserts or version-checks and replaces the event.
func (r *MemoryEventRepository) Save(_ context.Context, e *model.Event) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved := e.Clone()
	if saved.ID == 0 {
		r.nextID++
		saved.ID = r.nextID
		saved.Version = 1
		r.events = append(r.events, saved)
		return saved.Clone(), nil
	}

	i := r.indexOf(saved.UUID)
	if i < 0 {
		return nil, ErrNotFound
	}
	if r.events[i].Version != saved.Version {
		return nil, ErrVersionConflict
	}
	saved.Version++
	r.events[i] = saved
	return saved.Clone(), nil
}

// Modify applies the change while holding the write lock.
func (r *MemoryEventRepository) Modify(_ context.Context, uuid string, apply func(*model.Event) bool) (*model.Event, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(uuid)
	if i < 0 {
		return nil, false, ErrNotFound
	}
	e := r.events[i].Clone()
	if !apply(e) {
		return r.events[i].Clone(), false, nil
	}
	e.ID = r.events[i].ID
	e.Version = r.events[i].Version + 1
	r.events[i] = e
	return e.Clone(), true, nil
}

// DeleteByUUID removes the event if present.
func (r *MemoryEventRepository) DeleteByUUID(_ context.Context, uuid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(uuid); i >= 0 {
		r.events = append(r.events[:i], r.events[i+1:]...)
	}
	return nil
}

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]*model.User
}

// NewMemoryUserRepository constructs a MemoryUserRepository holding users.
func NewMemoryUserRepository(users ...model.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]*model.User)}
	for _, u := range users {
		r.Add(u)
	}
	return r
}

// Add stores a user, assigning an id when missing.
func (r *MemoryUserRepository) Add(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == 0 {
		r.nextID++
		u.ID = r.nextID
	}
	r.users[u.Nickname] = &u
}

// FindByNickname returns the user or ErrNotFound.
func (r *MemoryUserRepository) FindByNickname(_ context.Context, nickname string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[nickname]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// MemoryGameRepository keeps games in process memory.
type MemoryGameRepository struct {
	mu     sync.RWMutex
	nextID int64
	games  map[string]*model.Game
}

// NewMemoryGameRepository constructs a MemoryGameRepository holding games.
func NewMemoryGameRepository(games ...model.Game) *MemoryGameRepository {
	r := &MemoryGameRepository{games: make(map[string]*model.Game)}
	for _, g := range games {
		r.Add(g)
	}
	return r
}

// Add stores a game, assigning an id when missing.
func (r *MemoryGameRepository) Add(g model.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == 0 {
		r.nextID++
		g.ID = r.nextID
	}
	r.games[g.UUID] = &g
}

// FindByUUID returns the game or ErrNotFound.
func (r *MemoryGameRepository) FindByUUID(_ context.Context, uuid string) (*model.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[uuid]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

type locationKey struct{ town, zipCode, address string }

// MemoryLocationRepository keeps locations in process memory.
type MemoryLocationRepository struct {
	mu        sync.RWMutex
	nextID    int64
	locations map[locationKey]*model.Location
}

// NewMemoryLocationRepository constructs an empty MemoryLocationRepository.
func NewMemoryLocationRepository() *MemoryLocationRepository {
	return &MemoryLocationRepository{locations: make(map[locationKey]*model.Location)}
}

// FindByTownAndZipCodeAndAddress returns the location or ErrNotFound.
func (r *MemoryLocationRepository) FindByTownAndZipCodeAndAddress(_ context.Context, town, zipCode, address string) (*model.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.locations[locationKey{town, zipCode, address}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// Save stores the location. Saving an existing tuple returns the stored row.
func (r *MemoryLocationRepository) Save(_ context.Context, l *model.Location) (*model.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := locationKey{l.Town, l.ZipCode, l.Address}
	if existing, ok := r.locations[key]; ok {
		cp := *existing
		return &cp, nil
	}
	r.nextID++
	stored := *l
	stored.ID = r.nextID
	r.locations[key] = &stored
	cp := stored
	return &cp, nil
}

// Len reports how many locations are stored.
func (r *MemoryLocationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.locations)
}

// SeedReferenceData loads users ("alice,bob") and games
// ("uuid:name,uuid:name") into the memory repositories.
func SeedReferenceData(users *MemoryUserRepository, games *MemoryGameRepository, userList, gameList string) error {
	for _, nickname := range splitList(userList) {
		users.Add(model.User{UUID: uuid.NewString(), Nickname: nickname})
	}
	for _, entry := range splitList(gameList) {
		id, name, ok := strings.Cut(entry, ":")
		if !ok || id == "" || name == "" {
			return fmt.Errorf("seed game %q: want uuid:name", entry)
		}
		games.Add(model.Game{UUID: id, Name: name})
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

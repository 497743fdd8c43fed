// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument is returned when a candidate event fails validation
	// or a filter cannot be parsed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrReferenceNotFound is returned when the creator or game named by a
	// candidate event does not exist.
	ErrReferenceNotFound = errors.New("referenced entity not found")
	// ErrEventNotFound is returned when updating an event that does not exist.
	ErrEventNotFound = errors.New("event not found")

	errBelowMembers = fmt.Errorf("%w: max_player is below the current number of members", ErrInvalidArgument)
)

// Accepted layouts for the date filter.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// EventService orchestrates event-related business operations.
type EventService struct {
	events    repository.EventRepository
	users     repository.UserRepository
	games     repository.GameRepository
	locations repository.LocationRepository
	log       *zap.Logger

	now     func() time.Time
	newUUID func() string
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(
	events repository.EventRepository,
	users repository.UserRepository,
	games repository.GameRepository,
	locations repository.LocationRepository,
	log *zap.Logger,
) *EventService {
	return &EventService{
		events:    events,
		users:     users,
		games:     games,
		locations: locations,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newUUID:   uuid.NewString,
	}
}

// FindByUUID returns the event, or nil when there is none.
func (s *EventService) FindByUUID(ctx context.Context, id string) (*model.EventResponse, error) {
	e, err := s.events.FindByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return model.NewEventResponse(e), nil
}

// FindByFilter searches events. A non-empty date wins: events starting after
// it are returned and town is ignored. Otherwise a non-empty town matches as
// a substring. With neither, the result is empty.
func (s *EventService) FindByFilter(ctx context.Context, date, town string) ([]*model.EventResponse, error) {
	var (
		events []*model.Event
		err    error
	)
	switch {
	case date != "":
		t, perr := parseDate(date)
		if perr != nil {
			return nil, perr
		}
		events, err = s.events.FindAllByStartingDateAfter(ctx, t)
	case town != "":
		events, err = s.events.FindAllByLocationTownContaining(ctx, town)
	default:
		return []*model.EventResponse{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}

	out := make([]*model.EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, model.NewEventResponse(e))
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable date %q", ErrInvalidArgument, s)
}

// Save creates a new event owned by the referenced creator.
func (s *EventService) Save(ctx context.Context, in *model.EventInput) (*model.EventResponse, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidArgument)
	}
	if err := s.resolveReferences(ctx, in); err != nil {
		return nil, err
	}

	now := s.now()
	if !ValidEvent(in, now) {
		return nil, fmt.Errorf("%w: event fields are incomplete or inconsistent", ErrInvalidArgument)
	}
	loc, err := s.resolveLocation(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	e := &model.Event{
		UUID:         s.newUUID(),
		CreationDate: now,
	}
	applyInput(e, in, loc)

	saved, err := s.events.Save(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("save event: %w", err)
	}
	s.log.Info("event created",
		zap.String("event_uuid", saved.UUID),
		zap.String("creator", saved.Creator),
		zap.String("game_uuid", saved.Game),
	)
	return model.NewEventResponse(saved), nil
}

// Update replaces every mutable field of an existing event. The creation
// date, the uuid and both membership lists are kept.
func (s *EventService) Update(ctx context.Context, in *model.EventInput) (*model.EventResponse, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidArgument)
	}

	existing, err := s.events.FindByUUID(ctx, in.UUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrEventNotFound, in.UUID)
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	if err := s.resolveReferences(ctx, in); err != nil {
		return nil, err
	}
	// The creation date never changes, so validating against this read holds.
	if !ValidEvent(in, existing.CreationDate) {
		return nil, fmt.Errorf("%w: event fields are incomplete or inconsistent", ErrInvalidArgument)
	}
	if !fitsMembers(existing, in.MaxPlayer) {
		return nil, errBelowMembers
	}
	loc, err := s.resolveLocation(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	// Members may have joined since the read above; check again under the lock.
	saved, changed, err := s.events.Modify(ctx, in.UUID, func(e *model.Event) bool {
		if !fitsMembers(e, in.MaxPlayer) {
			return false
		}
		applyInput(e, in, loc)
		return true
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrEventNotFound, in.UUID)
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	if !changed {
		return nil, errBelowMembers
	}
	s.log.Info("event updated", zap.String("event_uuid", saved.UUID))
	return model.NewEventResponse(saved), nil
}

func fitsMembers(e *model.Event, maxPlayer int) bool {
	return len(e.RegisteredUsers) <= maxPlayer && len(e.WaitingUsers) <= maxPlayer
}

// DeleteByUUID deletes the event. Deleting an unknown uuid succeeds.
func (s *EventService) DeleteByUUID(ctx context.Context, id string) error {
	if err := s.events.DeleteByUUID(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.log.Info("event deleted", zap.String("event_uuid", id))
	return nil
}

// resolveReferences checks that the creator and the game exist. Missing
// references in the input are left for validation to reject.
func (s *EventService) resolveReferences(ctx context.Context, in *model.EventInput) error {
	if in.Creator != nil && in.Creator.Nickname != "" {
		if _, err := s.users.FindByNickname(ctx, in.Creator.Nickname); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: creator %q", ErrReferenceNotFound, in.Creator.Nickname)
			}
			return fmt.Errorf("find creator: %w", err)
		}
	}
	if in.Game != nil && in.Game.UUID != "" {
		if _, err := s.games.FindByUUID(ctx, in.Game.UUID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: game %q", ErrReferenceNotFound, in.Game.UUID)
			}
			return fmt.Errorf("find game: %w", err)
		}
	}
	return nil
}

// resolveLocation returns the stored location for the tuple, creating it on first use.
func (s *EventService) resolveLocation(ctx context.Context, in *model.LocationInput) (*model.Location, error) {
	loc, err := s.locations.FindByTownAndZipCodeAndAddress(ctx, in.Town, in.ZipCode, in.Address)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find location: %w", err)
	}
	loc, err = s.locations.Save(ctx, &model.Location{Town: in.Town, ZipCode: in.ZipCode, Address: in.Address})
	if err != nil {
		return nil, fmt.Errorf("save location: %w", err)
	}
	return loc, nil
}

func applyInput(e *model.Event, in *model.EventInput, loc *model.Location) {
	e.Title = in.Title
	e.Description = in.Description
	e.MinPlayer = in.MinPlayer
	e.MaxPlayer = in.MaxPlayer
	e.IsPrivate = in.IsPrivate
	e.LimitDate = *in.LimitDate
	e.StartingDate = *in.StartingDate
	e.EndingDate = in.EndingDate
	e.Creator = in.Creator.Nickname
	e.Game = in.Game.UUID
	e.Location = *loc
}

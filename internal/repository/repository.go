// Package repository defines the storage contracts consumed by the event
// service and provides PostgreSQL, in-memory and Redis-cached implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when an event is saved with a stale version,
// i.e. someone else saved it between our read and our write.
var ErrVersionConflict = errors.New("event was modified concurrently")

// EventRepository persists Event aggregates together with their membership lists.
type EventRepository interface {
	// FindByUUID returns the event or ErrNotFound.
	FindByUUID(ctx context.Context, uuid string) (*model.Event, error)
	// FindAllByStartingDateAfter returns events starting strictly after t, in id order.
	FindAllByStartingDateAfter(ctx context.Context, t time.Time) ([]*model.Event, error)
	// FindAllByLocationTownContaining returns events whose town contains s, in id order.
	FindAllByLocationTownContaining(ctx context.Context, s string) ([]*model.Event, error)
	// Save inserts a new event (ID == 0) or updates an existing one. Updates
	// are rejected with ErrVersionConflict when e.Version is stale.
	Save(ctx context.Context, e *model.Event) (*model.Event, error)
	// Modify loads the event, hands it to apply and stores the result when
	// apply reports a change. No other write to the event can interleave
	// between the load and the store. It returns the resulting event and
	// whether it changed, or ErrNotFound.
	Modify(ctx context.Context, uuid string, apply func(*model.Event) bool) (*model.Event, bool, error)
	// DeleteByUUID removes the event. Deleting an unknown uuid is not an error.
	DeleteByUUID(ctx context.Context, uuid string) error
}

// UserRepository looks up users.
type UserRepository interface {
	FindByNickname(ctx context.Context, nickname string) (*model.User, error)
}

// GameRepository looks up games.
type GameRepository interface {
	FindByUUID(ctx context.Context, uuid string) (*model.Game, error)
}

// LocationRepository resolves and stores locations by their address tuple.
type LocationRepository interface {
	FindByTownAndZipCodeAndAddress(ctx context.Context, town, zipCode, address string) (*model.Location, error)
	Save(ctx context.Context, l *model.Location) (*model.Location, error)
}

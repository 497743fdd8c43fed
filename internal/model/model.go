// Package model defines the core domain types for the board-game meetup service.
package model

import (
	"slices"
	"time"
)

// User is a reference stub for a platform member. Events refer to users by nickname.
type User struct {
	ID       int64  `json:"-"`
	UUID     string `json:"uuid"`
	Nickname string `json:"nickname"`
}

// Game is a reference stub for a board game. Events refer to games by uuid.
type Game struct {
	ID   int64  `json:"-"`
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Location is where an event takes place. It is identified by its
// (town, zip code, address) tuple and shared between events.
type Location struct {
	ID      int64  `json:"-"`
	Town    string `json:"town"`
	ZipCode string `json:"zip_code"`
	Address string `json:"address"`
}

// Event is the aggregate root: the event attributes together with its
// registered list and its waiting list.
//
// A nickname appears at most once across RegisteredUsers and WaitingUsers,
// and neither list ever holds more than MaxPlayer entries.
type Event struct {
	ID          int64
	UUID        string
	Title       string
	Description string
	MinPlayer   int
	MaxPlayer   int
	IsPrivate   bool

	CreationDate time.Time
	LimitDate    time.Time
	StartingDate time.Time
	EndingDate   *time.Time

	Creator  string // nickname
	Game     string // game uuid
	Location Location

	RegisteredUsers []string
	WaitingUsers    []string

	// Version is bumped by the repository on every successful save of an
	// existing event. A save carrying a stale version is rejected.
	Version int64
}

// IsMember reports whether the nickname is in either membership list.
func (e *Event) IsMember(nickname string) bool {
	return slices.Contains(e.RegisteredUsers, nickname) || slices.Contains(e.WaitingUsers, nickname)
}

// AddUser appends the user to the registered list. It returns false when the
// user is already registered or waiting, or when the registered list is full.
func (e *Event) AddUser(u User) bool {
	if e.IsMember(u.Nickname) || len(e.RegisteredUsers) >= e.MaxPlayer {
		return false
	}
	e.RegisteredUsers = append(e.RegisteredUsers, u.Nickname)
	return true
}

// AddUserInWaitingQueue appends the user to the waiting list. The waiting
// list shares the MaxPlayer bound with the registered list.
func (e *Event) AddUserInWaitingQueue(u User) bool {
	if e.IsMember(u.Nickname) || len(e.WaitingUsers) >= e.MaxPlayer {
		return false
	}
	e.WaitingUsers = append(e.WaitingUsers, u.Nickname)
	return true
}

// RemoveUser drops the user from the registered list, keeping the order of
// the remaining members. Nobody is promoted from the waiting list.
func (e *Event) RemoveUser(u User) bool {
	var ok bool
	e.RegisteredUsers, ok = remove(e.RegisteredUsers, u.Nickname)
	return ok
}

// RemoveUserInWaitingQueue drops the user from the waiting list.
func (e *Event) RemoveUserInWaitingQueue(u User) bool {
	var ok bool
	e.WaitingUsers, ok = remove(e.WaitingUsers, u.Nickname)
	return ok
}

func remove(list []string, nickname string) ([]string, bool) {
	i := slices.Index(list, nickname)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}

// Clone returns a deep copy, so callers can mutate membership lists without
// touching a stored instance.
func (e *Event) Clone() *Event {
	c := *e
	c.RegisteredUsers = slices.Clone(e.RegisteredUsers)
	c.WaitingUsers = slices.Clone(e.WaitingUsers)
	if e.EndingDate != nil {
		t := *e.EndingDate
		c.EndingDate = &t
	}
	return &c
}

// ─── Request / response payloads ─────────────────────────────────────────────

// UserRef names a user by nickname.
type UserRef struct {
	Nickname string `json:"nickname"`
}

// GameRef names a game by uuid.
type GameRef struct {
	UUID string `json:"uuid"`
}

// LocationInput is the location tuple supplied by the client.
type LocationInput struct {
	Town    string `json:"town"`
	ZipCode string `json:"zip_code"`
	Address string `json:"address"`
}

// EventInput is the candidate field set for creating or updating an event.
// Nil pointers and empty strings mean the field was not supplied.
type EventInput struct {
	UUID         string         `json:"uuid,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	MinPlayer    int            `json:"min_player"`
	MaxPlayer    int            `json:"max_player"`
	IsPrivate    bool           `json:"is_private"`
	Creator      *UserRef       `json:"creator"`
	Game         *GameRef       `json:"game"`
	Location     *LocationInput `json:"location"`
	LimitDate    *time.Time     `json:"limit_date"`
	StartingDate *time.Time     `json:"starting_date"`
	EndingDate   *time.Time     `json:"ending_date,omitempty"`
}

// Membership identifies a user within an event for the membership operations.
type Membership struct {
	EventUUID string `json:"event_uuid"`
	Nickname  string `json:"nickname"`
}

// EventResponse is the client-facing projection of an Event.
type EventResponse struct {
	UUID            string     `json:"uuid"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	MinPlayer       int        `json:"min_player"`
	MaxPlayer       int        `json:"max_player"`
	IsPrivate       bool       `json:"is_private"`
	CreationDate    time.Time  `json:"creation_date"`
	LimitDate       time.Time  `json:"limit_date"`
	StartingDate    time.Time  `json:"starting_date"`
	EndingDate      *time.Time `json:"ending_date,omitempty"`
	Creator         UserRef    `json:"creator"`
	Game            GameRef    `json:"game"`
	Location        Location   `json:"location"`
	RegisteredUsers []string   `json:"registered_users"`
	WaitingUsers    []string   `json:"waiting_users"`
}

// NewEventResponse projects an Event for output. Membership lists are never nil.
func NewEventResponse(e *Event) *EventResponse {
	resp := &EventResponse{
		UUID:            e.UUID,
		Title:           e.Title,
		Description:     e.Description,
		MinPlayer:       e.MinPlayer,
		MaxPlayer:       e.MaxPlayer,
		IsPrivate:       e.IsPrivate,
		CreationDate:    e.CreationDate,
		LimitDate:       e.LimitDate,
		StartingDate:    e.StartingDate,
		EndingDate:      e.EndingDate,
		Creator:         UserRef{Nickname: e.Creator},
		Game:            GameRef{UUID: e.Game},
		Location:        e.Location,
		RegisteredUsers: slices.Clone(e.RegisteredUsers),
		WaitingUsers:    slices.Clone(e.WaitingUsers),
	}
	if resp.RegisteredUsers == nil {
		resp.RegisteredUsers = []string{}
	}
	if resp.WaitingUsers == nil {
		resp.WaitingUsers = []string{}
	}
	return resp
}

// MembershipResponse reports whether a membership operation changed the event.
type MembershipResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

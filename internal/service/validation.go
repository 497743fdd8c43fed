package service

import (
	"time"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
)

// MinPlayers is the smallest table an event can be created for.
const MinPlayers = 2

// ValidEvent reports whether a candidate event may be stored. now is the
// creation date of the event: the current instant for a new event, the stored
// creation date for an update.
//
// Required strings count as missing when empty. The ending date is optional;
// when present it must not precede the starting date.
func ValidEvent(in *model.EventInput, now time.Time) bool {
	if in == nil {
		return false
	}
	if in.Title == "" || in.Description == "" {
		return false
	}
	if in.Creator == nil || in.Creator.Nickname == "" {
		return false
	}
	if in.Game == nil || in.Game.UUID == "" {
		return false
	}
	if in.Location == nil || in.Location.Town == "" {
		return false
	}
	if in.LimitDate == nil || in.StartingDate == nil {
		return false
	}
	if in.MinPlayer < MinPlayers || in.MinPlayer > in.MaxPlayer {
		return false
	}
	if in.LimitDate.Before(now) || in.StartingDate.Before(*in.LimitDate) {
		return false
	}
	if in.EndingDate != nil && in.EndingDate.Before(*in.StartingDate) {
		return false
	}
	return true
}

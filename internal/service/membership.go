package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/model"
	"github.com/Shivanand-hulikatti/boardgame-meetup/internal/repository"
	"go.uber.org/zap"
)

// AddUserInEvent registers the user for the event.
func (s *EventService) AddUserInEvent(ctx context.Context, m *model.Membership) (bool, error) {
	return s.changeMembership(ctx, m, "register", (*model.Event).AddUser)
}

// AddUserInEventInWaitingQueue puts the user on the event's waiting list.
func (s *EventService) AddUserInEventInWaitingQueue(ctx context.Context, m *model.Membership) (bool, error) {
	return s.changeMembership(ctx, m, "join waiting list", (*model.Event).AddUserInWaitingQueue)
}

// RemoveUserInEvent unregisters the user. Nobody is promoted from the waiting list.
func (s *EventService) RemoveUserInEvent(ctx context.Context, m *model.Membership) (bool, error) {
	return s.changeMembership(ctx, m, "unregister", (*model.Event).RemoveUser)
}

// RemoveUserInWaitingQueue takes the user off the event's waiting list.
func (s *EventService) RemoveUserInWaitingQueue(ctx context.Context, m *model.Membership) (bool, error) {
	return s.changeMembership(ctx, m, "leave waiting list", (*model.Event).RemoveUserInWaitingQueue)
}

// changeMembership applies op to the event under the repository's lock.
//
// A missing membership, event or user and a rejected op all yield false with
// a nil error; these are routine outcomes. The error is reserved for storage
// failures. Concurrent requests queue on the lock instead of failing, and op
// always sees the latest membership lists.
func (s *EventService) changeMembership(
	ctx context.Context,
	m *model.Membership,
	action string,
	op func(*model.Event, model.User) bool,
) (bool, error) {
	if m == nil || m.EventUUID == "" || m.Nickname == "" {
		return false, nil
	}
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("event_uuid", m.EventUUID),
		zap.String("nickname", m.Nickname),
	}

	user, err := s.users.FindByNickname(ctx, m.Nickname)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug("membership rejected: unknown user", fields...)
			return false, nil
		}
		return false, fmt.Errorf("find user: %w", err)
	}

	_, changed, err := s.events.Modify(ctx, m.EventUUID, func(e *model.Event) bool {
		return op(e, *user)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug("membership rejected: unknown event", fields...)
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", action, err)
	}
	if !changed {
		s.log.Debug("membership rejected", fields...)
		return false, nil
	}
	s.log.Info("membership changed", fields...)
	return true, nil
}

package choreflow

import (
	"context"
	"strings"
	"time"

	"github.com/dukerupert/roomies/internal/model"
)

const maxChoreNameLen = 200

// AddChore appends a chore to the room's list. Only allowed while the list
// is open or being confirmed.
func (s *Service) AddChore(ctx context.Context, roomID, memberID, name, frequency string) (*model.Chore, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("chore name is required")
	}
	if len(name) > maxChoreNameLen {
		return nil, validationError("chore name is too long")
	}
	frequency = strings.ToLower(strings.TrimSpace(frequency))

	room, err := s.memberRoom(roomID, memberID)
	if err != nil {
		return nil, err
	}
	if !room.ChorePhase.CanEditChores() {
		return nil, ErrPhaseLocked
	}

	c, err := s.chores.Create(roomID, name, frequency, memberID)
	if err != nil {
		return nil, translate(err, ErrRoomNotFound)
	}

	s.logger.Info("chore added", "room_id", roomID, "chore_id", c.ID, "member_id", memberID)
	s.Publish(roomID, "chore", "created", c.ID)
	return c, nil
}

// DeleteChore removes one chore. Not allowed while ranking or dispatching.
// Rankings already submitted are left as they are.
func (s *Service) DeleteChore(ctx context.Context, roomID, memberID, choreID string) error {
	room, err := s.memberRoom(roomID, memberID)
	if err != nil {
		return err
	}
	if !room.ChorePhase.CanDeleteChores() {
		return ErrPhaseLocked
	}
	if err := s.chores.Delete(roomID, choreID); err != nil {
		return translate(err, ErrChoreNotFound)
	}

	s.logger.Info("chore deleted", "room_id", roomID, "chore_id", choreID, "member_id", memberID)
	s.Publish(roomID, "chore", "deleted", choreID)
	return nil
}

// ResetAll deletes every chore, clears confirmations and rankings and
// reopens the list. Safe to repeat.
func (s *Service) ResetAll(ctx context.Context, roomID, memberID string) error {
	if _, err := s.memberRoom(roomID, memberID); err != nil {
		return err
	}
	if err := s.rooms.Reset(roomID); err != nil {
		return translate(err, ErrRoomNotFound)
	}

	s.logger.Info("chores reset", "room_id", roomID, "member_id", memberID)
	s.Publish(roomID, "room", "reset", roomID)
	return nil
}

// CompleteChore records that a chore was just done. Allowed in any phase.
func (s *Service) CompleteChore(ctx context.Context, roomID, memberID, choreID string) (*model.Chore, error) {
	if _, err := s.memberRoom(roomID, memberID); err != nil {
		return nil, err
	}
	c, err := s.chores.MarkDone(roomID, choreID, time.Now())
	if err != nil {
		return nil, translate(err, ErrChoreNotFound)
	}

	s.Publish(roomID, "chore", "completed", choreID)
	return c, nil
}

// ListChores returns the room's chores in creation order.
func (s *Service) ListChores(ctx context.Context, roomID, memberID string) ([]model.Chore, error) {
	if _, err := s.memberRoom(roomID, memberID); err != nil {
		return nil, err
	}
	return s.chores.List(roomID)
}

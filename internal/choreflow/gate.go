package choreflow

import (
	"context"

	"github.com/dukerupert/roomies/internal/model"
)

// ConfirmListComplete records that memberID considers the chore list final.
// The first confirmation moves the room from open to confirm; once every
// current member has confirmed, the room moves to ranking. Both transitions
// are conditional writes, so concurrent confirmations converge.
func (s *Service) ConfirmListComplete(ctx context.Context, roomID, memberID string) (*model.Room, error) {
	room, err := s.memberRoom(roomID, memberID)
	if err != nil {
		return nil, err
	}
	if !room.ChorePhase.CanConfirm() {
		return nil, ErrPhaseLocked
	}

	chores, err := s.chores.List(roomID)
	if err != nil {
		return nil, err
	}
	if len(chores) == 0 {
		return nil, validationError("add at least one chore before confirming")
	}

	if err := s.rooms.Confirm(roomID, memberID); err != nil {
		return nil, translate(err, ErrRoomNotFound)
	}

	advanced, err := s.rooms.AdvanceWhenAllConfirmed(roomID)
	if err != nil {
		return nil, err
	}
	if advanced {
		s.logger.Info("chore list confirmed by all members", "room_id", roomID)
	}

	s.Publish(roomID, "room", "confirmed", memberID)

	room, err = s.rooms.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

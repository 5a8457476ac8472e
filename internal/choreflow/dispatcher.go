package choreflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/roomies/internal/model"
)

// dispatch sends the room's ranking matrix to the allocator and applies the
// result. The room must already be in the dispatching phase. On any failure
// the room goes back to ranking so a member can retry with Redispatch.
func (s *Service) dispatch(ctx context.Context, roomID string) error {
	// The allocator call outlives the request that triggered it.
	ctx = context.WithoutCancel(ctx)

	_, err, shared := s.dispatches.Do(roomID, func() (any, error) {
		return nil, s.runDispatch(ctx, roomID)
	})
	if shared {
		s.logger.Debug("dispatch shared with concurrent caller", "room_id", roomID)
	}
	return err
}

func (s *Service) runDispatch(ctx context.Context, roomID string) error {
	logger := s.logger.With("room_id", roomID)

	err := s.allocate(ctx, roomID)
	if err == nil {
		logger.Info("chores assigned")
		return nil
	}

	logger.Error("dispatch failed", "error", err)
	if _, rerr := s.rooms.AdvancePhase(roomID, []model.Phase{model.PhaseDispatching}, model.PhaseRanking); rerr != nil {
		logger.Error("revert to ranking", "error", rerr)
	}
	s.Publish(roomID, "room", "dispatch_failed", roomID)
	return err
}

func (s *Service) allocate(ctx context.Context, roomID string) error {
	room, err := s.rooms.GetByID(roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	chores, err := s.chores.List(roomID)
	if err != nil {
		return err
	}
	members, err := s.users.ListRoomMembers(roomID)
	if err != nil {
		return err
	}

	req, err := BuildMatrix(room, chores, members).Request()
	if err != nil {
		return err
	}
	raw, err := s.allocator.Allocate(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAllocator, err)
	}

	assignment, err := ParseAssignment(raw, chores, room.Members)
	if err != nil {
		return err
	}
	return s.ApplyAssignment(ctx, roomID, assignment)
}

// Redispatch retries the allocation for a room whose previous dispatch
// failed. Every member must have ranked.
func (s *Service) Redispatch(ctx context.Context, roomID, memberID string) (*model.Room, error) {
	room, err := s.memberRoom(roomID, memberID)
	if err != nil {
		return nil, err
	}
	if !room.ChorePhase.CanRank() {
		return nil, ErrPhaseLocked
	}
	if !room.AllRanked() {
		return nil, ErrQuorumNotReached
	}

	started, err := s.rooms.BeginDispatch(roomID)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, ErrQuorumNotReached
	}
	s.logger.Info("redispatch requested", "room_id", roomID, "member_id", memberID)

	if err := s.dispatch(ctx, roomID); err != nil {
		return nil, err
	}
	room, err = s.rooms.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ApplyAssignment writes each chore's assignee and marks the room assigned.
// Applying the same assignment again leaves the room unchanged.
func (s *Service) ApplyAssignment(ctx context.Context, roomID string, assignment map[string]string) error {
	if err := s.chores.ApplyAssignment(roomID, assignment); err != nil {
		return translate(err, ErrChoreNotFound)
	}
	s.Publish(roomID, "room", "assigned", roomID)
	return nil
}

// ParseAssignment decodes the allocator's reply into a chore ID to member ID
// map. The reply may be wrapped in a ``` or ```json fence; nothing else is
// stripped. Every chore must be assigned to a current member.
func ParseAssignment(raw string, chores []model.Chore, members []string) (map[string]string, error) {
	body, err := unfence(raw)
	if err != nil {
		return nil, err
	}

	var assignment map[string]string
	if err := json.Unmarshal([]byte(body), &assignment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssignmentParse, err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("%w: null assignment", ErrAssignmentParse)
	}

	isMember := make(map[string]bool, len(members))
	for _, id := range members {
		isMember[id] = true
	}
	isChore := make(map[string]bool, len(chores))
	for _, c := range chores {
		isChore[c.ID] = true
		if _, ok := assignment[c.ID]; !ok {
			return nil, fmt.Errorf("%w: chore %s was not assigned", ErrAssignmentParse, c.ID)
		}
	}
	for choreID, memberID := range assignment {
		if !isChore[choreID] {
			return nil, fmt.Errorf("%w: unknown chore %s", ErrAssignmentParse, choreID)
		}
		if !isMember[memberID] {
			return nil, fmt.Errorf("%w: chore %s assigned to unknown member %s", ErrAssignmentParse, choreID, memberID)
		}
	}
	return assignment, nil
}

const fence = "```"

var errUnbalancedFence = errors.New("unbalanced code fence")

func unfence(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, fence) {
		return body, nil
	}

	body = strings.TrimPrefix(body, fence)
	body = strings.TrimPrefix(body, "json")
	if !strings.HasSuffix(body, fence) {
		return "", fmt.Errorf("%w: %v", ErrAssignmentParse, errUnbalancedFence)
	}
	body = strings.TrimSuffix(body, fence)
	return strings.TrimSpace(body), nil
}

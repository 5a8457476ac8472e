// Package choreflow runs the room chore workflow: members build a chore list,
// confirm it, rank every chore, and an external allocator assigns them.
//
// Phases move open -> confirm -> ranking -> dispatching -> assigned and only
// return to open through ResetAll. Every phase-dependent write is checked
// against the stored phase in the same statement that performs it.
package choreflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/roomies/internal/allocator"
	"github.com/dukerupert/roomies/internal/model"
	"github.com/dukerupert/roomies/internal/store"
	"github.com/dukerupert/roomies/internal/websocket"
	"golang.org/x/sync/singleflight"
)

// Allocator turns a ranking matrix into an assignment. The returned text is
// untrusted.
type Allocator interface {
	Allocate(ctx context.Context, r allocator.Request) (string, error)
}

type Service struct {
	rooms     *store.RoomStore
	chores    *store.ChoreStore
	users     *store.UserStore
	allocator Allocator
	hub       *websocket.Hub
	logger    *slog.Logger

	dispatches singleflight.Group
}

func NewService(rooms *store.RoomStore, chores *store.ChoreStore, users *store.UserStore, alloc Allocator, hub *websocket.Hub, logger *slog.Logger) *Service {
	return &Service{
		rooms:     rooms,
		chores:    chores,
		users:     users,
		allocator: alloc,
		hub:       hub,
		logger:    logger.With("component", "choreflow"),
	}
}

// Topic is the hub topic carrying change notifications for a room.
func Topic(roomID string) string {
	return "room:" + roomID
}

// Publish notifies the room's subscribers that something changed.
func (s *Service) Publish(roomID, entity, action, id string) {
	s.hub.Publish(Topic(roomID), websocket.NewMessage(entity, action, id, nil))
}

// Room returns the room if memberID belongs to it.
func (s *Service) Room(ctx context.Context, roomID, memberID string) (*model.Room, error) {
	return s.memberRoom(roomID, memberID)
}

func (s *Service) memberRoom(roomID, memberID string) (*model.Room, error) {
	room, err := s.rooms.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if !room.IsMember(memberID) {
		return nil, ErrNotMember
	}
	return room, nil
}

// translate maps store sentinels onto the workflow's error taxonomy.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrPhaseMismatch):
		return ErrPhaseLocked
	case errors.Is(err, store.ErrAlreadySubmitted):
		return ErrAlreadySubmitted
	case errors.Is(err, store.ErrRoomNotFound):
		return ErrRoomNotFound
	case errors.Is(err, store.ErrNotFound):
		return notFound
	}
	return err
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

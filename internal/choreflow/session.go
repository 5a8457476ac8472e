package choreflow

import (
	"context"
	"sync"

	"github.com/dukerupert/roomies/internal/model"
	"github.com/dukerupert/roomies/internal/websocket"
)

// Snapshot is the state of a room at one point in time. A snapshot with a
// non-nil Err is the last one a session sends.
type Snapshot struct {
	Room   *model.Room
	Chores []model.Chore
	Err    error
}

// Session follows one room on behalf of one member and delivers a fresh
// snapshot whenever the room changes. Detach must be called on every exit
// path.
type Session struct {
	svc     *Service
	roomID  string
	sub     *websocket.Subscription
	updates chan Snapshot
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Attach starts a session for roomID. The first snapshot is available on
// Updates immediately.
func (s *Service) Attach(ctx context.Context, roomID, memberID string) (*Session, error) {
	// Subscribe before the first read so no change between them is missed.
	sub := s.hub.Subscribe(Topic(roomID))

	first, err := s.snapshot(roomID)
	if err == nil && first.Room != nil && !first.Room.IsMember(memberID) {
		err = ErrNotMember
	}
	if err == nil && first.Err != nil {
		err = first.Err
	}
	if err != nil {
		s.hub.Unsubscribe(sub)
		return nil, err
	}

	sess := &Session{
		svc:     s,
		roomID:  roomID,
		sub:     sub,
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	sess.updates <- first
	go sess.run(ctx)
	return sess, nil
}

// Updates delivers snapshots. Only the most recent undelivered snapshot is
// kept. The channel is closed when the session ends.
func (sess *Session) Updates() <-chan Snapshot {
	return sess.updates
}

// Detach ends the session and releases its subscription. It is safe to call
// more than once.
func (sess *Session) Detach() {
	sess.once.Do(func() {
		close(sess.done)
	})
	<-sess.stopped
}

func (sess *Session) run(ctx context.Context) {
	defer close(sess.stopped)
	defer close(sess.updates)
	defer sess.svc.hub.Unsubscribe(sess.sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.done:
			return
		case _, ok := <-sess.sub.C():
			if !ok {
				return
			}
			snap, err := sess.svc.snapshot(sess.roomID)
			if err != nil {
				sess.svc.logger.Warn("session refresh", "room_id", sess.roomID, "error", err)
				continue
			}
			sess.emit(snap)
			if snap.Err != nil {
				return
			}
		}
	}
}

// emit replaces any undelivered snapshot with snap. run is the only sender,
// so the send after draining never blocks.
func (sess *Session) emit(snap Snapshot) {
	select {
	case <-sess.updates:
	default:
	}
	sess.updates <- snap
}

func (s *Service) snapshot(roomID string) (Snapshot, error) {
	room, err := s.rooms.GetByID(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	if room == nil {
		return Snapshot{Err: ErrRoomNotFound}, nil
	}
	chores, err := s.chores.List(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Room: room, Chores: chores}, nil
}

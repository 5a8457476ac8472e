package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/roomies/internal/auth"
	"github.com/dukerupert/roomies/internal/chore"
	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/websocket"
)

type SocketHandler struct {
	flow           *choreflow.Service
	originPatterns []string
	logger         *slog.Logger
}

func NewSocketHandler(flow *choreflow.Service, originPatterns []string, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{flow: flow, originPatterns: originPatterns, logger: logger}
}

// frame is one message on the room socket.
type frame struct {
	Type   string                  `json:"type"`
	Room   *roomView               `json:"room,omitempty"`
	Chores []chore.ChoreWithStatus `json:"chores,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func snapshotFrame(snap choreflow.Snapshot) frame {
	if snap.Err != nil {
		return frame{Type: "error", Error: snap.Err.Error()}
	}
	v := newRoomView(snap.Room)
	chores := chore.WithStatus(snap.Chores, time.Now())
	return frame{Type: "snapshot", Room: &v, Chores: chores}
}

// Room attaches a live session before upgrading, so unknown rooms and
// outsiders get a plain HTTP error.
func (h *SocketHandler) Room(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	userID := auth.UserID(r.Context())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, err := h.flow.Attach(ctx, roomID, userID)
	if err != nil {
		writeError(w, h.logger, err, "failed to open room feed")
		return
	}
	defer sess.Detach()

	// The server's read and write timeouts would otherwise cut long-lived
	// sockets.
	rc := http.NewResponseController(w)
	rc.SetReadDeadline(time.Time{})
	rc.SetWriteDeadline(time.Time{})

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("websocket accept", "error", err, "room_id", roomID)
		return
	}

	out := make(chan []byte, 1)
	go func() {
		defer close(out)
		for snap := range sess.Updates() {
			data, err := json.Marshal(snapshotFrame(snap))
			if err != nil {
				h.logger.Error("marshal snapshot", "error", err, "room_id", roomID)
				return
			}
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	h.logger.Debug("room feed opened", "room_id", roomID, "user_id", userID)
	websocket.NewClient(conn, out).Run(ctx)
	cancel()
	h.logger.Debug("room feed closed", "room_id", roomID, "user_id", userID)
}

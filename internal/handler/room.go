package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/dukerupert/roomies/internal/auth"
	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/geo"
	"github.com/dukerupert/roomies/internal/model"
	"github.com/dukerupert/roomies/internal/store"
)

const (
	maxRoomNameLength = 100
	maxCodeAttempts   = 10
)

type RoomHandler struct {
	roomStore *store.RoomStore
	flow      *choreflow.Service
	logger    *slog.Logger
	newCode   func() string
}

func NewRoomHandler(rs *store.RoomStore, flow *choreflow.Service, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{roomStore: rs, flow: flow, logger: logger, newCode: randomCode}
}

type createRoomRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type joinRoomRequest struct {
	Code string `json:"code"`
}

type roomSummary struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Code       string      `json:"code"`
	ChorePhase model.Phase `json:"chore_phase"`
}

func randomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

var errNoFreeCode = errors.New("no free room code")

// createRoom inserts the room under a fresh six-digit code, drawing again
// when the insert collides with an existing one.
func (h *RoomHandler) createRoom(name, creatorID string, loc model.Location) (*model.Room, error) {
	for range maxCodeAttempts {
		room, err := h.roomStore.Create(name, h.newCode(), creatorID, loc)
		if errors.Is(err, store.ErrCodeTaken) {
			continue
		}
		return room, err
	}
	return nil, errNoFreeCode
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if len([]rune(req.Name)) > maxRoomNameLength {
		writeErrorMessage(w, http.StatusBadRequest, "name is too long")
		return
	}
	loc := model.Location{Latitude: req.Latitude, Longitude: req.Longitude}
	if !geo.Valid(loc) {
		writeErrorMessage(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	room, err := h.createRoom(req.Name, auth.UserID(r.Context()), loc)
	if err != nil {
		h.logger.Error("create room", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.logger.Info("room created", "room_id", room.ID, "user_id", room.CreatorID)
	writeJSON(w, http.StatusCreated, newRoomView(room))
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "code is required")
		return
	}

	room, err := h.roomStore.GetByCode(code)
	if err != nil {
		h.logger.Error("find room by code", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	if room == nil {
		writeErrorMessage(w, http.StatusNotFound, "invalid room code")
		return
	}

	userID := auth.UserID(r.Context())
	if !room.IsMember(userID) {
		if err := h.roomStore.AddMember(room.ID, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeErrorMessage(w, http.StatusNotFound, "invalid room code")
				return
			}
			h.logger.Error("add member", "error", err)
			writeErrorMessage(w, http.StatusInternalServerError, "failed to join room")
			return
		}
		h.flow.Publish(room.ID, "member", "joined", userID)
	}

	room, err = h.flow.Room(r.Context(), room.ID, userID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomStore.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list rooms", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	out := make([]roomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomSummary{ID: room.ID, Name: room.Name, Code: room.Code, ChorePhase: room.ChorePhase})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.flow.Room(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	room, err := h.flow.Room(r.Context(), roomID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}
	if room.CreatorID != auth.UserID(r.Context()) {
		writeErrorMessage(w, http.StatusForbidden, "only the room's creator can delete it")
		return
	}

	if err := h.roomStore.Delete(roomID, room.CreatorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorMessage(w, http.StatusNotFound, "room not found")
			return
		}
		h.logger.Error("delete room", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to delete room")
		return
	}

	h.flow.Publish(roomID, "room", "deleted", roomID)
	h.logger.Info("room deleted", "room_id", roomID)
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/roomies/internal/auth"
	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/geo"
	"github.com/dukerupert/roomies/internal/model"
	"github.com/dukerupert/roomies/internal/store"
)

type PresenceHandler struct {
	userStore    *store.UserStore
	flow         *choreflow.Service
	radiusMeters float64
	logger       *slog.Logger
	now          func() time.Time
}

func NewPresenceHandler(us *store.UserStore, flow *choreflow.Service, radiusMeters float64, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		userStore:    us,
		flow:         flow,
		radiusMeters: radiusMeters,
		logger:       logger,
		now:          time.Now,
	}
}

type presenceEntry struct {
	UserID         string          `json:"user_id"`
	Name           string          `json:"name"`
	Location       *model.Location `json:"location"`
	UpdatedAt      *time.Time      `json:"updated_at"`
	DistanceMeters *float64        `json:"distance_meters"`
	Home           bool            `json:"home"`
}

func (h *PresenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var loc model.Location
	if !decodeJSON(w, r, &loc) {
		return
	}
	if !geo.Valid(loc) {
		writeErrorMessage(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	roomID := r.PathValue("id")
	userID := auth.UserID(r.Context())
	if _, err := h.flow.Room(r.Context(), roomID, userID); err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}

	if err := h.userStore.UpdateLocation(userID, loc, h.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		h.logger.Error("update location", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to update location")
		return
	}

	h.flow.Publish(roomID, "presence", "updated", userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	room, err := h.flow.Room(r.Context(), roomID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}

	members, err := h.userStore.ListRoomMembers(roomID)
	if err != nil {
		h.logger.Error("list room members", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	out := make([]presenceEntry, 0, len(members))
	for _, m := range members {
		e := presenceEntry{
			UserID:    m.ID,
			Name:      m.DisplayName(),
			Location:  m.Location,
			UpdatedAt: m.LocationUpdatedAt,
		}
		if m.Location != nil {
			d := geo.DistanceMeters(room.Location, *m.Location)
			e.DistanceMeters = &d
			e.Home = d <= h.radiusMeters
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

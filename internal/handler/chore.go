package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/roomies/internal/auth"
	"github.com/dukerupert/roomies/internal/chore"
	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/model"
)

type ChoreHandler struct {
	flow   *choreflow.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewChoreHandler(flow *choreflow.Service, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{flow: flow, logger: logger, now: time.Now}
}

type choreRequest struct {
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
}

type rankingRequest struct {
	Ranks model.Ranking `json:"ranks"`
}

type submitResponse struct {
	Room          roomView `json:"room"`
	QuorumReached bool     `json:"quorum_reached"`
	Assigned      bool     `json:"assigned"`
	DispatchError string   `json:"dispatch_error,omitempty"`
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.flow.ListChores(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "failed to list chores")
		return
	}
	writeJSON(w, http.StatusOK, chore.WithStatus(chores, h.now()))
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.flow.AddChore(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), req.Name, req.Frequency)
	if err != nil {
		writeError(w, h.logger, err, "failed to create chore")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.flow.DeleteChore(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), r.PathValue("chore_id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to delete chore")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChoreHandler) Done(w http.ResponseWriter, r *http.Request) {
	c, err := h.flow.CompleteChore(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), r.PathValue("chore_id"))
	if err != nil {
		writeError(w, h.logger, err, "failed to complete chore")
		return
	}
	status, due := chore.ComputeStatus(*c, h.now())
	writeJSON(w, http.StatusOK, chore.ChoreWithStatus{Chore: *c, Status: status, DueDate: due})
}

func (h *ChoreHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	room, err := h.flow.ConfirmListComplete(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "failed to confirm chore list")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

func (h *ChoreHandler) SubmitRanking(w http.ResponseWriter, r *http.Request) {
	var req rankingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.flow.SubmitRanking(r.Context(), r.PathValue("id"), auth.UserID(r.Context()), req.Ranks)
	if err != nil {
		writeError(w, h.logger, err, "failed to submit ranking")
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Room:          newRoomView(res.Room),
		QuorumReached: res.QuorumReached,
		Assigned:      res.Assigned,
		DispatchError: res.DispatchError,
	})
}

func (h *ChoreHandler) Reset(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	userID := auth.UserID(r.Context())
	if err := h.flow.ResetAll(r.Context(), roomID, userID); err != nil {
		writeError(w, h.logger, err, "failed to reset chores")
		return
	}
	room, err := h.flow.Room(r.Context(), roomID, userID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

// Dispatch retries allocation after a failed attempt.
func (h *ChoreHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	room, err := h.flow.Redispatch(r.Context(), r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "failed to dispatch chores")
		return
	}
	writeJSON(w, http.StatusOK, newRoomView(room))
}

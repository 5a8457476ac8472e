package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/roomies/internal/auth"
	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/feed"
	"github.com/dukerupert/roomies/internal/model"
	"github.com/dukerupert/roomies/internal/store"
)

type PostHandler struct {
	postStore *store.PostStore
	flow      *choreflow.Service
	logger    *slog.Logger
}

func NewPostHandler(ps *store.PostStore, flow *choreflow.Service, logger *slog.Logger) *PostHandler {
	return &PostHandler{postStore: ps, flow: flow, logger: logger}
}

type postRequest struct {
	Content string `json:"content"`
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	content, err := feed.Sanitize(req.Content)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	roomID := r.PathValue("id")
	userID := auth.UserID(r.Context())
	if _, err := h.flow.Room(r.Context(), roomID, userID); err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}

	post, err := h.postStore.Create(roomID, userID, content)
	if err != nil {
		h.logger.Error("create post", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	h.flow.Publish(roomID, "post", "created", post.ID)
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	userID := auth.UserID(r.Context())
	if _, err := h.flow.Room(r.Context(), roomID, userID); err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return
	}

	posts, err := h.postStore.List(roomID, userID, 0)
	if err != nil {
		h.logger.Error("list posts", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// roomPost loads a post and checks it belongs to the room in the path.
func (h *PostHandler) roomPost(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	roomID := r.PathValue("id")
	userID := auth.UserID(r.Context())
	if _, err := h.flow.Room(r.Context(), roomID, userID); err != nil {
		writeError(w, h.logger, err, "failed to load room")
		return nil, false
	}

	post, err := h.postStore.GetByID(r.PathValue("post_id"), userID)
	if err != nil {
		h.logger.Error("get post", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to load post")
		return nil, false
	}
	if post == nil || post.RoomID != roomID {
		writeErrorMessage(w, http.StatusNotFound, "post not found")
		return nil, false
	}
	return post, true
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	post, ok := h.roomPost(w, r)
	if !ok {
		return
	}

	post, err := h.postStore.ToggleLike(post.ID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("toggle like", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to like post")
		return
	}

	h.flow.Publish(post.RoomID, "post", "liked", post.ID)
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, ok := h.roomPost(w, r)
	if !ok {
		return
	}

	if err := h.postStore.Delete(post.ID, auth.UserID(r.Context())); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorMessage(w, http.StatusForbidden, "only the author can delete a post")
			return
		}
		h.logger.Error("delete post", "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "failed to delete post")
		return
	}

	h.flow.Publish(post.RoomID, "post", "deleted", post.ID)
	w.WriteHeader(http.StatusNoContent)
}

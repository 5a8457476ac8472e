package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/roomies/internal/choreflow"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeError maps workflow errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a 500 with the fallback message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, choreflow.ErrValidation):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, choreflow.ErrNotMember):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, choreflow.ErrRoomNotFound), errors.Is(err, choreflow.ErrChoreNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, choreflow.ErrPhaseLocked), errors.Is(err, choreflow.ErrAlreadySubmitted):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, choreflow.ErrAssignmentParse), errors.Is(err, choreflow.ErrAllocator):
		writeErrorMessage(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error(fallback, "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, fallback)
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

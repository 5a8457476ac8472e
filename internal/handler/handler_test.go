package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/roomies/internal/auth"
	"github.com/dukerupert/roomies/internal/choreflow"
	"github.com/dukerupert/roomies/internal/database"
	"github.com/dukerupert/roomies/internal/model"
	"github.com/dukerupert/roomies/internal/store"
)

func TestWriteErrorStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		err  error
		want int
	}{
		{choreflow.ErrIncompleteRanking, http.StatusBadRequest},
		{choreflow.ErrNotMember, http.StatusForbidden},
		{choreflow.ErrRoomNotFound, http.StatusNotFound},
		{choreflow.ErrChoreNotFound, http.StatusNotFound},
		{choreflow.ErrQuorumNotReached, http.StatusConflict},
		{choreflow.ErrAlreadySubmitted, http.StatusConflict},
		{fmt.Errorf("%w: not json", choreflow.ErrAssignmentParse), http.StatusBadGateway},
		{choreflow.ErrAllocator, http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, logger, tt.err, "failed")
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("%v: body = %q", tt.err, rec.Body.String())
		}
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()
	writeError(rec, logger, errors.New("sql: connection refused"), "failed to list chores")
	if strings.Contains(rec.Body.String(), "sql") {
		t.Errorf("body leaks internal error: %s", rec.Body.String())
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
	var v map[string]any
	if decodeJSON(rec, req, &v) {
		t.Fatal("expected decode failure")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRoomViewHidesRankings(t *testing.T) {
	r := &model.Room{
		ID:       "r1",
		Members:  []string{"u1", "u2"},
		Rankings: map[string]model.Ranking{"u2": {"c1": 1}},
	}
	data, err := json.Marshal(newRoomView(r))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "c1") {
		t.Errorf("view leaks ranking contents: %s", s)
	}
	if !strings.Contains(s, `"submitted":["u2"]`) {
		t.Errorf("view = %s, want submitted u2", s)
	}
	if !strings.Contains(s, `"chores_confirmed":[]`) {
		t.Errorf("view = %s, want empty confirmations as []", s)
	}
}

func setupRoomHandler(t *testing.T) (*RoomHandler, *store.RoomStore, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	rooms := store.NewRoomStore(db)
	alice, err := users.Create("alice@example.com", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRoomHandler(rooms, nil, logger), rooms, alice
}

func createRoomRequestAs(userID string) *http.Request {
	req := httptest.NewRequest("POST", "/api/rooms", strings.NewReader(`{"name":"Flat 4","latitude":1,"longitude":2}`))
	return req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))
}

func TestRoomCreateRetriesTakenCode(t *testing.T) {
	h, rooms, alice := setupRoomHandler(t)
	if _, err := rooms.Create("Existing", "482913", alice.ID, model.Location{}); err != nil {
		t.Fatalf("seed room: %v", err)
	}

	codes := []string{"482913", "482913", "111111"}
	h.newCode = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}

	rec := httptest.NewRecorder()
	h.Create(rec, createRoomRequestAs(alice.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Code != "111111" {
		t.Errorf("code = %q, want the first free draw", got.Code)
	}
}

func TestRoomCreateGivesUpOnCodes(t *testing.T) {
	h, rooms, alice := setupRoomHandler(t)
	if _, err := rooms.Create("Existing", "482913", alice.ID, model.Location{}); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	draws := 0
	h.newCode = func() string {
		draws++
		return "482913"
	}

	rec := httptest.NewRecorder()
	h.Create(rec, createRoomRequestAs(alice.ID))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if draws != maxCodeAttempts {
		t.Errorf("draws = %d, want %d", draws, maxCodeAttempts)
	}
}

package choreflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dukerupert/roomies/internal/allocator"
	"github.com/dukerupert/roomies/internal/model"
	"github.com/google/go-cmp/cmp"
)

func TestParseAssignment(t *testing.T) {
	chores := []model.Chore{{ID: "c1"}, {ID: "c2"}}
	members := []string{"uidA", "uidB"}
	want := map[string]string{"c1": "uidA", "c2": "uidB"}

	valid := []struct {
		name string
		raw  string
	}{
		{"bare", `{"c1":"uidA","c2":"uidB"}`},
		{"json fence", "```json\n{\"c1\":\"uidA\",\"c2\":\"uidB\"}\n```"},
		{"plain fence", "```\n{\"c1\":\"uidA\",\"c2\":\"uidB\"}\n```"},
		{"surrounding space", "  \n```json {\"c1\":\"uidA\",\"c2\":\"uidB\"} ```\n"},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAssignment(tt.raw, chores, members)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	invalid := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"prose", "Here is the assignment: {\"c1\":\"uidA\",\"c2\":\"uidB\"}"},
		{"unclosed fence", "```json\n{\"c1\":\"uidA\",\"c2\":\"uidB\"}"},
		{"other language fence", "```yaml\nc1: uidA\n```"},
		{"not an object", `["uidA","uidB"]`},
		{"null", `null`},
		{"non-string member", `{"c1":1,"c2":"uidB"}`},
		{"unknown chore", `{"c1":"uidA","c2":"uidB","c9":"uidA"}`},
		{"unknown member", `{"c1":"uidA","c2":"uidZ"}`},
		{"missing chore", `{"c1":"uidA"}`},
		{"trailing data", `{"c1":"uidA","c2":"uidB"} {}`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAssignment(tt.raw, chores, members)
			if !errors.Is(err, ErrAssignmentParse) {
				t.Fatalf("err = %v, want ErrAssignmentParse", err)
			}
		})
	}
}

func TestApplyAssignmentIdempotent(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()
	chores := f.addChores(t, "Dishes", "Trash")
	assignment := map[string]string{chores[0].ID: f.bob.ID, chores[1].ID: f.alice.ID}

	if err := f.svc.ApplyAssignment(ctx, f.room.ID, assignment); !errors.Is(err, ErrPhaseLocked) {
		t.Fatalf("apply while open = %v, want ErrPhaseLocked", err)
	}

	f.rooms.AdvancePhase(f.room.ID, []model.Phase{model.PhaseOpen}, model.PhaseDispatching)
	if err := f.svc.ApplyAssignment(ctx, f.room.ID, assignment); err != nil {
		t.Fatalf("apply: %v", err)
	}
	once, _ := f.chores.List(f.room.ID)
	phaseOnce := f.reload(t).ChorePhase

	if err := f.svc.ApplyAssignment(ctx, f.room.ID, assignment); err != nil {
		t.Fatalf("apply again: %v", err)
	}
	twice, _ := f.chores.List(f.room.ID)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("chores changed on reapply (-once +twice):\n%s", diff)
	}
	if got := f.reload(t).ChorePhase; got != phaseOnce || got != model.PhaseAssigned {
		t.Errorf("phase = %q, want assigned both times", got)
	}
}

func TestDispatchFailureRevertsToRanking(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()
	chores := f.toRanking(t, "Dishes")
	only := chores[0].ID

	f.alloc.reply = func(allocator.Request) (string, error) {
		return "I could not decide, sorry!", nil
	}

	f.svc.SubmitRanking(ctx, f.room.ID, f.alice.ID, model.Ranking{only: 1})
	res, err := f.svc.SubmitRanking(ctx, f.room.ID, f.bob.ID, model.Ranking{only: 1})
	if err != nil {
		t.Fatalf("submit bob: %v", err)
	}
	if !res.QuorumReached || res.Assigned {
		t.Fatalf("result = %+v, want quorum without assignment", res)
	}
	if res.DispatchError == "" {
		t.Error("expected dispatch error to be reported")
	}
	if res.Room.ChorePhase != model.PhaseRanking {
		t.Errorf("phase = %q, want ranking after failed dispatch", res.Room.ChorePhase)
	}
	if c, _ := f.chores.GetByID(f.room.ID, only); c.Assignee != nil {
		t.Errorf("assignee = %v, want none after parse failure", *c.Assignee)
	}

	// No automatic retry.
	if f.alloc.calls() != 1 {
		t.Errorf("allocator calls = %d, want 1", f.alloc.calls())
	}

	f.alloc.reply = func(allocator.Request) (string, error) {
		return `{"` + only + `":"` + f.bob.ID + `"}`, nil
	}
	r, err := f.svc.Redispatch(ctx, f.room.ID, f.alice.ID)
	if err != nil {
		t.Fatalf("redispatch: %v", err)
	}
	if r.ChorePhase != model.PhaseAssigned {
		t.Errorf("phase = %q, want assigned", r.ChorePhase)
	}
}

func TestDispatchAllocatorError(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()
	chores := f.toRanking(t, "Dishes")
	only := chores[0].ID

	// fakeAllocator with no reply returns an error.
	f.svc.SubmitRanking(ctx, f.room.ID, f.alice.ID, model.Ranking{only: 1})
	f.svc.SubmitRanking(ctx, f.room.ID, f.bob.ID, model.Ranking{only: 1})

	_, err := f.svc.Redispatch(ctx, f.room.ID, f.alice.ID)
	if !errors.Is(err, ErrAllocator) {
		t.Fatalf("redispatch = %v, want ErrAllocator", err)
	}
	if p := f.reload(t).ChorePhase; p != model.PhaseRanking {
		t.Errorf("phase = %q, want ranking", p)
	}
}

func TestRedispatchGuards(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	if _, err := f.svc.Redispatch(ctx, f.room.ID, f.alice.ID); !errors.Is(err, ErrPhaseLocked) {
		t.Errorf("redispatch while open = %v, want ErrPhaseLocked", err)
	}

	chores := f.toRanking(t, "Dishes")
	f.svc.SubmitRanking(ctx, f.room.ID, f.alice.ID, model.Ranking{chores[0].ID: 1})

	_, err := f.svc.Redispatch(ctx, f.room.ID, f.alice.ID)
	if !errors.Is(err, ErrQuorumNotReached) {
		t.Errorf("redispatch without quorum = %v, want ErrQuorumNotReached", err)
	}
	if f.alloc.calls() != 0 {
		t.Errorf("allocator calls = %d, want 0", f.alloc.calls())
	}
}

func TestConcurrentRedispatchAllocatesOnce(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()
	chores := f.toRanking(t, "Dishes")
	only := chores[0].ID

	f.svc.SubmitRanking(ctx, f.room.ID, f.alice.ID, model.Ranking{only: 1})
	f.svc.SubmitRanking(ctx, f.room.ID, f.bob.ID, model.Ranking{only: 1})
	if f.alloc.calls() != 1 {
		t.Fatalf("allocator calls = %d, want 1 failed attempt", f.alloc.calls())
	}

	f.alloc.mu.Lock()
	f.alloc.reply = func(allocator.Request) (string, error) {
		return `{"` + only + `":"` + f.alice.ID + `"}`, nil
	}
	f.alloc.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Redispatch(ctx, f.room.ID, f.bob.ID)
		}()
	}
	wg.Wait()

	if got := f.alloc.calls(); got != 2 {
		t.Errorf("allocator calls = %d, want exactly one more", got)
	}
	if p := f.reload(t).ChorePhase; p != model.PhaseAssigned {
		t.Errorf("phase = %q, want assigned", p)
	}
}

func TestRoomDeletedDuringDispatch(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()
	chores := f.toRanking(t, "Dishes")
	only := chores[0].ID

	f.alloc.reply = func(allocator.Request) (string, error) {
		if err := f.rooms.Delete(f.room.ID, f.alice.ID); err != nil {
			t.Errorf("delete room: %v", err)
		}
		return `{"` + only + `":"` + f.bob.ID + `"}`, nil
	}

	if _, err := f.svc.SubmitRanking(ctx, f.room.ID, f.alice.ID, model.Ranking{only: 1}); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	res, err := f.svc.SubmitRanking(ctx, f.room.ID, f.bob.ID, model.Ranking{only: 1})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("submit bob = %+v, %v, want ErrRoomNotFound", res, err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
}

func TestApplyAssignmentMissingRoom(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()
	chores := f.addChores(t, "Dishes")

	if err := f.rooms.Delete(f.room.ID, f.alice.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	err := f.svc.ApplyAssignment(ctx, f.room.ID, map[string]string{chores[0].ID: f.bob.ID})
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("apply = %v, want ErrRoomNotFound", err)
	}
}

package choreflow

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/roomies/internal/model"
)

func TestAddChore(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	c, err := f.svc.AddChore(ctx, f.room.ID, f.bob.ID, "  Take out trash ", " Weekly")
	if err != nil {
		t.Fatalf("add chore: %v", err)
	}
	if c.Name != "Take out trash" {
		t.Errorf("name = %q, want trimmed", c.Name)
	}
	if c.Frequency != "weekly" {
		t.Errorf("frequency = %q, want %q", c.Frequency, "weekly")
	}
	if c.CreatedBy != f.bob.ID {
		t.Errorf("created_by = %q, want bob", c.CreatedBy)
	}
}

func TestAddChoreValidation(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	if _, err := f.svc.AddChore(ctx, f.room.ID, f.alice.ID, "   ", "daily"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty name = %v, want ErrValidation", err)
	}
	if _, err := f.svc.AddChore(ctx, f.room.ID, "stranger", "Dishes", "daily"); !errors.Is(err, ErrNotMember) {
		t.Errorf("non-member = %v, want ErrNotMember", err)
	}
	if _, err := f.svc.AddChore(ctx, "missing", f.alice.ID, "Dishes", "daily"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("missing room = %v, want ErrRoomNotFound", err)
	}
}

func TestAddChorePhaseLocked(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	f.toRanking(t, "Dishes")
	if _, err := f.svc.AddChore(ctx, f.room.ID, f.alice.ID, "Vacuum", "weekly"); !errors.Is(err, ErrPhaseLocked) {
		t.Errorf("add while ranking = %v, want ErrPhaseLocked", err)
	}

	f.rooms.AdvancePhase(f.room.ID, []model.Phase{model.PhaseRanking}, model.PhaseAssigned)
	if _, err := f.svc.AddChore(ctx, f.room.ID, f.alice.ID, "Vacuum", "weekly"); !errors.Is(err, ErrPhaseLocked) {
		t.Errorf("add while assigned = %v, want ErrPhaseLocked", err)
	}
}

func TestDeleteChore(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	chores := f.addChores(t, "Dishes", "Trash")
	if err := f.svc.DeleteChore(ctx, f.room.ID, f.bob.ID, chores[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.DeleteChore(ctx, f.room.ID, f.bob.ID, chores[0].ID); !errors.Is(err, ErrChoreNotFound) {
		t.Errorf("delete twice = %v, want ErrChoreNotFound", err)
	}

	left, _ := f.svc.ListChores(ctx, f.room.ID, f.alice.ID)
	if len(left) != 1 || left[0].ID != chores[1].ID {
		t.Errorf("remaining = %v, want only trash", left)
	}
}

func TestDeleteChoreWhileRanking(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	chores := f.toRanking(t, "Dishes", "Trash")
	if err := f.svc.DeleteChore(ctx, f.room.ID, f.alice.ID, chores[0].ID); !errors.Is(err, ErrPhaseLocked) {
		t.Errorf("delete while ranking = %v, want ErrPhaseLocked", err)
	}

	f.rooms.AdvancePhase(f.room.ID, []model.Phase{model.PhaseRanking}, model.PhaseDispatching)
	if err := f.svc.DeleteChore(ctx, f.room.ID, f.alice.ID, chores[0].ID); !errors.Is(err, ErrPhaseLocked) {
		t.Errorf("delete while dispatching = %v, want ErrPhaseLocked", err)
	}
	if left, _ := f.chores.List(f.room.ID); len(left) != 2 {
		t.Errorf("chores = %d, locked deletes must not remove anything", len(left))
	}

	f.rooms.AdvancePhase(f.room.ID, []model.Phase{model.PhaseDispatching}, model.PhaseAssigned)
	if err := f.svc.DeleteChore(ctx, f.room.ID, f.alice.ID, chores[0].ID); err != nil {
		t.Errorf("delete while assigned: %v", err)
	}
}

func TestResetAll(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	chores := f.toRanking(t, "Dishes")
	f.svc.SubmitRanking(ctx, f.room.ID, f.alice.ID, model.Ranking{chores[0].ID: 1})

	if err := f.svc.ResetAll(ctx, f.room.ID, f.bob.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}
	// Retrying a reset is harmless.
	if err := f.svc.ResetAll(ctx, f.room.ID, f.bob.ID); err != nil {
		t.Fatalf("reset again: %v", err)
	}

	r := f.reload(t)
	if r.ChorePhase != model.PhaseOpen {
		t.Errorf("phase = %q, want open", r.ChorePhase)
	}
	if len(r.ChoresConfirmed) != 0 || len(r.Rankings) != 0 {
		t.Errorf("confirmed = %v rankings = %v, want empty", r.ChoresConfirmed, r.Rankings)
	}
	left, _ := f.svc.ListChores(ctx, f.room.ID, f.alice.ID)
	if len(left) != 0 {
		t.Errorf("chores = %d, want 0", len(left))
	}
}

func TestCompleteChoreAnyPhase(t *testing.T) {
	f := setupFlowTest(t)
	ctx := context.Background()

	chores := f.toRanking(t, "Dishes")
	c, err := f.svc.CompleteChore(ctx, f.room.ID, f.bob.ID, chores[0].ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if c.LastDone == nil {
		t.Error("expected last_done to be set")
	}
	if _, err := f.svc.CompleteChore(ctx, f.room.ID, f.bob.ID, "ghost"); !errors.Is(err, ErrChoreNotFound) {
		t.Errorf("complete missing = %v, want ErrChoreNotFound", err)
	}
}

package chore

import (
	"testing"
	"time"

	"github.com/dukerupert/roomies/internal/model"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestOneOffPending(t *testing.T) {
	c := model.Chore{ID: "c1", Name: "Buy shelves", Frequency: "other", CreatedAt: date(2026, 1, 1, 0)}

	status, due := ComputeStatus(c, date(2026, 2, 5, 0))
	if status != StatusPending {
		t.Errorf("status = %q, want %q", status, StatusPending)
	}
	if due != nil {
		t.Errorf("due = %v, want nil", due)
	}
}

func TestOneOffCompleted(t *testing.T) {
	done := date(2026, 2, 3, 10)
	c := model.Chore{ID: "c1", Name: "Buy shelves", CreatedAt: date(2026, 1, 1, 0), LastDone: &done}

	status, _ := ComputeStatus(c, date(2026, 2, 5, 0))
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
}

func TestDailyCompletedToday(t *testing.T) {
	done := date(2026, 2, 5, 8)
	c := model.Chore{ID: "c1", Name: "Wash dishes", Frequency: "daily", CreatedAt: date(2026, 2, 1, 9), LastDone: &done}

	status, due := ComputeStatus(c, date(2026, 2, 5, 12))
	if status != StatusCompleted {
		t.Errorf("status = %q, want %q", status, StatusCompleted)
	}
	if due == nil || !due.Equal(date(2026, 2, 6, 0)) {
		t.Errorf("due = %v, want 2026-02-06", due)
	}
}

func TestDailyDueToday(t *testing.T) {
	done := date(2026, 2, 4, 20)
	c := model.Chore{ID: "c1", Name: "Wash dishes", Frequency: "Daily", CreatedAt: date(2026, 2, 1, 9), LastDone: &done}

	status, _ := ComputeStatus(c, date(2026, 2, 5, 12))
	if status != StatusPending {
		t.Errorf("status = %q, want %q", status, StatusPending)
	}
}

func TestDailyOverdue(t *testing.T) {
	done := date(2026, 2, 3, 10)
	c := model.Chore{ID: "c1", Name: "Wash dishes", Frequency: "daily", CreatedAt: date(2026, 2, 1, 9), LastDone: &done}

	status, due := ComputeStatus(c, date(2026, 2, 5, 12))
	if status != StatusOverdue {
		t.Errorf("status = %q, want %q", status, StatusOverdue)
	}
	if due == nil || !due.Equal(date(2026, 2, 4, 0)) {
		t.Errorf("due = %v, want 2026-02-04", due)
	}
}

func TestWeeklyNeverDone(t *testing.T) {
	c := model.Chore{ID: "c1", Name: "Vacuum", Frequency: "weekly", CreatedAt: date(2026, 2, 1, 9)}

	if status, _ := ComputeStatus(c, date(2026, 2, 5, 12)); status != StatusPending {
		t.Errorf("within first week: status = %q, want %q", status, StatusPending)
	}
	if status, _ := ComputeStatus(c, date(2026, 2, 9, 12)); status != StatusOverdue {
		t.Errorf("after first week: status = %q, want %q", status, StatusOverdue)
	}
}

func TestMonthlyUsesCalendarMonths(t *testing.T) {
	done := date(2026, 1, 31, 9)
	c := model.Chore{ID: "c1", Name: "Clean fridge", Frequency: "monthly", CreatedAt: date(2026, 1, 1, 0), LastDone: &done}

	_, due := ComputeStatus(c, date(2026, 2, 10, 0))
	// Jan 31 + 1 month normalises to Mar 3 in a non-leap year.
	if due == nil || !due.Equal(date(2026, 3, 3, 0)) {
		t.Errorf("due = %v, want 2026-03-03", due)
	}
}

func TestWithStatus(t *testing.T) {
	done := date(2026, 2, 5, 8)
	chores := []model.Chore{
		{ID: "c1", Frequency: "daily", CreatedAt: date(2026, 2, 1, 0), LastDone: &done},
		{ID: "c2", Frequency: "other", CreatedAt: date(2026, 2, 1, 0)},
	}

	got := WithStatus(chores, date(2026, 2, 5, 12))
	if len(got) != 2 {
		t.Fatalf("got %d, want 2", len(got))
	}
	if got[0].Status != StatusCompleted || got[1].Status != StatusPending {
		t.Errorf("statuses = %q, %q", got[0].Status, got[1].Status)
	}
	if got[0].ID != "c1" {
		t.Errorf("embedded chore not carried through: %+v", got[0])
	}
}

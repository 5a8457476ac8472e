package chore

import (
	"strings"
	"time"

	"github.com/dukerupert/roomies/internal/model"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

type ChoreWithStatus struct {
	model.Chore
	Status  Status     `json:"status"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// period returns how far apart occurrences of a recurring chore are, or
// false for one-off and free-text frequencies.
func period(frequency string) (years, months, days int, ok bool) {
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case model.FrequencyDaily:
		return 0, 0, 1, true
	case model.FrequencyWeekly:
		return 0, 0, 7, true
	case model.FrequencyMonthly:
		return 0, 1, 0, true
	}
	return 0, 0, 0, false
}

// ComputeStatus determines the status and due date for a chore. A recurring
// chore falls due one period after it was last done, or one period after it
// was created if it has never been done.
func ComputeStatus(c model.Chore, today time.Time) (Status, *time.Time) {
	today = startOfDay(today)

	y, m, d, recurring := period(c.Frequency)
	if !recurring {
		if c.LastDone != nil {
			return StatusCompleted, nil
		}
		return StatusPending, nil
	}

	anchor := c.CreatedAt
	if c.LastDone != nil {
		anchor = *c.LastDone
	}
	anchor = startOfDay(anchor.In(today.Location()))
	due := anchor.AddDate(y, m, d)

	switch {
	case due.Before(today):
		return StatusOverdue, &due
	case c.LastDone != nil && today.Before(due):
		return StatusCompleted, &due
	}
	return StatusPending, &due
}

// WithStatus decorates chores with their status as of today.
func WithStatus(chores []model.Chore, today time.Time) []ChoreWithStatus {
	out := make([]ChoreWithStatus, 0, len(chores))
	for _, c := range chores {
		status, due := ComputeStatus(c, today)
		out = append(out, ChoreWithStatus{Chore: c, Status: status, DueDate: due})
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

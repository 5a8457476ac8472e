package model

import "time"

// Common frequency descriptors. Frequency is free text; these are the values
// the clients offer.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyOther   = "other"
)

type Chore struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	Name      string     `json:"name"`
	Frequency string     `json:"frequency"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	Assignee  *string    `json:"assignee"`
	LastDone  *time.Time `json:"last_done"`
}

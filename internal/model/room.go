package model

import "time"

// Phase is the room-wide stage of the chore assignment workflow.
type Phase string

const (
	PhaseOpen        Phase = "open"
	PhaseConfirm     Phase = "confirm"
	PhaseRanking     Phase = "ranking"
	PhaseDispatching Phase = "dispatching"
	PhaseAssigned    Phase = "assigned"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseOpen, PhaseConfirm, PhaseRanking, PhaseDispatching, PhaseAssigned:
		return true
	}
	return false
}

// CanEditChores reports whether chores may be added in this phase.
func (p Phase) CanEditChores() bool {
	return p == PhaseOpen || p == PhaseConfirm
}

// CanDeleteChores reports whether individual chores may be removed.
func (p Phase) CanDeleteChores() bool {
	return p != PhaseRanking && p != PhaseDispatching
}

func (p Phase) CanConfirm() bool {
	return p == PhaseOpen || p == PhaseConfirm
}

func (p Phase) CanRank() bool {
	return p == PhaseRanking
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Ranking maps chore ID to the member's rank for it (1 = most preferred).
type Ranking map[string]int

type Room struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Code            string             `json:"code"`
	CreatorID       string             `json:"creator_id"`
	Location        Location           `json:"location"`
	Members         []string           `json:"members"`
	ChorePhase      Phase              `json:"chore_phase"`
	ChoresConfirmed []string           `json:"chores_confirmed"`
	Rankings        map[string]Ranking `json:"rankings"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (r *Room) IsMember(userID string) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

func (r *Room) HasConfirmed(userID string) bool {
	for _, m := range r.ChoresConfirmed {
		if m == userID {
			return true
		}
	}
	return false
}

// AllRanked reports whether every current member has submitted a ranking.
func (r *Room) AllRanked() bool {
	if len(r.Members) == 0 {
		return false
	}
	for _, m := range r.Members {
		if _, ok := r.Rankings[m]; !ok {
			return false
		}
	}
	return true
}

// Rankers returns the members who have submitted, in join order.
func (r *Room) Rankers() []string {
	var ids []string
	for _, m := range r.Members {
		if _, ok := r.Rankings[m]; ok {
			ids = append(ids, m)
		}
	}
	return ids
}

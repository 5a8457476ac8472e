package handler

import (
	"time"

	"github.com/dukerupert/roomies/internal/model"
)

// roomView is the room as members see it. Individual rankings stay private;
// only who has submitted is shown.
type roomView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Code            string         `json:"code"`
	CreatorID       string         `json:"creator_id"`
	Location        model.Location `json:"location"`
	Members         []string       `json:"members"`
	ChorePhase      model.Phase    `json:"chore_phase"`
	ChoresConfirmed []string       `json:"chores_confirmed"`
	Submitted       []string       `json:"submitted"`
	CreatedAt       time.Time      `json:"created_at"`
}

func newRoomView(r *model.Room) roomView {
	v := roomView{
		ID:              r.ID,
		Name:            r.Name,
		Code:            r.Code,
		CreatorID:       r.CreatorID,
		Location:        r.Location,
		Members:         r.Members,
		ChorePhase:      r.ChorePhase,
		ChoresConfirmed: r.ChoresConfirmed,
		Submitted:       r.Rankers(),
		CreatedAt:       r.CreatedAt,
	}
	if v.Members == nil {
		v.Members = []string{}
	}
	if v.ChoresConfirmed == nil {
		v.ChoresConfirmed = []string{}
	}
	if v.Submitted == nil {
		v.Submitted = []string{}
	}
	return v
}

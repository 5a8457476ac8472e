package choreflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dukerupert/roomies/internal/allocator"
	"github.com/dukerupert/roomies/internal/model"
)

// SubmitResult reports what happened after a ranking was accepted.
type SubmitResult struct {
	Room          *model.Room `json:"room"`
	QuorumReached bool        `json:"quorum_reached"`
	Assigned      bool        `json:"assigned"`
	DispatchError string      `json:"dispatch_error,omitempty"`
}

// ValidateRanking checks that ranks covers exactly the given chores and uses
// every value from 1 to len(chores) once.
func ValidateRanking(ranks model.Ranking, chores []model.Chore) error {
	if len(chores) == 0 {
		return fmt.Errorf("%w: there are no chores to rank", ErrIncompleteRanking)
	}
	known := make(map[string]bool, len(chores))
	for _, c := range chores {
		known[c.ID] = true
		if _, ok := ranks[c.ID]; !ok {
			return fmt.Errorf("%w: missing chore %s", ErrIncompleteRanking, c.ID)
		}
	}
	for id := range ranks {
		if !known[id] {
			return fmt.Errorf("%w: unknown chore %s", ErrIncompleteRanking, id)
		}
	}

	n := len(chores)
	seen := make([]bool, n+1)
	for id, rank := range ranks {
		if rank < 1 || rank > n {
			return fmt.Errorf("%w: rank %d for chore %s is outside 1..%d", ErrDuplicateRank, rank, id, n)
		}
		if seen[rank] {
			return fmt.Errorf("%w: rank %d used more than once", ErrDuplicateRank, rank)
		}
		seen[rank] = true
	}
	return nil
}

// SubmitRanking stores memberID's ranking of the current chore list. When
// the submission completes the quorum, the assignment is dispatched before
// returning; a dispatch failure is reported in the result, not as an error,
// since the ranking itself was accepted.
func (s *Service) SubmitRanking(ctx context.Context, roomID, memberID string, ranks model.Ranking) (*SubmitResult, error) {
	room, err := s.memberRoom(roomID, memberID)
	if err != nil {
		return nil, err
	}
	if !room.ChorePhase.CanRank() {
		return nil, ErrPhaseLocked
	}
	if _, ok := room.Rankings[memberID]; ok {
		return nil, ErrAlreadySubmitted
	}

	chores, err := s.chores.List(roomID)
	if err != nil {
		return nil, err
	}
	if err := ValidateRanking(ranks, chores); err != nil {
		return nil, err
	}

	if err := s.rooms.SaveRanking(roomID, memberID, ranks); err != nil {
		return nil, translate(err, ErrRoomNotFound)
	}
	s.logger.Info("ranking submitted", "room_id", roomID, "member_id", memberID)
	s.Publish(roomID, "ranking", "submitted", memberID)

	result := &SubmitResult{}
	started, err := s.rooms.BeginDispatch(roomID)
	if err != nil {
		return nil, err
	}
	if started {
		result.QuorumReached = true
		if err := s.dispatch(ctx, roomID); err != nil {
			result.DispatchError = err.Error()
		} else {
			result.Assigned = true
		}
	}

	if result.Room, err = s.rooms.GetByID(roomID); err != nil {
		return nil, err
	}
	if result.Room == nil {
		return nil, ErrRoomNotFound
	}
	return result, nil
}

// Score is one member's rank for a chore. It encodes as the integer rank,
// or as the string "N/A" when the member has no rank for the chore.
type Score struct {
	Rank    int
	Missing bool
}

const missingScore = "N/A"

func (s Score) MarshalJSON() ([]byte, error) {
	if s.Missing {
		return json.Marshal(missingScore)
	}
	return json.Marshal(s.Rank)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str != missingScore {
			return fmt.Errorf("invalid score %q", str)
		}
		*s = Score{Missing: true}
		return nil
	}
	var rank int
	if err := json.Unmarshal(data, &rank); err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}
	*s = Score{Rank: rank}
	return nil
}

// MatrixChore is one row of the ranking matrix, keyed by member display name.
type MatrixChore struct {
	Task      string           `json:"task"`
	Frequency string           `json:"frequency"`
	ID        string           `json:"id"`
	Scores    map[string]Score `json:"scores"`
}

// Matrix is the payload handed to the allocator.
type Matrix struct {
	// People maps display name to member ID.
	People map[string]string
	Chores []MatrixChore
}

// BuildMatrix collects every member's rank for every current chore. Ranking
// entries for chores that no longer exist are ignored. Members sharing a
// display name are told apart with a numeric suffix.
func BuildMatrix(room *model.Room, chores []model.Chore, members []model.User) Matrix {
	names := displayNames(room.Members, members)

	m := Matrix{
		People: make(map[string]string, len(room.Members)),
		Chores: make([]MatrixChore, 0, len(chores)),
	}
	for _, id := range room.Members {
		m.People[names[id]] = id
	}

	for _, c := range chores {
		row := MatrixChore{
			Task:      c.Name,
			Frequency: c.Frequency,
			ID:        c.ID,
			Scores:    make(map[string]Score, len(room.Members)),
		}
		for _, id := range room.Members {
			rank, ok := room.Rankings[id][c.ID]
			if ok {
				row.Scores[names[id]] = Score{Rank: rank}
			} else {
				row.Scores[names[id]] = Score{Missing: true}
			}
		}
		m.Chores = append(m.Chores, row)
	}
	return m
}

func displayNames(order []string, users []model.User) map[string]string {
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	names := make(map[string]string, len(order))
	taken := make(map[string]bool, len(order))
	for _, id := range order {
		base := byID[id].DisplayName()
		name := base
		for i := 2; taken[name]; i++ {
			name = base + " (" + strconv.Itoa(i) + ")"
		}
		taken[name] = true
		names[id] = name
	}
	return names
}

// Request serialises the matrix into the allocator's request body.
func (m Matrix) Request() (allocator.Request, error) {
	people, err := json.Marshal(m.People)
	if err != nil {
		return allocator.Request{}, fmt.Errorf("marshal people: %w", err)
	}
	chores, err := json.Marshal(m.Chores)
	if err != nil {
		return allocator.Request{}, fmt.Errorf("marshal chores: %w", err)
	}
	return allocator.Request{PeopleStr: string(people), ChoresStr: string(chores)}, nil
}

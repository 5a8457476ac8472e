package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/roomies/internal/model"
	"github.com/google/uuid"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignee sql.NullString
	var lastDone sql.NullTime
	err := scanner.Scan(&c.ID, &c.RoomID, &c.Name, &c.Frequency, &c.CreatedBy,
		&assignee, &lastDone, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if assignee.Valid {
		c.Assignee = &assignee.String
	}
	if lastDone.Valid {
		c.LastDone = &lastDone.Time
	}
	return &c, nil
}

const choreCols = `id, room_id, name, frequency, created_by, assignee, last_done, created_at`

// Create adds a chore while the room's list is still editable.
func (s *ChoreStore) Create(roomID, name, frequency, createdBy string) (*model.Chore, error) {
	id := uuid.NewString()
	result, err := s.db.Exec(
		`INSERT INTO chores (id, room_id, name, frequency, created_by)
		 SELECT ?, id, ?, ?, ? FROM rooms WHERE id = ? AND chore_phase IN ('open', 'confirm')`,
		id, name, frequency, createdBy, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, s.phaseError(roomID)
	}
	return s.GetByID(roomID, id)
}

func (s *ChoreStore) phaseError(roomID string) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM rooms WHERE id = ?`, roomID).Scan(&n); err != nil {
		return fmt.Errorf("check room: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrPhaseMismatch
}

func (s *ChoreStore) GetByID(roomID, id string) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE room_id = ? AND id = ?`, roomID, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// List returns a room's chores in creation order.
func (s *ChoreStore) List(roomID string) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE room_id = ? ORDER BY created_at ASC, rowid ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	chores := []model.Chore{}
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Delete removes a chore unless the room is ranking or dispatching.
func (s *ChoreStore) Delete(roomID, id string) error {
	result, err := s.db.Exec(
		`DELETE FROM chores WHERE id = ? AND room_id = ?
		 AND EXISTS (SELECT 1 FROM rooms WHERE id = ? AND chore_phase NOT IN ('ranking', 'dispatching'))`,
		id, roomID, roomID,
	)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	c, err := s.GetByID(roomID, id)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	return ErrPhaseMismatch
}

// ApplyAssignment writes the assignee of every listed chore and marks the
// room assigned, in one transaction. The room must be dispatching or already
// assigned. Unknown chore IDs are rejected; a missing room yields
// ErrRoomNotFound.
func (s *ChoreStore) ApplyAssignment(roomID string, assignment map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var phase string
	err = tx.QueryRow(`SELECT chore_phase FROM rooms WHERE id = ?`, roomID).Scan(&phase)
	if err == sql.ErrNoRows {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("get phase: %w", err)
	}
	if p := model.Phase(phase); p != model.PhaseDispatching && p != model.PhaseAssigned {
		return ErrPhaseMismatch
	}

	for choreID, userID := range assignment {
		result, err := tx.Exec(
			`UPDATE chores SET assignee = ? WHERE id = ? AND room_id = ?`,
			userID, choreID, roomID,
		)
		if err != nil {
			return fmt.Errorf("assign chore: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("assign chore %s: %w", choreID, ErrNotFound)
		}
	}

	if _, err := tx.Exec(
		`UPDATE rooms SET chore_phase = 'assigned', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		roomID,
	); err != nil {
		return fmt.Errorf("mark assigned: %w", err)
	}
	return tx.Commit()
}

// MarkDone records that a chore was completed at the given time.
func (s *ChoreStore) MarkDone(roomID, id string, at time.Time) (*model.Chore, error) {
	result, err := s.db.Exec(
		`UPDATE chores SET last_done = ? WHERE id = ? AND room_id = ?`,
		at.UTC(), id, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark chore done: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(roomID, id)
}

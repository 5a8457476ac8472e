package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/roomies/internal/model"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type RoomStore struct {
	db *sql.DB
}

func NewRoomStore(db *sql.DB) *RoomStore {
	return &RoomStore{db: db}
}

func scanRoom(scanner interface{ Scan(...any) error }) (*model.Room, error) {
	var r model.Room
	var phase string
	err := scanner.Scan(&r.ID, &r.Name, &r.Code, &r.CreatorID,
		&r.Location.Latitude, &r.Location.Longitude, &phase, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ChorePhase = model.Phase(phase)
	if !r.ChorePhase.Valid() {
		return nil, fmt.Errorf("room %s has unknown chore phase %q", r.ID, phase)
	}
	return &r, nil
}

const roomCols = `id, name, code, creator_id, latitude, longitude, chore_phase, created_at, updated_at`

// Create inserts a room and enrolls its creator as the first member. It
// returns ErrCodeTaken if another room already holds code.
func (s *RoomStore) Create(name, code, creatorID string, loc model.Location) (*model.Room, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO rooms (id, name, code, creator_id, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, code, creatorID, loc.Latitude, loc.Longitude,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCodeTaken
		}
		return nil, fmt.Errorf("insert room: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO room_members (room_id, user_id) VALUES (?, ?)`,
		id, creatorID,
	); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(id)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// GetByID returns the room with its members, confirmations and rankings
// loaded, or nil if it does not exist.
func (s *RoomStore) GetByID(id string) (*model.Room, error) {
	row := s.db.QueryRow(`SELECT `+roomCols+` FROM rooms WHERE id = ?`, id)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if err := s.loadState(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoomStore) GetByCode(code string) (*model.Room, error) {
	row := s.db.QueryRow(`SELECT `+roomCols+` FROM rooms WHERE code = ?`, code)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room by code: %w", err)
	}
	if err := s.loadState(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoomStore) loadState(r *model.Room) error {
	members, err := s.queryIDs(`SELECT user_id FROM room_members WHERE room_id = ? ORDER BY seq ASC`, r.ID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	r.Members = members

	confirmed, err := s.queryIDs(`SELECT user_id FROM room_confirmations WHERE room_id = ? ORDER BY confirmed_at ASC, rowid ASC`, r.ID)
	if err != nil {
		return fmt.Errorf("load confirmations: %w", err)
	}
	r.ChoresConfirmed = confirmed

	rows, err := s.db.Query(`SELECT user_id, ranks FROM room_rankings WHERE room_id = ?`, r.ID)
	if err != nil {
		return fmt.Errorf("load rankings: %w", err)
	}
	defer rows.Close()

	r.Rankings = make(map[string]model.Ranking)
	for rows.Next() {
		var userID, raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			return fmt.Errorf("scan ranking: %w", err)
		}
		var ranks model.Ranking
		if err := json.Unmarshal([]byte(raw), &ranks); err != nil {
			return fmt.Errorf("decode ranking for %s: %w", userID, err)
		}
		r.Rankings[userID] = ranks
	}
	return rows.Err()
}

func (s *RoomStore) queryIDs(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListForUser returns the rooms a user belongs to, most recently joined first.
// Only the room row is loaded.
func (s *RoomStore) ListForUser(userID string) ([]model.Room, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.name, r.code, r.creator_id, r.latitude, r.longitude, r.chore_phase, r.created_at, r.updated_at
		 FROM rooms r
		 JOIN room_members rm ON rm.room_id = r.id
		 WHERE rm.user_id = ?
		 ORDER BY rm.seq DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

// AddMember enrolls a user in a room. Joining twice is a no-op.
func (s *RoomStore) AddMember(roomID, userID string) error {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO room_members (room_id, user_id)
		 SELECT id, ? FROM rooms WHERE id = ?`,
		userID, roomID,
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		exists, err := s.exists(roomID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (s *RoomStore) IsMember(roomID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM room_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

func (s *RoomStore) exists(roomID string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM rooms WHERE id = ?`, roomID).Scan(&n); err != nil {
		return false, fmt.Errorf("check room: %w", err)
	}
	return n > 0, nil
}

func (s *RoomStore) phase(roomID string) (model.Phase, error) {
	return phaseOf(s.db, roomID)
}

func phaseOf(q execQuerier, roomID string) (model.Phase, error) {
	var p string
	err := q.QueryRow(`SELECT chore_phase FROM rooms WHERE id = ?`, roomID).Scan(&p)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get phase: %w", err)
	}
	return model.Phase(p), nil
}

// Confirm records that a member is satisfied with the chore list. It only
// applies while the room is open or confirming; confirming twice is a no-op.
// The first confirmation moves an open room to confirm in the same
// transaction.
func (s *RoomStore) Confirm(roomID, userID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT OR IGNORE INTO room_confirmations (room_id, user_id)
		 SELECT id, ? FROM rooms WHERE id = ? AND chore_phase IN ('open', 'confirm')`,
		userID, roomID,
	)
	if err != nil {
		return fmt.Errorf("confirm chores: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		p, err := phaseOf(tx, roomID)
		if err != nil {
			return err
		}
		if !p.CanConfirm() {
			return ErrPhaseMismatch
		}
	}

	if err := openToConfirm(tx, roomID); err != nil {
		return err
	}
	return tx.Commit()
}

type execQuerier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// openToConfirm moves an open room to confirm, but only while a confirmation
// row exists for it.
func openToConfirm(q execQuerier, roomID string) error {
	if _, err := q.Exec(
		`UPDATE rooms SET chore_phase = 'confirm', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND chore_phase = 'open'
		 AND EXISTS (SELECT 1 FROM room_confirmations c WHERE c.room_id = rooms.id)`,
		roomID,
	); err != nil {
		return fmt.Errorf("advance to confirm: %w", err)
	}
	return nil
}

// AdvancePhase moves the room to phase to if it is currently in one of from.
// It reports whether the transition was applied.
func (s *RoomStore) AdvancePhase(roomID string, from []model.Phase, to model.Phase) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("advance phase: no source phases")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(from)), ", ")
	args := []any{string(to), roomID}
	for _, p := range from {
		args = append(args, string(p))
	}
	result, err := s.db.Exec(
		`UPDATE rooms SET chore_phase = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND chore_phase IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("advance phase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SaveRanking stores a member's ranking while the room is in the ranking
// phase. A member may submit once per cycle.
func (s *RoomStore) SaveRanking(roomID, userID string, ranks model.Ranking) error {
	raw, err := json.Marshal(ranks)
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO room_rankings (room_id, user_id, ranks)
		 SELECT id, ?, ? FROM rooms WHERE id = ? AND chore_phase = 'ranking'`,
		userID, string(raw), roomID,
	)
	if err != nil {
		return fmt.Errorf("save ranking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	p, err := s.phase(roomID)
	if err != nil {
		return err
	}
	if p != model.PhaseRanking {
		return ErrPhaseMismatch
	}
	return ErrAlreadySubmitted
}

// Reset discards every chore, confirmation and ranking for the room and
// returns it to the open phase.
func (s *RoomStore) Reset(roomID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE rooms SET chore_phase = 'open', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		roomID,
	)
	if err != nil {
		return fmt.Errorf("reset phase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	for _, q := range []string{
		`DELETE FROM chores WHERE room_id = ?`,
		`DELETE FROM room_confirmations WHERE room_id = ?`,
		`DELETE FROM room_rankings WHERE room_id = ?`,
	} {
		if _, err := tx.Exec(q, roomID); err != nil {
			return fmt.Errorf("reset room: %w", err)
		}
	}
	return tx.Commit()
}

// RevertStalledDispatches returns rooms left in dispatching by a crash to the
// ranking phase so the allocation can be retried.
func (s *RoomStore) RevertStalledDispatches() (int64, error) {
	result, err := s.db.Exec(
		`UPDATE rooms SET chore_phase = 'ranking', updated_at = CURRENT_TIMESTAMP WHERE chore_phase = 'dispatching'`,
	)
	if err != nil {
		return 0, fmt.Errorf("revert dispatches: %w", err)
	}
	return result.RowsAffected()
}

// AdvanceWhenAllConfirmed moves an open or confirming room to ranking if every
// current member has confirmed. Membership is read in the same statement, so a
// member who joined after the last confirmation blocks the transition.
func (s *RoomStore) AdvanceWhenAllConfirmed(roomID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rooms SET chore_phase = 'ranking', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND chore_phase IN ('open', 'confirm')
		 AND EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = rooms.id)
		 AND NOT EXISTS (
			SELECT 1 FROM room_members m
			WHERE m.room_id = rooms.id
			AND NOT EXISTS (
				SELECT 1 FROM room_confirmations c
				WHERE c.room_id = m.room_id AND c.user_id = m.user_id
			)
		 )`,
		roomID,
	)
	if err != nil {
		return false, fmt.Errorf("advance to ranking: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// BeginDispatch moves a ranking room to dispatching once every current member
// has ranked and the room has at least one chore. Only the caller that gets
// true may contact the allocator.
func (s *RoomStore) BeginDispatch(roomID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE rooms SET chore_phase = 'dispatching', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND chore_phase = 'ranking'
		 AND EXISTS (SELECT 1 FROM chores c WHERE c.room_id = rooms.id)
		 AND EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = rooms.id)
		 AND NOT EXISTS (
			SELECT 1 FROM room_members m
			WHERE m.room_id = rooms.id
			AND NOT EXISTS (
				SELECT 1 FROM room_rankings r
				WHERE r.room_id = m.room_id AND r.user_id = m.user_id
			)
		 )`,
		roomID,
	)
	if err != nil {
		return false, fmt.Errorf("begin dispatch: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes a room. Only its creator may delete it.
func (s *RoomStore) Delete(roomID, creatorID string) error {
	result, err := s.db.Exec(`DELETE FROM rooms WHERE id = ? AND creator_id = ?`, roomID, creatorID)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/roomies/internal/model"
	"github.com/google/uuid"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var lat, lon sql.NullFloat64
	var locAt sql.NullTime
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &lat, &lon, &locAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		u.Location = &model.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if locAt.Valid {
		u.LocationUpdatedAt = &locAt.Time
	}
	return &u, nil
}

const userCols = `id, email, name, latitude, longitude, location_updated_at, created_at, updated_at`

func (s *UserStore) Create(email, name, passwordHash string) (*model.User, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, password_hash) VALUES (?, ?, ?, ?)`,
		id, email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetPasswordHash returns the stored bcrypt hash, or "" if the user is unknown.
func (s *UserStore) GetPasswordHash(id string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func (s *UserStore) UpdateLocation(id string, loc model.Location, at time.Time) error {
	result, err := s.db.Exec(
		`UPDATE users SET latitude = ?, longitude = ?, location_updated_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		loc.Latitude, loc.Longitude, at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
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

// ListRoomMembers returns the members of a room in join order.
func (s *UserStore) ListRoomMembers(roomID string) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.email, u.name, u.latitude, u.longitude, u.location_updated_at, u.created_at, u.updated_at
		 FROM users u
		 JOIN room_members rm ON rm.user_id = u.id
		 WHERE rm.room_id = ?
		 ORDER BY rm.seq ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

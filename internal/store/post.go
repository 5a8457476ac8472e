package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/roomies/internal/model"
	"github.com/google/uuid"
)

type PostStore struct {
	db *sql.DB
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func scanPost(scanner interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	var liked int
	err := scanner.Scan(&p.ID, &p.RoomID, &p.AuthorID, &p.AuthorName, &p.Content,
		&p.Likes, &liked, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.LikedByMe = liked > 0
	return &p, nil
}

// postSelect takes the viewer ID as its first bind parameter.
const postSelect = `SELECT p.id, p.room_id, p.author_id, COALESCE(u.name, ''), p.content,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?),
	p.created_at
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id`

func (s *PostStore) Create(roomID, authorID, content string) (*model.Post, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO posts (id, room_id, author_id, content) VALUES (?, ?, ?, ?)`,
		id, roomID, authorID, content,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return s.GetByID(id, authorID)
}

func (s *PostStore) GetByID(id, viewerID string) (*model.Post, error) {
	row := s.db.QueryRow(postSelect+` WHERE p.id = ?`, viewerID, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// List returns a room's posts, newest first.
func (s *PostStore) List(roomID, viewerID string, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		postSelect+` WHERE p.room_id = ? ORDER BY p.created_at DESC, p.rowid DESC LIMIT ?`,
		viewerID, roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// ToggleLike adds the viewer's like, or removes it if already present.
func (s *PostStore) ToggleLike(postID, userID string) (*model.Post, error) {
	result, err := s.db.Exec(`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return nil, fmt.Errorf("unlike post: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.db.Exec(
			`INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)`,
			postID, userID,
		); err != nil {
			return nil, fmt.Errorf("like post: %w", err)
		}
	}
	return s.GetByID(postID, userID)
}

func (s *PostStore) Delete(id, authorID string) error {
	result, err := s.db.Exec(`DELETE FROM posts WHERE id = ? AND author_id = ?`, id, authorID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
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

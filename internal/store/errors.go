package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by writes whose target row does not exist.
	// Getters return nil, nil instead.
	ErrNotFound = errors.New("not found")

	// ErrRoomNotFound narrows ErrNotFound when the room itself is gone rather
	// than a row inside it.
	ErrRoomNotFound = fmt.Errorf("room %w", ErrNotFound)

	// ErrPhaseMismatch is returned when a phase-conditional write was not
	// applied because the room is in a different phase.
	ErrPhaseMismatch = errors.New("room phase does not allow this change")

	// ErrCodeTaken is returned when a new room's join code is already in use.
	ErrCodeTaken = errors.New("room code already in use")

	// ErrAlreadySubmitted is returned when a member ranks a second time.
	ErrAlreadySubmitted = errors.New("ranking already submitted")
)

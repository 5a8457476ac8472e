package choreflow

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers malformed input from the caller.
	ErrValidation = errors.New("validation error")
	// ErrIncompleteRanking means a ranking does not cover exactly the current chores.
	ErrIncompleteRanking = fmt.Errorf("%w: ranking must cover every chore exactly once", ErrValidation)
	// ErrDuplicateRank means the ranks are not a permutation of 1..N.
	ErrDuplicateRank = fmt.Errorf("%w: ranks must use each value from 1 to N once", ErrValidation)

	ErrPhaseLocked      = errors.New("action not allowed in the current chore phase")
	ErrQuorumNotReached = fmt.Errorf("%w: not every member has ranked", ErrPhaseLocked)
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotMember        = errors.New("not a member of this room")
	ErrAlreadySubmitted = errors.New("ranking already submitted")
	ErrChoreNotFound    = errors.New("chore not found")

	// ErrAssignmentParse means the allocator's reply could not be turned into
	// a complete, valid assignment. Nothing is written when it is returned.
	ErrAssignmentParse = errors.New("could not parse assignment")
	// ErrAllocator means the allocation service could not be reached or
	// returned an error status.
	ErrAllocator = errors.New("allocation service failed")
)

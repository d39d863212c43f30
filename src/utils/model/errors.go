package model

import "errors"

var (
	// Operation attempted on an entity that isn't in the required state. Nothing was changed.
	ErrConflictingState = errors.New("conflicting state")

	// Referenced contract, record or related entity doesn't exist
	ErrNotFound = errors.New("not found")

	// Should never happen in a correct deployment
	ErrInvariantViolation = errors.New("invariant violation")
)

// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a concurrent write won a race the caller may retry.
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., identifier taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation")
)

// Ordering sentinels.
var (
	// ErrWrongUserAfter indicates the "after" item belongs to another owner.
	ErrWrongUserAfter = errors.New("after item belongs to a different owner")

	// ErrAfterItemUnpersisted indicates the "after" item has no stored identity.
	ErrAfterItemUnpersisted = errors.New("after item is not persisted")

	// ErrGapExhausted indicates there is no free position between two neighbours.
	// It never leaves the position package: the caller rebalances and retries.
	ErrGapExhausted = errors.New("position gap exhausted")

	// ErrRangeViolation indicates a position would leave the int32 range.
	ErrRangeViolation = errors.New("position out of range")
)

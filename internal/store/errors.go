package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an insert collides with an existing
	// credential id or secret hash. The caller retries issuance with a
	// freshly generated secret; existing records are never overwritten.
	ErrConflict = errors.New("conflict")
)

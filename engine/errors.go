package engine

import "errors"

var (
	// ErrNotFound indicates the key does not exist (never written, or its
	// latest committed version is a tombstone).
	ErrNotFound = errors.New("engine: key not found")

	// ErrWriteConflict indicates the commit retry limit was exceeded under
	// contention. The write is not applied; the caller may retry the whole
	// operation.
	ErrWriteConflict = errors.New("engine: write conflict, retry limit exceeded")

	// ErrTimeout indicates the per-operation deadline expired. Distinct
	// from backend.ErrUnavailable: the backend may be healthy but slow.
	ErrTimeout = errors.New("engine: operation deadline exceeded")

	// ErrInvalidKey indicates an empty logical key.
	ErrInvalidKey = errors.New("engine: invalid key")
)

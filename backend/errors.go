package backend

import "errors"

var (
	// ErrNotFound indicates no object exists under the requested name.
	ErrNotFound = errors.New("backend: object not found")

	// ErrAlreadyExists indicates a conditional put lost to an existing object.
	ErrAlreadyExists = errors.New("backend: object already exists")

	// ErrUnavailable indicates a transient backend failure (network error,
	// throttling, 5xx). Callers may retry; the chunk store does so with
	// backoff before surfacing it.
	ErrUnavailable = errors.New("backend: service unavailable")

	// ErrInvalidName indicates an empty or malformed object name.
	ErrInvalidName = errors.New("backend: invalid object name")
)

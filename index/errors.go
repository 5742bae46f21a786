package index

import "errors"

var (
	// ErrNotFound indicates a key has no committed version.
	ErrNotFound = errors.New("index: key not found")

	// ErrConflict indicates a concurrent writer already committed the
	// proposed version number. The caller must re-resolve and retry with
	// the next number.
	ErrConflict = errors.New("index: version already committed")

	// ErrCorruptEntry indicates a stored index entry failed to decode.
	ErrCorruptEntry = errors.New("index: corrupt entry")

	// ErrInvalidKey indicates an empty logical key.
	ErrInvalidKey = errors.New("index: invalid key")

	// ErrInvalidVersion indicates a version number of zero or one that
	// does not follow the currently committed version.
	ErrInvalidVersion = errors.New("index: invalid version number")
)

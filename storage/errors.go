package storage

import "errors"

var (
	// ErrIntegrity indicates a fetched chunk's bytes do not hash to the
	// reference that named them. Never retried: retrying would mask
	// backend corruption.
	ErrIntegrity = errors.New("storage: chunk hash mismatch")

	// ErrInvalidChunkSize indicates the chunk size is not a positive integer.
	ErrInvalidChunkSize = errors.New("storage: chunk size must be positive")

	// ErrInvalidRange indicates a requested byte range falls outside the
	// logical object.
	ErrInvalidRange = errors.New("storage: byte range out of bounds")

	// ErrUnsupportedCompression indicates an unknown compression codec,
	// either in configuration or in a stored chunk's header.
	ErrUnsupportedCompression = errors.New("storage: unsupported compression codec")

	// ErrTruncatedChunk indicates a stored chunk object is too short to
	// carry its codec header.
	ErrTruncatedChunk = errors.New("storage: truncated chunk object")
)

package config

import "errors"

var (
	// ErrInvalidBackend indicates the backend name is not recognized.
	ErrInvalidBackend = errors.New("config: invalid backend (must be \"s3\", \"local\", or \"memory\")")

	// ErrEmptyBucket indicates the s3 backend was selected without a bucket.
	ErrEmptyBucket = errors.New("config: bucket must not be empty for the s3 backend")

	// ErrEmptyLocalDir indicates the local backend was selected without a
	// root directory.
	ErrEmptyLocalDir = errors.New("config: localDir must not be empty for the local backend")

	// ErrInvalidChunkSize indicates chunkSizeBytes is not positive.
	ErrInvalidChunkSize = errors.New("config: chunkSizeBytes must be positive")

	// ErrInvalidCacheBudget indicates cacheBudgetBytes is negative.
	ErrInvalidCacheBudget = errors.New("config: cacheBudgetBytes must not be negative")

	// ErrInvalidRetry indicates a retry tunable is out of range.
	ErrInvalidRetry = errors.New("config: retry settings must be positive")

	// ErrInvalidCompression indicates the compression scheme is not
	// recognized.
	ErrInvalidCompression = errors.New("config: invalid compression (must be \"none\", \"gzip\", \"zstd\", or \"lz4\")")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")
)

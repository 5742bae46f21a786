// Package config holds the engine configuration: chunking, caching, retry,
// and backend settings. Values load from a YAML/JSON config file and
// environment variables through viper, then pass validation before any
// component is constructed.
package config

import (
	"time"
)

// Default values for tunables. All of them are engineering choices, not
// protocol constants; changing them never invalidates stored data (the
// chunk codec travels with each stored chunk, and chunk size only affects
// newly written versions).
const (
	DefaultChunkSizeBytes           = 4 << 20
	DefaultCacheBudgetBytes         = 256 << 20
	DefaultMaxRetryAttempts         = 4
	DefaultRetryBackoffBase         = 100 * time.Millisecond
	DefaultCommitConflictRetryLimit = 5
	DefaultCompression              = "zstd"
	DefaultLogLevel                 = "info"
)

// Config is the full engine configuration.
type Config struct {
	// Backend selects the object store: "s3", "local", or "memory".
	Backend string

	// S3 settings (Backend == "s3").
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // non-empty for MinIO and friends

	// LocalDir is the root directory for the "local" backend.
	LocalDir string

	// Chunking and compression.
	ChunkSizeBytes int
	Compression    string // none|gzip|zstd|lz4

	// Cache.
	CacheBudgetBytes int64
	// CachePath, when set, adds a persistent bbolt cache file behind the
	// in-memory LRU.
	CachePath string

	// Retry and concurrency.
	MaxRetryAttempts         int
	RetryBackoffBase         time.Duration
	CommitConflictRetryLimit int
	// OperationTimeout bounds one logical operation end to end. Zero
	// disables the deadline.
	OperationTimeout time.Duration

	LogLevel string
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = "s3"
	}
	if c.ChunkSizeBytes == 0 {
		c.ChunkSizeBytes = DefaultChunkSizeBytes
	}
	if c.Compression == "" {
		c.Compression = DefaultCompression
	}
	if c.CacheBudgetBytes == 0 {
		c.CacheBudgetBytes = DefaultCacheBudgetBytes
	}
	if c.MaxRetryAttempts == 0 {
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.RetryBackoffBase == 0 {
		c.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if c.CommitConflictRetryLimit == 0 {
		c.CommitConflictRetryLimit = DefaultCommitConflictRetryLimit
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

package config

import "strings"

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validCompressions lists the accepted compression schemes.
var validCompressions = map[string]bool{
	"none": true,
	"gzip": true,
	"zstd": true,
	"lz4":  true,
}

// Validate checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
// ApplyDefaults should run first.
func Validate(cfg Config) error {
	switch cfg.Backend {
	case "s3":
		if cfg.Bucket == "" {
			return ErrEmptyBucket
		}
	case "local":
		if cfg.LocalDir == "" {
			return ErrEmptyLocalDir
		}
	case "memory":
	default:
		return ErrInvalidBackend
	}

	if cfg.ChunkSizeBytes <= 0 {
		return ErrInvalidChunkSize
	}
	if cfg.CacheBudgetBytes < 0 {
		return ErrInvalidCacheBudget
	}
	if cfg.MaxRetryAttempts <= 0 || cfg.RetryBackoffBase <= 0 || cfg.CommitConflictRetryLimit <= 0 {
		return ErrInvalidRetry
	}
	if !validCompressions[cfg.Compression] {
		return ErrInvalidCompression
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}
	return nil
}

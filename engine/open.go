package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aqfsorg/libaqfs-go/backend"
	"github.com/aqfsorg/libaqfs-go/cache"
	"github.com/aqfsorg/libaqfs-go/config"
	"github.com/aqfsorg/libaqfs-go/index"
	"github.com/aqfsorg/libaqfs-go/storage"
)

// Open wires a complete engine from configuration: backend, caches, chunk
// store, index. The caller owns the returned engine and must Close it to
// release the on-disk cache, if one is configured.
func Open(cfg config.Config, logger logrus.FieldLogger) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	var b backend.Backend
	var err error
	switch cfg.Backend {
	case "s3":
		b, err = backend.NewS3Backend(backend.S3Config{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
	case "local":
		b, err = backend.NewLocalBackend(cfg.LocalDir)
	case "memory":
		b = backend.NewMemoryBackend()
	default:
		err = config.ErrInvalidBackend
	}
	if err != nil {
		return nil, err
	}

	codec, err := storage.ParseCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	var c cache.Cache = cache.NewLRU(cfg.CacheBudgetBytes)
	var closer func() error
	if cfg.CachePath != "" {
		bolt, err := cache.OpenBoltCache(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("engine: open disk cache: %w", err)
		}
		c = cache.NewTiered(c, bolt)
		closer = bolt.Close
	}

	retry := backend.RetryPolicy{
		MaxAttempts: cfg.MaxRetryAttempts,
		BackoffBase: cfg.RetryBackoffBase,
	}

	store, err := storage.NewStore(b, storage.Options{
		ChunkSize: cfg.ChunkSizeBytes,
		Codec:     codec,
		Cache:     c,
		Retry:     retry,
	})
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}

	idx := index.New(b, index.Options{Cache: c, Retry: retry})

	e := New(store, idx, Options{
		Logger:                   logger,
		CommitConflictRetryLimit: cfg.CommitConflictRetryLimit,
		OperationTimeout:         cfg.OperationTimeout,
	})
	e.closer = closer
	return e, nil
}

// Close releases resources held by Open, such as the on-disk cache.
// Engines constructed directly with New have nothing to release.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

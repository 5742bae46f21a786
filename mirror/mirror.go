// Package mirror synchronizes the live keys of two engines. Reconciliation
// is by modification time: a key missing on one side is copied over, and a
// key present on both sides with different content is settled in favor of
// the newer write. Sync never deletes — tombstones on one side do not
// propagate.
package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aqfsorg/libaqfs-go/engine"
)

// Syncer mirrors keys between two engines in both directions.
type Syncer struct {
	A   *engine.Engine
	B   *engine.Engine
	Log logrus.FieldLogger
}

// New creates a syncer over two engines.
func New(a, b *engine.Engine, log logrus.FieldLogger) *Syncer {
	if log == nil {
		log = logrus.New()
	}
	return &Syncer{A: a, B: b, Log: log}
}

// Sync reconciles both engines. Returns the number of keys copied in
// either direction.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	copiedAB, err := s.syncDirection(ctx, s.A, s.B, "a->b")
	if err != nil {
		return copiedAB, err
	}
	copiedBA, err := s.syncDirection(ctx, s.B, s.A, "b->a")
	return copiedAB + copiedBA, err
}

// syncDirection copies every key that src has and dst lacks, or that src
// wrote more recently than dst.
func (s *Syncer) syncDirection(ctx context.Context, src, dst *engine.Engine, direction string) (int, error) {
	keys, err := src.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("mirror: list source keys: %w", err)
	}

	copied := 0
	for _, key := range keys {
		srcEntry, err := src.Stat(ctx, key)
		if err != nil {
			return copied, fmt.Errorf("mirror: stat source %q: %w", key, err)
		}

		dstEntry, err := dst.Stat(ctx, key)
		switch {
		case errors.Is(err, engine.ErrNotFound):
			// Missing on the destination: copy.
		case err != nil:
			return copied, fmt.Errorf("mirror: stat destination %q: %w", key, err)
		case bytes.Equal(dstEntry.Sum[:], srcEntry.Sum[:]):
			continue // identical content, nothing to do
		case !srcEntry.ModTime.After(dstEntry.ModTime):
			continue // destination is as new or newer
		}

		data, err := src.Read(ctx, key, nil)
		if err != nil {
			return copied, fmt.Errorf("mirror: read %q: %w", key, err)
		}
		version, err := dst.Write(ctx, key, data)
		if err != nil {
			return copied, fmt.Errorf("mirror: write %q: %w", key, err)
		}
		copied++

		s.Log.WithFields(logrus.Fields{
			"key":       key,
			"direction": direction,
			"bytes":     len(data),
			"version":   version,
		}).Info("mirrored key")
	}
	return copied, nil
}

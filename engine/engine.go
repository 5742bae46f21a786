// Package engine is the caller-facing surface of the storage engine. It
// orchestrates the chunk store and the metadata index into atomic,
// optimistically concurrent writes and snapshot-consistent reads.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aqfsorg/libaqfs-go/index"
	"github.com/aqfsorg/libaqfs-go/storage"
)

// DefaultCommitConflictRetryLimit bounds the optimistic-concurrency loop.
const DefaultCommitConflictRetryLimit = 5

// Range selects a byte sub-range of a logical object.
type Range struct {
	Offset int64
	Length int64
}

// Engine ties the chunk store and metadata index together behind the
// write/read/delete API. All methods are safe for concurrent use; nothing
// here holds a lock across a backend call.
type Engine struct {
	store         *storage.Store
	index         *index.Index
	log           logrus.FieldLogger
	conflictLimit int
	opTimeout     time.Duration
	closer        func() error // set by Open for the on-disk cache
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	// Logger receives structured operation logs. Nil means a standard
	// logrus logger.
	Logger logrus.FieldLogger

	// CommitConflictRetryLimit bounds how many times a write re-resolves
	// and re-proposes a version after losing a commit race.
	CommitConflictRetryLimit int

	// OperationTimeout is the total deadline for one logical operation
	// across all its backend round-trips. Zero means no deadline.
	OperationTimeout time.Duration
}

// New creates an engine over an already-constructed chunk store and index.
func New(store *storage.Store, idx *index.Index, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	limit := opts.CommitConflictRetryLimit
	if limit <= 0 {
		limit = DefaultCommitConflictRetryLimit
	}
	return &Engine{
		store:         store,
		index:         idx,
		log:           log,
		conflictLimit: limit,
		opTimeout:     opts.OperationTimeout,
	}
}

// Write stores data under key as a new version and returns the committed
// version number. Chunks are uploaded before any metadata becomes visible,
// so a failure at any point leaves previously committed versions untouched.
// Under contention the commit loops with fresh resolves up to the conflict
// retry limit, then surfaces ErrWriteConflict.
func (e *Engine) Write(ctx context.Context, key string, data []byte) (uint64, error) {
	if key == "" {
		return 0, ErrInvalidKey
	}
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	refs, err := e.store.Put(ctx, data)
	if err != nil {
		return 0, e.wrapErr(err)
	}
	sum := storage.HashBytes(data)

	version, err := e.commitLoop(ctx, key, func(version uint64) *index.Entry {
		return &index.Entry{
			Key:     key,
			Version: version,
			Refs:    refs,
			Size:    int64(len(data)),
			Sum:     sum,
			ModTime: time.Now().UTC(),
		}
	})
	if err != nil {
		return 0, e.wrapErr(err)
	}

	e.log.WithFields(logrus.Fields{
		"key":     key,
		"version": version,
		"bytes":   len(data),
		"chunks":  len(refs),
	}).Info("committed write")
	return version, nil
}

// Read returns the bytes of the current committed version of key, or the
// requested sub-range. The version is pinned at resolve time: a writer
// committing mid-read does not affect the bytes returned. Full reads are
// verified against the entry's whole-object hash.
func (e *Engine) Read(ctx context.Context, key string, rng *Range) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	entry, err := e.resolveLive(ctx, key)
	if err != nil {
		return nil, e.wrapErr(err)
	}

	if rng != nil {
		data, err := e.store.ReadRange(ctx, entry.Refs, rng.Offset, rng.Length)
		return data, e.wrapErr(err)
	}

	data, err := e.store.Get(ctx, entry.Refs)
	if err != nil {
		return nil, e.wrapErr(err)
	}
	if sum := storage.HashBytes(data); !bytes.Equal(sum[:], entry.Sum[:]) {
		return nil, fmt.Errorf("%w: object %q version %d", storage.ErrIntegrity, key, entry.Version)
	}
	return data, nil
}

// Delete removes key by committing a tombstone version. The chunks of
// earlier versions stay in place for readers that already resolved them
// (and for garbage collection to reclaim later). Deleting an absent key
// returns ErrNotFound.
func (e *Engine) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	if _, err := e.resolveLive(ctx, key); err != nil {
		return e.wrapErr(err)
	}

	version, err := e.commitLoop(ctx, key, func(version uint64) *index.Entry {
		return &index.Entry{
			Key:       key,
			Version:   version,
			ModTime:   time.Now().UTC(),
			Tombstone: true,
		}
	})
	if err != nil {
		// A concurrent delete winning the race means the key is gone,
		// which is what the caller asked for.
		if errors.Is(err, errAlreadyDeleted) {
			return nil
		}
		return e.wrapErr(err)
	}

	e.log.WithFields(logrus.Fields{"key": key, "version": version}).Info("committed delete")
	return nil
}

// Stat returns the current committed entry for key without fetching data.
func (e *Engine) Stat(ctx context.Context, key string) (*index.Entry, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	entry, err := e.resolveLive(ctx, key)
	return entry, e.wrapErr(err)
}

// Keys returns all live (non-tombstoned) keys in lexicographic order.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	all, err := e.index.Keys(ctx)
	if err != nil {
		return nil, e.wrapErr(err)
	}
	live := all[:0]
	for _, key := range all {
		entry, err := e.index.Resolve(ctx, key)
		if err != nil {
			return nil, e.wrapErr(err)
		}
		if !entry.Tombstone {
			live = append(live, key)
		}
	}
	return live, nil
}

// Versions returns the committed version numbers of key, ascending.
func (e *Engine) Versions(ctx context.Context, key string) ([]uint64, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	ctx, cancel := e.opCtx(ctx)
	defer cancel()

	versions, err := e.index.Versions(ctx, key)
	return versions, e.wrapErr(err)
}

// errAlreadyDeleted signals inside the delete path that a concurrent
// tombstone won the commit race.
var errAlreadyDeleted = errors.New("engine: concurrently deleted")

// commitLoop is the optimistic-concurrency core shared by Write and
// Delete: resolve the current version, propose the next, attempt the
// conditional commit, and on conflict start over with a fresh resolve.
// build constructs the candidate entry for a proposed version number.
func (e *Engine) commitLoop(ctx context.Context, key string, build func(version uint64) *index.Entry) (uint64, error) {
	for attempt := 0; attempt < e.conflictLimit; attempt++ {
		var next uint64 = 1
		var curTombstone bool
		cur, err := e.index.Resolve(ctx, key)
		switch {
		case err == nil:
			next = cur.Version + 1
			curTombstone = cur.Tombstone
		case errors.Is(err, index.ErrNotFound):
			// First version of a new key.
		default:
			return 0, err
		}

		entry := build(next)
		if entry.Tombstone && curTombstone {
			return 0, errAlreadyDeleted
		}

		err = e.index.Commit(ctx, entry)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, index.ErrConflict) {
			return 0, err
		}
		e.log.WithFields(logrus.Fields{
			"key":     key,
			"version": next,
			"attempt": attempt + 1,
		}).Debug("commit conflict, retrying with fresh resolve")
	}
	return 0, fmt.Errorf("%w: key %q after %d attempts", ErrWriteConflict, key, e.conflictLimit)
}

// resolveLive resolves key and maps tombstones to ErrNotFound.
func (e *Engine) resolveLive(ctx context.Context, key string) (*index.Entry, error) {
	entry, err := e.index.Resolve(ctx, key)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, err
	}
	if entry.Tombstone {
		return nil, fmt.Errorf("%w: %q (deleted)", ErrNotFound, key)
	}
	return entry, nil
}

// opCtx applies the per-operation deadline, if configured.
func (e *Engine) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.opTimeout)
}

// wrapErr maps a deadline expiry onto ErrTimeout so callers can tell a
// slow-but-healthy backend apart from an unavailable one.
func (e *Engine) wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

// Package index maps logical keys to versioned chunk sets. The index is
// itself persisted as small backend objects: one entry object plus one
// commit marker per version. A version exists for readers only once its
// commit marker exists, and the marker is written only after the entry and
// every chunk it references are durable — so readers can never observe a
// half-written version.
package index

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aqfsorg/libaqfs-go/backend"
	"github.com/aqfsorg/libaqfs-go/cache"
)

// Index is the metadata index over a backend. Committed entries are
// immutable, so the cache never needs invalidation; only version discovery
// (the LIST) goes to the backend on every resolve.
type Index struct {
	backend backend.Backend
	cond    backend.ConditionalPutter // nil when the backend lacks the capability
	cache   cache.Cache               // may be nil
	retry   backend.RetryPolicy
}

// Options configures an Index.
type Options struct {
	Cache cache.Cache
	Retry backend.RetryPolicy
}

// New creates an index over the given backend. If the backend implements
// backend.ConditionalPutter, commits use the atomic create-if-absent;
// otherwise they fall back to a list-then-put emulation with a narrow race
// window (two writers racing the same version number inside one round-trip
// can both think they won — acceptable on read-after-write S3, documented
// as the weaker guarantee).
func New(b backend.Backend, opts Options) *Index {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = backend.DefaultRetryPolicy
	}
	cond, _ := b.(backend.ConditionalPutter)
	return &Index{
		backend: b,
		cond:    cond,
		cache:   opts.Cache,
		retry:   opts.Retry,
	}
}

// Resolve returns the entry of the highest committed version of key, or
// ErrNotFound if none exists. Tombstone entries are returned as-is: the
// engine decides whether a tombstone reads as absence, while writers need
// it to pick the next version number.
func (ix *Index) Resolve(ctx context.Context, key string) (*Entry, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	version, ok, err := ix.latestCommitted(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return ix.entry(ctx, key, version)
}

// latestCommitted lists the key's version objects and returns the highest
// version that has a commit marker.
func (ix *Index) latestCommitted(ctx context.Context, key string) (uint64, bool, error) {
	prefix := keyPrefix(key)

	var names []string
	err := backend.Retry(ctx, ix.retry, func() error {
		var err error
		names, err = ix.backend.List(ctx, prefix)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("index: list versions: %w", err)
	}

	var best uint64
	var found bool
	for _, name := range names {
		v, commit, ok := parseVersionName(name, prefix)
		if !ok || !commit {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found, nil
}

// entry fetches and decodes the entry object for (key, version),
// cache-first.
func (ix *Index) entry(ctx context.Context, key string, version uint64) (*Entry, error) {
	name := entryObjectName(key, version)

	if ix.cache != nil {
		if data, ok := ix.cache.Get(name); ok {
			return DecodeEntry(data)
		}
	}

	var data []byte
	err := backend.Retry(ctx, ix.retry, func() error {
		var err error
		data, err = ix.backend.Get(ctx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("index: fetch entry %s: %w", name, err)
	}

	e, err := DecodeEntry(data)
	if err != nil {
		return nil, err
	}
	if e.Key != key || e.Version != version {
		return nil, fmt.Errorf("%w: entry %s names (%q, %d)", ErrCorruptEntry, name, e.Key, e.Version)
	}

	if ix.cache != nil {
		ix.cache.Put(name, data)
	}
	return e, nil
}

// Commit publishes entry as a new version of its key. Both version objects
// are created exclusively, entry first and commit marker last: exactly one
// contender wins each version number, and a loser never touches the
// winner's entry body, so readers of a committed version always see the
// content its winner wrote. Callers must have made every referenced chunk
// durable before committing. Losing either create surfaces ErrConflict.
// A writer that crashes between the two creates reserves its version
// number until garbage collection removes the orphaned entry.
func (ix *Index) Commit(ctx context.Context, entry *Entry) error {
	if entry.Key == "" {
		return ErrInvalidKey
	}
	if entry.Version == 0 {
		return fmt.Errorf("%w: version 0", ErrInvalidVersion)
	}

	data, err := entry.Encode()
	if err != nil {
		return fmt.Errorf("index: encode entry: %w", err)
	}

	entryName := entryObjectName(entry.Key, entry.Version)
	err = ix.createNew(ctx, entryName, data)
	if errors.Is(err, backend.ErrAlreadyExists) {
		return fmt.Errorf("%w: %q version %d", ErrConflict, entry.Key, entry.Version)
	}
	if err != nil {
		return fmt.Errorf("index: write entry: %w", err)
	}

	commitName := commitObjectName(entry.Key, entry.Version)
	err = ix.createNew(ctx, commitName, []byte(formatVersion(entry.Version)))
	if errors.Is(err, backend.ErrAlreadyExists) {
		return fmt.Errorf("%w: %q version %d", ErrConflict, entry.Key, entry.Version)
	}
	if err != nil {
		return fmt.Errorf("index: write commit marker: %w", err)
	}

	if ix.cache != nil {
		ix.cache.Put(entryName, data)
	}
	return nil
}

// createNew writes an object only if it does not already exist, using the
// backend's conditional put when available and the documented list-then-put
// emulation when not. Returns backend.ErrAlreadyExists when the object is
// present.
func (ix *Index) createNew(ctx context.Context, name string, data []byte) error {
	if ix.cond != nil {
		return backend.Retry(ctx, ix.retry, func() error {
			return ix.cond.PutIfAbsent(ctx, name, data)
		})
	}

	// Emulation: check-then-create. A concurrent writer landing between
	// the list and the put goes undetected, so on backends without a
	// conditional create two racers can both think they won and the later
	// entry body prevails — the weaker guarantee such backends get.
	return backend.Retry(ctx, ix.retry, func() error {
		names, err := ix.backend.List(ctx, name)
		if err != nil {
			return err
		}
		for _, n := range names {
			if n == name {
				return backend.ErrAlreadyExists
			}
		}
		return ix.backend.Put(ctx, name, data)
	})
}

// Versions returns the committed version numbers of key in ascending
// order. Tombstone versions are included; diagnostics and garbage
// collection need to see them.
func (ix *Index) Versions(ctx context.Context, key string) ([]uint64, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	prefix := keyPrefix(key)

	var names []string
	err := backend.Retry(ctx, ix.retry, func() error {
		var err error
		names, err = ix.backend.List(ctx, prefix)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("index: list versions: %w", err)
	}

	var versions []uint64
	for _, name := range names {
		v, commit, ok := parseVersionName(name, prefix)
		if ok && commit {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// Keys returns every logical key that has at least one committed version,
// tombstoned or not, in lexicographic order.
func (ix *Index) Keys(ctx context.Context) ([]string, error) {
	var names []string
	err := backend.Retry(ctx, ix.retry, func() error {
		var err error
		names, err = ix.backend.List(ctx, indexPrefix)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("index: list keys: %w", err)
	}

	seen := make(map[string]bool)
	var keys []string
	for _, name := range names {
		if !strings.HasSuffix(name, commitSuffix) {
			continue
		}
		rest := strings.TrimPrefix(name, indexPrefix)
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			continue
		}
		key, err := url.PathUnescape(rest[:slash])
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

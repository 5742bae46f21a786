package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketPayloads = []byte("payloads")

// BoltCache is an on-disk cache backed by a bbolt database. It survives
// process restarts, which keeps warm chunk data out of the backend's
// per-request bill after a restart. Like every cache here it is
// best-effort: any database error degrades to a miss.
//
// BoltCache does not enforce the byte budget itself; it is meant to sit
// behind an LRU via Tiered, with disk growth bounded by backend-level
// cleanup or by deleting the cache file.
type BoltCache struct {
	db *bbolt.DB
}

// OpenBoltCache opens or creates the cache database at path. The parent
// directory is created if it does not exist.
func OpenBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPayloads)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: create bucket: %w", err)
	}

	return &BoltCache{db: db}, nil
}

// Close closes the underlying database.
func (c *BoltCache) Close() error { return c.db.Close() }

// Get returns the cached payload for id.
func (c *BoltCache) Get(id string) ([]byte, bool) {
	var payload []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketPayloads).Get([]byte(id))
		if v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || payload == nil {
		return nil, false
	}
	return payload, true
}

// Put inserts a payload. Errors are swallowed: a failed cache write only
// costs a future backend round-trip.
func (c *BoltCache) Put(id string, payload []byte) {
	_ = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPayloads).Put([]byte(id), payload)
	})
}

// Len reports the number of cached entries.
func (c *BoltCache) Len() int {
	var n int
	_ = c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketPayloads).Stats().KeyN
		return nil
	})
	return n
}

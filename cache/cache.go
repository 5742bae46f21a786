// Package cache provides best-effort, byte-budgeted caching for chunk
// payloads and index entries. Everything cached is immutable (chunks are
// content-addressed, index entries are versioned), so there is no
// invalidation: an entry is either present and correct or absent. A miss
// only ever costs a backend round-trip, never an error.
package cache

import (
	"container/list"
	"sync"
)

// Cache is the interface the chunk store and metadata index cache through.
// Implementations must be safe for concurrent use. Stored payloads are
// shared, not copied: callers must treat returned slices as read-only.
type Cache interface {
	// Get returns the cached payload for id, or (nil, false) on a miss.
	Get(id string) ([]byte, bool)

	// Put inserts a payload. Insertion may silently evict older entries
	// or decline oversized ones.
	Put(id string, payload []byte)
}

// DefaultBudget is the default in-memory cache budget (256 MiB).
const DefaultBudget = 256 << 20

// LRU is a least-recently-used cache bounded by a byte budget. The only
// lock in the whole engine lives here, and it guards nothing but the
// recency list and the map; it is never held across a backend call.
type LRU struct {
	mu     sync.Mutex
	budget int64
	used   int64
	order  *list.List // front = most recent
	items  map[string]*list.Element
}

type lruEntry struct {
	id      string
	payload []byte
}

// NewLRU creates an LRU cache with the given byte budget. A non-positive
// budget falls back to DefaultBudget.
func NewLRU(budget int64) *LRU {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &LRU{
		budget: budget,
		order:  list.New(),
		items:  make(map[string]*list.Element),
	}
}

// Get returns the cached payload for id and marks it recently used.
func (c *LRU) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry).payload, true
}

// Put inserts a payload, evicting least-recently-used entries until the
// budget holds. Payloads larger than the whole budget are declined.
// Re-inserting an existing id only refreshes its recency: cached content
// is immutable, so the bytes cannot have changed.
func (c *LRU) Put(id string, payload []byte) {
	size := int64(len(payload))
	if size > c.budget {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[id]; ok {
		c.order.MoveToFront(elem)
		return
	}

	for c.used+size > c.budget {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*lruEntry)
		c.order.Remove(oldest)
		delete(c.items, entry.id)
		c.used -= int64(len(entry.payload))
	}

	c.items[id] = c.order.PushFront(&lruEntry{id: id, payload: payload})
	c.used += size
}

// Bytes reports the bytes currently held.
func (c *LRU) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Len reports the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

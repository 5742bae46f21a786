package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryBackend implements Backend (and ConditionalPutter) on a map. It is
// the reference implementation used throughout the tests, and doubles as a
// fault injector: FailNextPuts/FailNextGets make the next n calls return
// ErrUnavailable, and Corrupt flips bytes of a stored object in place, the
// way a misbehaving provider would.
type MemoryBackend struct {
	mu      sync.Mutex
	objects map[string][]byte

	failPuts int
	failGets int
	putCount int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

// FailNextPuts makes the next n Put/PutIfAbsent calls fail with
// ErrUnavailable before touching state.
func (b *MemoryBackend) FailNextPuts(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPuts = n
}

// FailNextGets makes the next n Get calls fail with ErrUnavailable.
func (b *MemoryBackend) FailNextGets(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failGets = n
}

// Corrupt flips the last byte of the object stored under name. Returns
// false if no such object exists.
func (b *MemoryBackend) Corrupt(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[name]
	if !ok || len(data) == 0 {
		return false
	}
	data[len(data)-1] ^= 0xFF
	return true
}

// Len returns the number of stored objects.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// PutCount returns how many Put/PutIfAbsent calls reached storage.
func (b *MemoryBackend) PutCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putCount
}

// Put stores a copy of data under name.
func (b *MemoryBackend) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return ErrInvalidName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPuts > 0 {
		b.failPuts--
		return fmt.Errorf("%w: injected put failure", ErrUnavailable)
	}
	b.objects[name] = append([]byte(nil), data...)
	b.putCount++
	return nil
}

// PutIfAbsent stores data under name only if the name is unused.
func (b *MemoryBackend) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return ErrInvalidName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPuts > 0 {
		b.failPuts--
		return fmt.Errorf("%w: injected put failure", ErrUnavailable)
	}
	if _, ok := b.objects[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}
	b.objects[name] = append([]byte(nil), data...)
	b.putCount++
	return nil
}

// Get returns a copy of the object stored under name.
func (b *MemoryBackend) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGets > 0 {
		b.failGets--
		return nil, fmt.Errorf("%w: injected get failure", ErrUnavailable)
	}
	data, ok := b.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the object stored under name, if any.
func (b *MemoryBackend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return ErrInvalidName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, name)
	return nil
}

// List returns all names under prefix in lexicographic order.
func (b *MemoryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name := range b.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

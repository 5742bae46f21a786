package backend

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// LocalBackend implements Backend (and ConditionalPutter) on a local
// directory. Object names map to file paths under the root; the "/" in
// object names becomes a directory separator. Useful for tests, offline
// work, and as the second side of a mirror.
type LocalBackend struct {
	root string
	mu   sync.RWMutex
}

// NewLocalBackend creates a backend rooted at dir, creating it if needed.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty root directory", ErrInvalidName)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("backend: create root: %w", err)
	}
	return &LocalBackend{root: dir}, nil
}

// path maps an object name to its file path, rejecting names that would
// escape the root.
func (b *LocalBackend) path(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(b.root, filepath.FromSlash(name)), nil
}

// Put stores data under name, overwriting any existing file.
func (b *LocalBackend) Put(ctx context.Context, name string, data []byte) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return fmt.Errorf("%w: mkdir: %w", ErrUnavailable, err)
	}
	// Write to a temp file and rename so a crash never leaves a partial
	// object visible.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("%w: write: %w", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrUnavailable, err)
	}
	return nil
}

// PutIfAbsent stores data under name only if the file does not already
// exist. O_CREATE|O_EXCL gives the atomic create-if-absent that plain S3
// lacks.
func (b *LocalBackend) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return fmt.Errorf("%w: mkdir: %w", ErrUnavailable, err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
		}
		return fmt.Errorf("%w: create: %w", ErrUnavailable, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("%w: write: %w", ErrUnavailable, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("%w: close: %w", ErrUnavailable, err)
	}
	return nil
}

// Get retrieves the file stored under name.
func (b *LocalBackend) Get(ctx context.Context, name string) ([]byte, error) {
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: read: %w", ErrUnavailable, err)
	}
	return data, nil
}

// Delete removes the file stored under name. Missing files are not an error.
func (b *LocalBackend) Delete(ctx context.Context, name string) error {
	p, err := b.path(name)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove: %w", ErrUnavailable, err)
	}
	return nil
}

// List walks the root and returns all object names under prefix in
// lexicographic order.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var names []string
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk: %w", ErrUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

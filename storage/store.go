package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aqfsorg/libaqfs-go/backend"
	"github.com/aqfsorg/libaqfs-go/cache"
)

// Store persists logical payloads as content-addressed chunks in a backend
// object store. Splitting is deterministic fixed-size, so writing the same
// bytes twice produces the same chunk set and uploads nothing new.
type Store struct {
	backend   backend.Backend
	cache     cache.Cache // may be nil
	codec     Codec
	chunkSize int
	retry     backend.RetryPolicy
}

// Options configures a Store. Zero values fall back to defaults.
type Options struct {
	ChunkSize int
	Codec     Codec
	Cache     cache.Cache
	Retry     backend.RetryPolicy
}

// NewStore creates a chunk store on top of the given backend.
func NewStore(b backend.Backend, opts Options) (*Store, error) {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkSize < 0 {
		return nil, ErrInvalidChunkSize
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = backend.DefaultRetryPolicy
	}
	return &Store{
		backend:   b,
		cache:     opts.Cache,
		codec:     opts.Codec,
		chunkSize: opts.ChunkSize,
		retry:     opts.Retry,
	}, nil
}

// ChunkSize returns the configured split size.
func (s *Store) ChunkSize() int { return s.chunkSize }

// Put splits payload into chunks and uploads the ones the backend does not
// already hold. Chunk objects are immutable and never overwritten, so
// re-uploading after a partial failure is always safe. Returns the ordered
// reference list spanning the whole payload.
func (s *Store) Put(ctx context.Context, payload []byte) ([]Ref, error) {
	chunks, err := SplitIntoChunks(payload, s.chunkSize)
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(chunks))
	var offset int64
	for _, chunk := range chunks {
		h := HashBytes(chunk)
		refs = append(refs, Ref{Hash: h, Offset: offset, Length: int64(len(chunk))})
		offset += int64(len(chunk))

		if err := s.uploadChunk(ctx, h, chunk); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// uploadChunk stores one chunk unless it is already durable. Presence in
// the cache implies a previous successful upload or fetch, so a cache hit
// skips both the existence check and the upload.
func (s *Store) uploadChunk(ctx context.Context, h Hash, chunk []byte) error {
	name := ChunkObjectName(h)

	if s.cache != nil {
		if _, ok := s.cache.Get(name); ok {
			return nil
		}
	}

	exists, err := s.chunkExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		encoded, err := EncodeChunk(chunk, s.codec)
		if err != nil {
			return err
		}
		err = backend.Retry(ctx, s.retry, func() error {
			return s.backend.Put(ctx, name, encoded)
		})
		if err != nil {
			return fmt.Errorf("storage: upload chunk %s: %w", h.Hex(), err)
		}
	}

	if s.cache != nil {
		s.cache.Put(name, append([]byte(nil), chunk...))
	}
	return nil
}

// chunkExists asks the backend whether a chunk object is present. The
// adapter has no head operation, so a one-name LIST stands in for it.
func (s *Store) chunkExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := backend.Retry(ctx, s.retry, func() error {
		names, err := s.backend.List(ctx, name)
		if err != nil {
			return err
		}
		exists = false
		for _, n := range names {
			if n == name {
				exists = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("storage: check chunk: %w", err)
	}
	return exists, nil
}

// Get fetches every referenced chunk and concatenates them in order.
func (s *Store) Get(ctx context.Context, refs []Ref) ([]byte, error) {
	return s.ReadRange(ctx, refs, 0, totalLength(refs))
}

// ReadRange reads the byte range [offset, offset+length) of the logical
// object described by refs, fetching only the chunks that intersect the
// range and slicing the first and last.
func (s *Store) ReadRange(ctx context.Context, refs []Ref, offset, length int64) ([]byte, error) {
	total := totalLength(refs)
	// Compared as length > total-offset so a hostile offset+length cannot
	// overflow past the bounds check.
	if offset < 0 || length < 0 || offset > total || length > total-offset {
		return nil, fmt.Errorf("%w: offset %d length %d of %d", ErrInvalidRange, offset, length, total)
	}
	if length == 0 {
		return []byte{}, nil
	}

	out := make([]byte, 0, length)
	end := offset + length
	for _, ref := range refs {
		refEnd := ref.Offset + ref.Length
		if refEnd <= offset || ref.Offset >= end {
			continue
		}
		chunk, err := s.fetchChunk(ctx, ref)
		if err != nil {
			return nil, err
		}
		lo := int64(0)
		if offset > ref.Offset {
			lo = offset - ref.Offset
		}
		hi := ref.Length
		if end < refEnd {
			hi = end - ref.Offset
		}
		out = append(out, chunk[lo:hi]...)
	}
	return out, nil
}

// fetchChunk returns the raw bytes of one chunk, cache first. Backend
// fetches are verified against the reference hash before use; a mismatch
// is a data-integrity failure and is never retried. Cached payloads were
// verified on insert and chunks are immutable, so cache hits skip the
// re-hash.
func (s *Store) fetchChunk(ctx context.Context, ref Ref) ([]byte, error) {
	name := ChunkObjectName(ref.Hash)

	if s.cache != nil {
		if payload, ok := s.cache.Get(name); ok {
			return payload, nil
		}
	}

	var stored []byte
	err := backend.Retry(ctx, s.retry, func() error {
		var err error
		stored, err = s.backend.Get(ctx, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: fetch chunk %s: %w", ref.Hash.Hex(), err)
	}

	raw, err := DecodeChunk(stored, ref.Length)
	if err != nil {
		return nil, fmt.Errorf("storage: decode chunk %s: %w", ref.Hash.Hex(), err)
	}
	if got := HashBytes(raw); !bytes.Equal(got[:], ref.Hash[:]) {
		return nil, fmt.Errorf("%w: chunk %s", ErrIntegrity, ref.Hash.Hex())
	}
	if int64(len(raw)) != ref.Length {
		return nil, fmt.Errorf("%w: chunk %s: length %d, reference says %d",
			ErrIntegrity, ref.Hash.Hex(), len(raw), ref.Length)
	}

	if s.cache != nil {
		s.cache.Put(name, raw)
	}
	return raw, nil
}

// totalLength returns the logical object size described by refs.
func totalLength(refs []Ref) int64 {
	var n int64
	for _, ref := range refs {
		n += ref.Length
	}
	return n
}

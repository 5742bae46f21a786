package storage

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqfsorg/libaqfs-go/backend"
	"github.com/aqfsorg/libaqfs-go/cache"
)

// fastRetry keeps test backoffs to microseconds.
var fastRetry = backend.RetryPolicy{MaxAttempts: 3, BackoffBase: time.Microsecond}

// newTestStore creates a store with a small chunk size over a fresh
// memory backend.
func newTestStore(t *testing.T, chunkSize int, c cache.Cache) (*Store, *backend.MemoryBackend) {
	t.Helper()
	b := backend.NewMemoryBackend()
	store, err := NewStore(b, Options{
		ChunkSize: chunkSize,
		Codec:     CodecZstd,
		Cache:     c,
		Retry:     fastRetry,
	})
	require.NoError(t, err)
	return store, b
}

// patternData builds deterministic non-repeating test bytes.
func patternData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 31)
	}
	return data
}

// --- Put / Get round trips ---

func TestStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		dataSize  int
		chunkSize int
	}{
		{"single partial chunk", 10, 64},
		{"exact chunk", 64, 64},
		{"exact multiple", 192, 64},
		{"ten across four", 10, 4}, // the 4+4+2 split, scaled down
		{"one byte", 1, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, tt.chunkSize, nil)
			ctx := context.Background()
			data := patternData(tt.dataSize)

			refs, err := store.Put(ctx, data)
			require.NoError(t, err)

			got, err := store.Get(ctx, refs)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestStore_TenAcrossFourChunkLayout(t *testing.T) {
	store, _ := newTestStore(t, 4, nil)
	ctx := context.Background()

	refs, err := store.Put(ctx, patternData(10))
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Equal(t, int64(4), refs[0].Length)
	assert.Equal(t, int64(4), refs[1].Length)
	assert.Equal(t, int64(2), refs[2].Length)
	assert.Equal(t, int64(0), refs[0].Offset)
	assert.Equal(t, int64(4), refs[1].Offset)
	assert.Equal(t, int64(8), refs[2].Offset)
}

func TestStore_EmptyPayload(t *testing.T) {
	store, b := newTestStore(t, 64, nil)
	ctx := context.Background()

	refs, err := store.Put(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Equal(t, 0, b.Len())

	got, err := store.Get(ctx, refs)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Deduplication ---

func TestStore_DedupSecondWriteUploadsNothing(t *testing.T) {
	store, b := newTestStore(t, 4, nil)
	ctx := context.Background()
	data := patternData(10)

	_, err := store.Put(ctx, data)
	require.NoError(t, err)
	uploads := b.PutCount()
	objects := b.Len()

	refs2, err := store.Put(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, uploads, b.PutCount(), "second write of identical bytes must upload nothing")
	assert.Equal(t, objects, b.Len())

	got, err := store.Get(ctx, refs2)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_DedupSharedChunksAcrossPayloads(t *testing.T) {
	store, b := newTestStore(t, 4, nil)
	ctx := context.Background()

	// Two payloads sharing their first two chunks.
	shared := patternData(8)
	p1 := append(append([]byte(nil), shared...), []byte("11")...)
	p2 := append(append([]byte(nil), shared...), []byte("22")...)

	_, err := store.Put(ctx, p1)
	require.NoError(t, err)
	after1 := b.Len()

	_, err = store.Put(ctx, p2)
	require.NoError(t, err)
	assert.Equal(t, after1+1, b.Len(), "only the differing tail chunk is new")
}

func TestStore_DedupViaCacheSkipsExistenceCheck(t *testing.T) {
	c := cache.NewLRU(1 << 20)
	store, b := newTestStore(t, 64, c)
	ctx := context.Background()
	data := patternData(32)

	_, err := store.Put(ctx, data)
	require.NoError(t, err)

	// With every chunk cached, a re-put needs no backend traffic at all:
	// even injected failures go unnoticed.
	b.FailNextGets(100)
	b.FailNextPuts(100)
	_, err = store.Put(ctx, data)
	require.NoError(t, err)
	b.FailNextGets(0)
	b.FailNextPuts(0)
}

// --- Range reads ---

func TestStore_ReadRange(t *testing.T) {
	store, _ := newTestStore(t, 4, nil)
	ctx := context.Background()
	data := patternData(10)

	refs, err := store.Put(ctx, data)
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset int64
		length int64
	}{
		{"inside first chunk", 1, 2},
		{"spanning two chunks", 3, 4},
		{"exact chunk", 4, 4},
		{"tail", 8, 2},
		{"whole object", 0, 10},
		{"empty range", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ReadRange(ctx, refs, tt.offset, tt.length)
			require.NoError(t, err)
			assert.Equal(t, data[tt.offset:tt.offset+tt.length], got)
		})
	}
}

func TestStore_ReadRangeFetchesOnlyNeededChunks(t *testing.T) {
	store, b := newTestStore(t, 4, nil)
	ctx := context.Background()

	refs, err := store.Put(ctx, patternData(12))
	require.NoError(t, err)

	// Corrupt the first chunk; a read confined to the last chunk must not
	// touch it.
	require.True(t, b.Corrupt(ChunkObjectName(refs[0].Hash)))

	got, err := store.ReadRange(ctx, refs, 8, 4)
	require.NoError(t, err)
	assert.Equal(t, patternData(12)[8:12], got)
}

func TestStore_ReadRangeOutOfBounds(t *testing.T) {
	store, _ := newTestStore(t, 4, nil)
	ctx := context.Background()

	refs, err := store.Put(ctx, patternData(10))
	require.NoError(t, err)

	_, err = store.ReadRange(ctx, refs, 8, 4)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = store.ReadRange(ctx, refs, -1, 2)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = store.ReadRange(ctx, refs, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidRange)

	// offset+length overflowing int64 must not slip past the bounds check.
	_, err = store.ReadRange(ctx, refs, math.MaxInt64-1, 2)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = store.ReadRange(ctx, refs, 2, math.MaxInt64-1)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

// --- Integrity ---

func TestStore_CorruptChunkSurfacesIntegrityError(t *testing.T) {
	// CodecNone so flipping a stored byte yields decodable-but-wrong
	// content rather than a decompression failure.
	b := backend.NewMemoryBackend()
	store, err := NewStore(b, Options{ChunkSize: 4, Codec: CodecNone, Retry: fastRetry})
	require.NoError(t, err)
	ctx := context.Background()
	data := patternData(10)

	refs, err := store.Put(ctx, data)
	require.NoError(t, err)

	require.True(t, b.Corrupt(ChunkObjectName(refs[1].Hash)))

	_, err = store.Get(ctx, refs)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestStore_IntegrityErrorIsNotRetried(t *testing.T) {
	b := backend.NewMemoryBackend()
	store, err := NewStore(b, Options{ChunkSize: 64, Codec: CodecNone, Retry: fastRetry})
	require.NoError(t, err)
	ctx := context.Background()

	refs, err := store.Put(ctx, patternData(16))
	require.NoError(t, err)
	require.True(t, b.Corrupt(ChunkObjectName(refs[0].Hash)))

	// The corrupt flag stays set permanently in the stored object, so a
	// retry would fail identically; what matters is that the error is the
	// integrity sentinel, not exhaustion of the retry budget.
	_, err = store.Get(ctx, refs)
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.NotErrorIs(t, err, backend.ErrUnavailable)
}

// --- Retry behavior ---

func TestStore_PutRetriesTransientFailures(t *testing.T) {
	store, b := newTestStore(t, 64, nil)
	ctx := context.Background()

	b.FailNextPuts(2)
	refs, err := store.Put(ctx, patternData(16))
	require.NoError(t, err)

	got, err := store.Get(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, patternData(16), got)
}

func TestStore_PutSurfacesUnavailableAfterExhaustion(t *testing.T) {
	store, b := newTestStore(t, 64, nil)
	ctx := context.Background()

	b.FailNextPuts(100)
	_, err := store.Put(ctx, patternData(16))
	assert.ErrorIs(t, err, backend.ErrUnavailable)
}

func TestStore_GetRetriesTransientFailures(t *testing.T) {
	store, b := newTestStore(t, 64, nil)
	ctx := context.Background()

	refs, err := store.Put(ctx, patternData(16))
	require.NoError(t, err)

	b.FailNextGets(2)
	got, err := store.Get(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, patternData(16), got)
}

// --- Cache interaction ---

func TestStore_GetServesFromCacheAfterFirstFetch(t *testing.T) {
	c := cache.NewLRU(1 << 20)
	store, b := newTestStore(t, 64, c)
	ctx := context.Background()
	data := patternData(32)

	refs, err := store.Put(ctx, data)
	require.NoError(t, err)

	// Break the backend entirely; the cache must carry the read.
	b.FailNextGets(100)
	got, err := store.Get(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_CachedChunksAreRawBytes(t *testing.T) {
	c := cache.NewLRU(1 << 20)
	store, _ := newTestStore(t, 64, c)
	ctx := context.Background()
	data := patternData(32)

	refs, err := store.Put(ctx, data)
	require.NoError(t, err)

	payload, ok := c.Get(ChunkObjectName(refs[0].Hash))
	require.True(t, ok)
	assert.Equal(t, data, payload, "cache holds uncompressed chunk bytes")
}

// --- Stored object format ---

func TestStore_StoredChunkCarriesCodecByte(t *testing.T) {
	store, b := newTestStore(t, 64, nil)
	ctx := context.Background()

	refs, err := store.Put(ctx, bytes.Repeat([]byte{0xAA}, 40))
	require.NoError(t, err)

	stored, err := b.Get(ctx, ChunkObjectName(refs[0].Hash))
	require.NoError(t, err)
	assert.Equal(t, byte(CodecZstd), stored[0])
}

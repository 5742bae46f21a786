package storage

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// DefaultChunkSize is the default chunk size for content splitting (4 MiB).
const DefaultChunkSize = 4 << 20

// HashSize is the length of a content hash (BLAKE2b-256 output = 32 bytes).
const HashSize = 32

// Hash is a 32-byte BLAKE2b-256 content digest. Chunks are addressed by
// the hash of their raw (uncompressed) bytes, so identical content always
// maps to the same backend object regardless of codec settings.
type Hash [HashSize]byte

// HashBytes computes the content hash of data.
func HashBytes(data []byte) Hash {
	return blake2b.Sum256(data)
}

// Hex returns the lowercase hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// ChunkObjectName returns the backend object name for a chunk hash,
// namespaced under "chunks/".
func ChunkObjectName(h Hash) string {
	return "chunks/" + h.Hex()
}

// Ref describes one chunk's contribution to a logical object: the chunk's
// content hash and the half-open byte range [Offset, Offset+Length) it
// covers. An ordered sequence of Refs reconstructs the object by
// concatenation.
type Ref struct {
	Hash   Hash  `cbor:"1,keyasint"`
	Offset int64 `cbor:"2,keyasint"`
	Length int64 `cbor:"3,keyasint"`
}

// SplitIntoChunks splits data into fixed-size chunks. The last chunk may be
// smaller than chunkSize. Returns an error if chunkSize is not positive.
func SplitIntoChunks(data []byte, chunkSize int) ([][]byte, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if len(data) == 0 {
		return nil, nil
	}
	var chunks [][]byte
	for i := 0; i < len(data); i += chunkSize {
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks, nil
}

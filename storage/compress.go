package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression scheme applied to a stored chunk. The
// codec byte is persisted as a one-byte header on every chunk object, so
// reads work regardless of the writer's configuration. Values are wire
// constants; never renumber.
type Codec byte

const (
	CodecNone Codec = 0
	CodecGzip Codec = 1
	CodecZstd Codec = 2
	CodecLZ4  Codec = 3
)

// ParseCodec maps a configuration string to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return CodecNone, nil
	case "gzip":
		return CodecGzip, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, s)
	}
}

// String returns the configuration spelling of the codec.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", byte(c))
	}
}

// EncodeChunk compresses raw chunk bytes with the codec and prepends the
// codec byte. The result is what lands in the backend.
func EncodeChunk(raw []byte, codec Codec) ([]byte, error) {
	compressed, err := compress(raw, codec)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(compressed))
	out[0] = byte(codec)
	copy(out[1:], compressed)
	return out, nil
}

// DecodeChunk strips the codec header from a stored chunk object and
// decompresses the payload. maxSize bounds the decompressed output as a
// guard against malformed or hostile input; pass the chunk's reference
// length.
func DecodeChunk(stored []byte, maxSize int64) ([]byte, error) {
	if len(stored) < 1 {
		return nil, ErrTruncatedChunk
	}
	return decompress(stored[1:], Codec(stored[0]), maxSize)
}

func compress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZstd:
		w, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		out := w.EncodeAll(data, nil)
		_ = w.Close()
		return out, nil
	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, codec)
	}
}

func decompress(data []byte, codec Codec, maxSize int64) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return readCapped(r, maxSize)
	case CodecZstd:
		// Same allocation cap as readCapped gives the other codecs.
		r, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(maxSize)+1))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.DecodeAll(data, nil)
	case CodecLZ4:
		return readCapped(lz4.NewReader(bytes.NewReader(data)), maxSize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, codec)
	}
}

// readCapped reads at most maxSize+1 bytes; integrity checking above
// rejects anything that does not hash to the reference, so the cap only
// needs to stop unbounded allocation.
func readCapped(r io.Reader, maxSize int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxSize+1))
}

package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeChunk_AllCodecs(t *testing.T) {
	data := bytes.Repeat([]byte("compressible content "), 500)

	for _, codec := range []Codec{CodecNone, CodecGzip, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			encoded, err := EncodeChunk(data, codec)
			require.NoError(t, err)
			assert.Equal(t, byte(codec), encoded[0])

			decoded, err := DecodeChunk(encoded, int64(len(data)))
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestEncodeChunk_CompressionShrinks(t *testing.T) {
	data := bytes.Repeat([]byte{0x55}, 1<<16)

	for _, codec := range []Codec{CodecGzip, CodecZstd, CodecLZ4} {
		encoded, err := EncodeChunk(data, codec)
		require.NoError(t, err)
		assert.Less(t, len(encoded), len(data), codec.String())
	}
}

func TestDecodeChunk_ReadsForeignCodec(t *testing.T) {
	// A store configured for zstd must still read chunks a gzip-configured
	// writer stored: the codec byte travels with the object.
	data := []byte("written under a different configuration")
	encoded, err := EncodeChunk(data, CodecGzip)
	require.NoError(t, err)

	decoded, err := DecodeChunk(encoded, int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestDecodeChunk_CapsDecompressedSize(t *testing.T) {
	// A corrupt or hostile chunk claiming a tiny reference length must not
	// balloon to its full decompressed size: every codec is bounded by
	// maxSize before the hash check ever sees the output.
	data := make([]byte, 10<<20) // 10 MiB of zeros, extremely compressible

	for _, codec := range []Codec{CodecGzip, CodecZstd, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			encoded, err := EncodeChunk(data, codec)
			require.NoError(t, err)

			const maxSize = 10
			decoded, err := DecodeChunk(encoded, maxSize)
			if err == nil {
				assert.LessOrEqual(t, len(decoded), maxSize+1)
			}
		})
	}
}

func TestDecodeChunk_Truncated(t *testing.T) {
	_, err := DecodeChunk(nil, 10)
	assert.ErrorIs(t, err, ErrTruncatedChunk)
}

func TestDecodeChunk_UnknownCodec(t *testing.T) {
	_, err := DecodeChunk([]byte{0x7F, 0x01, 0x02}, 10)
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in   string
		want Codec
	}{
		{"", CodecNone},
		{"none", CodecNone},
		{"gzip", CodecGzip},
		{"zstd", CodecZstd},
		{"lz4", CodecLZ4},
	}
	for _, tt := range tests {
		got, err := ParseCodec(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseCodec("brotli")
	assert.ErrorIs(t, err, ErrUnsupportedCompression)
}

package backend

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Backend_RequiresBucket(t *testing.T) {
	_, err := NewS3Backend(S3Config{})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestNewS3Backend_CustomEndpoint(t *testing.T) {
	b, err := NewS3Backend(S3Config{
		Bucket:   "test",
		Region:   "us-west-2",
		Endpoint: "http://localhost:9000",
	})
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestWrapS3Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"no such key",
			awserr.New(s3.ErrCodeNoSuchKey, "missing", nil),
			ErrNotFound,
		},
		{
			"head-style not found",
			awserr.New("NotFound", "missing", nil),
			ErrNotFound,
		},
		{
			"server error",
			awserr.NewRequestFailure(awserr.New("InternalError", "boom", nil), 500, "req"),
			ErrUnavailable,
		},
		{
			"throttled",
			awserr.NewRequestFailure(awserr.New("SlowDown", "throttled", nil), 503, "req"),
			ErrUnavailable,
		},
		{
			"plain network error",
			errors.New("connection reset"),
			ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, wrapS3Error("GetObject", tt.err), tt.want)
		})
	}
}

func TestWrapS3Error_PermanentRequestFailure(t *testing.T) {
	err := wrapS3Error("GetObject",
		awserr.NewRequestFailure(awserr.New("AccessDenied", "no", nil), 403, "req"))
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, err)
}

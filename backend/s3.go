package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config describes the S3-compatible endpoint an S3Backend talks to.
type S3Config struct {
	Bucket string
	Prefix string // object name prefix inside the bucket, e.g. "aqfs/"
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, Ceph RGW). Empty means real AWS.
	Endpoint string
}

// S3Backend implements Backend on any S3-compatible object store.
// It does not implement ConditionalPutter: the S3 API has no
// create-if-absent primitive, so conditional commits are emulated a
// layer above with a documented race window.
type S3Backend struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Backend creates a backend over the given bucket. Credentials are
// resolved through the standard AWS chain (env, shared config, instance
// role).
func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: empty bucket", ErrInvalidName)
	}

	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		// MinIO and friends do not serve virtual-hosted bucket URLs.
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("backend: create aws session: %w", err)
	}

	return &S3Backend{
		client: s3.New(sess),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put stores data under name.
func (b *S3Backend) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return ErrInvalidName
	}
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return wrapS3Error("PutObject", err)
	}
	return nil
}

// Get retrieves the object stored under name.
func (b *S3Backend) Get(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	out, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + name),
	})
	if err != nil {
		return nil, wrapS3Error("GetObject", err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return data, nil
}

// Delete removes the object stored under name. S3 DeleteObject is already
// idempotent: deleting a missing key succeeds.
func (b *S3Backend) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidName
	}
	_, err := b.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + name),
	})
	if err != nil {
		return wrapS3Error("DeleteObject", err)
	}
	return nil
}

// List returns all object names under prefix, with the backend's own
// configured prefix stripped. S3 lists keys in lexicographic order, which
// List preserves.
func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix + prefix),
	}
	err := b.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				names = append(names, strings.TrimPrefix(aws.StringValue(obj.Key), b.prefix))
			}
			return true
		})
	if err != nil {
		return nil, wrapS3Error("ListObjectsV2", err)
	}
	return names, nil
}

// wrapS3Error maps an aws-sdk error onto the backend error taxonomy.
// Missing keys become ErrNotFound; everything transient (network errors,
// throttling, 5xx) becomes ErrUnavailable so the chunk store's retry loop
// picks it up. Permanent request failures (bad credentials, missing bucket)
// pass through unwrapped so callers do not retry them.
func wrapS3Error(op string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, op)
		}
	}
	if request.IsErrorRetryable(err) || request.IsErrorThrottle(err) {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	var rf awserr.RequestFailure
	if errors.As(err, &rf) {
		if rf.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
		}
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

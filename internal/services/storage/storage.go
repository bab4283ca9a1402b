// Package storage reads and removes recording artifacts in the object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/killallgit/meeting-recorder/internal/services/storage"

// ErrObjectNotFound is returned when the key does not exist in the bucket
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the slice of object storage the recorder needs
type ObjectStore interface {
	Download(ctx context.Context, key, dst string) error
	Delete(ctx context.Context, keys ...string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	EnsureBucket(ctx context.Context) error
}

// MinioStore implements ObjectStore on any S3-compatible service
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioStore connects to the configured bucket. No request is made until first use.
func NewMinioStore(cfg config.StorageConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage client: %w", err)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// ObjectKey turns a path reported by the egress worker into a key of bucket.
// Paths may carry a leading slash or the bucket name.
func ObjectKey(bucket, path string) string {
	key := strings.TrimLeft(path, "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	return key
}

func (s *MinioStore) startSpan(ctx context.Context, op string, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bucket", s.bucket),
			attribute.String("key", key),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Download writes the object to dst, creating parent directories
func (s *MinioStore) Download(ctx context.Context, key, dst string) (err error) {
	key = ObjectKey(s.bucket, key)
	ctx, span := s.startSpan(ctx, "download", key)
	defer func() { endSpan(span, err) }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	if err := s.client.FGetObject(ctx, s.bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	return nil
}

// Delete removes every key; missing objects are not an error
func (s *MinioStore) Delete(ctx context.Context, keys ...string) (err error) {
	ctx, span := s.startSpan(ctx, "delete", strings.Join(keys, ","))
	defer func() { endSpan(span, err) }()

	var errs []error
	for _, k := range keys {
		if k == "" {
			continue
		}
		key := ObjectKey(s.bucket, k)
		if rmErr := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); rmErr != nil && !isNotFound(rmErr) {
			errs = append(errs, fmt.Errorf("deleting %s: %w", key, rmErr))
			continue
		}
		slog.DebugContext(ctx, "Deleted object", "bucket", s.bucket, "key", key)
	}
	return errors.Join(errs...)
}

// PresignGet returns a time-limited download URL
func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (u string, err error) {
	key = ObjectKey(s.bucket, key)
	ctx, span := s.startSpan(ctx, "presign", key)
	defer func() { endSpan(span, err) }()

	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

// EnsureBucket creates the bucket when it is missing
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	slog.InfoContext(ctx, "Created bucket", "bucket", s.bucket)
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}

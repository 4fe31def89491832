package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	// DefaultRetries is the number of retries after a failed upload
	DefaultRetries = 5
	// DefaultMaxElapsed bounds the total time spent retrying an upload
	DefaultMaxElapsed = 30 * time.Second
)

// objectPutter is the part of the minio client used for uploads
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Config locates an S3 compatible bucket
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	// Insecure disables TLS
	Insecure bool
	// Prefix is prepended to every object name
	Prefix  string
	Retries uint64
	Logger  *zap.Logger
}

// S3 uploads exports to an S3 compatible bucket, retrying failed uploads with exponential backoff
type S3 struct {
	client  objectPutter
	bucket  string
	prefix  string
	log     *zap.Logger
	backoff func() backoff.BackOff
}

var _ Uploader = &S3{}

// NewS3 creates an uploader for the bucket described by cfg
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return newS3(client, cfg), nil
}

func newS3(client objectPutter, cfg S3Config) *S3 {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = DefaultRetries
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = DefaultMaxElapsed
			return backoff.WithMaxRetries(b, retries)
		},
	}
}

// Upload puts data in the bucket under the prefixed name
func (s *S3) Upload(ctx context.Context, name string, data []byte) error {
	key := s.prefix + name
	attempt := 0
	put := func() error {
		attempt++
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "text/csv",
		})
		if err != nil {
			s.log.Warn("export upload failed", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}
	if err := backoff.Retry(put, backoff.WithContext(s.backoff(), ctx)); err != nil {
		return fmt.Errorf("s3 put object %s/%s: %w", s.bucket, key, err)
	}
	s.log.Info("export uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(data)), zap.Int("attempts", attempt))
	return nil
}

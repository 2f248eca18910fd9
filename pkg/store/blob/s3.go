package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/config"
	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store persists blobs to an S3-compatible bucket (MinIO included).
type S3Store struct {
	client     *s3.Client
	bucket     string
	pathPrefix string
}

// NewS3Store creates an S3 blob store from storage config and ensures
// the bucket exists.
func NewS3Store(ctx context.Context, cfg *config.StorageConfig) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO requires path-style addressing
		o.UsePathStyle = true
	})

	store := &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		pathPrefix: cfg.PathPrefix,
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "s3 blob store initialized, bucket: %s, endpoint: %s", cfg.Bucket, cfg.Endpoint)
	return store, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	logger.WarnCtx(ctx, "bucket %s not found, attempting to create: %v", s.bucket, err)
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) fullKey(key string) string {
	if s.pathPrefix == "" {
		return key
	}
	return strings.TrimSuffix(s.pathPrefix, "/") + "/" + key
}

// Put writes data under key and returns the stored byte count.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) (int64, error) {
	fullKey := s.fullKey(key)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload object %s: %w", fullKey, err)
	}

	logger.DebugCtx(ctx, "object uploaded, key: %s, size: %d", fullKey, len(data))
	return int64(len(data)), nil
}

// Get reads the object stored under key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey := s.fullKey(key)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download object %s: %w", fullKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body %s: %w", fullKey, err)
	}
	return data, nil
}

// Delete removes the object stored under key.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	fullKey := s.fullKey(key)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fullKey, err)
	}

	logger.DebugCtx(ctx, "object deleted, key: %s", fullKey)
	return nil
}

// Exists reports whether an object is stored under key.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	fullKey := s.fullKey(key)

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", fullKey, err)
	}
	return true, nil
}

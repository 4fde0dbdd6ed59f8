package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	pkgerrors "github.com/spyglassmedia/spyglass/pkg/errors"
)

// ContentStore holds raw result content (NZB files) keyed by an opaque
// key, usually the surrogate result id.
type ContentStore interface {
	Store(ctx context.Context, key string, reader io.Reader) error
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// LocalStore keeps content on the local filesystem.
type LocalStore struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalStore creates a local content store rooted at basePath.
func NewLocalStore(basePath string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStore{
		basePath: basePath,
		logger:   logger,
	}, nil
}

func (s *LocalStore) Store(ctx context.Context, key string, reader io.Reader) error {
	path := filepath.Join(s.basePath, key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (s *LocalStore) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, key)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NotFound(fmt.Sprintf("no content stored for key %s", key))
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path := filepath.Join(s.basePath, key)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return pkgerrors.NotFound(fmt.Sprintf("no content stored for key %s", key))
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	path := filepath.Join(s.basePath, key)

	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// S3Store keeps content in an S3 bucket under an optional prefix.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Store creates an S3-backed content store.
func NewS3Store(ctx context.Context, bucket, prefix, region string, logger *zap.Logger) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *S3Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3Store) Store(ctx context.Context, key string, reader io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   reader,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

func (s *S3Store) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrorTypeNotFound,
			fmt.Sprintf("failed to get content for key %s from S3", key), err)
	}

	return result.Body, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return false, nil
	}

	return true, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
	"github.com/daniel-lxs/bettersubs/internal/config"
)

// s3Store implements BlobStore over any S3-compatible object store.
type s3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects to the configured S3-compatible endpoint and makes
// sure the bucket exists.
func NewS3Store(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
		Region: cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Storage.Bucket, minio.MakeBucketOptions{Region: cfg.Storage.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &s3Store{client: client, bucket: cfg.Storage.Bucket}, nil
}

func (s *s3Store) Put(ctx context.Context, key, content string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key,
		strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
	)
	if err != nil {
		return apperrors.NewInternalError("blob store put", err)
	}
	return nil
}

func (s *s3Store) Get(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", apperrors.NewInternalError("blob store get", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		// GetObject is lazy; a missing key only surfaces on first read.
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", apperrors.NewNotFoundError("subtitle blob", key)
		}
		return "", apperrors.NewInternalError("blob store get", err)
	}
	return string(content), nil
}

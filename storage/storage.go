package storage

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/config"
)

const presignedURLExpiry = 15 * time.Minute

// PhotoStorage stores submitted photos in an S3 compatible bucket and
// hands out short-lived presigned links for viewing them.
type PhotoStorage struct {
	logger *zap.SugaredLogger
	client *minio.Client
	bucket string
}

func NewPhotoStorage(ctx context.Context, logger *zap.SugaredLogger, cfg config.MinioConfig) (*PhotoStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		logger.Infow("Creating bucket", "bucket", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &PhotoStorage{logger: logger, client: client, bucket: cfg.Bucket}, nil
}

func (s *PhotoStorage) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *PhotoStorage) PresignedURL(ctx context.Context, objectKey string) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, presignedURLExpiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

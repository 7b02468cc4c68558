package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"inkgen/config"
)

// MinioStore implements Store with a MinIO client.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore builds a Store from a MinIO client.
func NewMinioStore(client *minio.Client) *MinioStore {
	return &MinioStore{client: client}
}

// PutObject uploads an object to MinIO.
func (s *MinioStore) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts PutOptions) error {
	_, err := s.client.PutObject(ctx, bucket, object, reader, size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	return err
}

// RemoveObject deletes an object from MinIO.
func (s *MinioStore) RemoveObject(ctx context.Context, bucket, object string) error {
	return s.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{})
}

// RemoveObjects deletes every object under a prefix.
func (s *MinioStore) RemoveObjects(ctx context.Context, bucket, prefix string) error {
	objects := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for info := range objects {
		if info.Err != nil {
			return info.Err
		}
		if err := s.client.RemoveObject(ctx, bucket, info.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// PresignedGetObject returns a time-limited signed URL for an object.
func (s *MinioStore) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, bucket, object, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio() {
	client, err := minio.New(fmt.Sprintf("%s:%s", config.AppConfig.MinioHost, config.AppConfig.MinioPort), &minio.Options{
		Creds:  credentials.NewStaticV4(config.AppConfig.MinioUsername, config.AppConfig.MinioPassword, ""),
		Secure: config.AppConfig.MinioUseSSL,
	})
	if err != nil {
		log.Fatalln("minio error:", err)
	}
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.AppConfig.BucketName)
	if err != nil {
		log.Fatalln("check bucket fail:", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.AppConfig.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatalln("create bucket fail:", err)
		}
	}
	Default = NewMinioStore(client)
}

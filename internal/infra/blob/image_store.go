// Package blob stores uploaded room images in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioImageStore stores images in a MinIO bucket under per-room
// prefixes with uuid object names.
type MinioImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// MinioConfig carries the connection settings for the image bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicURL is the base URL clients fetch objects from, e.g.
	// "http://localhost:9000/codingline-images".
	PublicURL string
}

// NewMinioImageStore connects to MinIO and makes sure the bucket exists.
func NewMinioImageStore(ctx context.Context, cfg MinioConfig) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket '%s': %w", cfg.Bucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.Bucket, err)
		}
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func (s *MinioImageStore) Put(ctx context.Context, roomID uint, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	ext := filepath.Ext(fileName)
	objectKey := fmt.Sprintf("rooms/%d/%s%s", roomID, uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image '%s': %w", objectKey, err)
	}
	return s.publicURL + "/" + objectKey, nil
}

func (s *MinioImageStore) Remove(ctx context.Context, imageURL string) error {
	objectKey, ok := strings.CutPrefix(imageURL, s.publicURL+"/")
	if !ok {
		return fmt.Errorf("image URL '%s' does not belong to this store", imageURL)
	}
	err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete image '%s': %w", objectKey, err)
	}
	return nil
}

package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBlobStore archives opaque payloads in object storage, addressed by the
// SHA-256 of their content. Writes are idempotent: the same bytes always land
// at the same key.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// MinioConfig contains connection settings for the blob store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewMinioBlobStore connects to MinIO (or any S3-compatible endpoint) and
// ensures the configured bucket exists.
func NewMinioBlobStore(ctx context.Context, cfg MinioConfig, logger *slog.Logger) (*MinioBlobStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	logger.Info("connected to blob store", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &MinioBlobStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Put stores data and returns its content hash. If an object with the same
// hash already exists the upload is skipped.
func (s *MinioBlobStore) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	objectName := "blobs/" + hash

	if _, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{}); err == nil {
		return hash, nil
	}

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", hash, err)
	}
	return hash, nil
}

// Get fetches archived bytes by content hash.
func (s *MinioBlobStore) Get(ctx context.Context, hash string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, "blobs/"+hash, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", hash, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return data, nil
}

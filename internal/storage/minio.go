package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"listing-admin-api/internal/logger"
	"listing-admin-api/pkg/uid"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds object storage settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL overrides the endpoint in returned URLs, e.g. a CDN.
	PublicURL string
}

// MinioStore stores images in an S3-compatible bucket.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
	log     logger.Logger
}

// NewMinioStore connects to the endpoint and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig, log logger.Logger) (*MinioStore, error) {
	log = log.With("component", "minio")
	log.Info("initializing object storage", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket, "use_ssl", cfg.UseSSL)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("bucket created", "bucket", cfg.Bucket)
	}

	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		base = client.EndpointURL().String()
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: base + "/" + cfg.Bucket + "/",
		log:     log,
	}, nil
}

// objectKey returns photos/<uuid><ext>, keeping the original extension.
func objectKey(fileName string) string {
	return "photos/" + uid.New() + strings.ToLower(filepath.Ext(fileName))
}

// Put uploads the image under a fresh object key.
func (s *MinioStore) Put(ctx context.Context, fileName string, size int64, r io.Reader) (string, error) {
	key := objectKey(fileName)

	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": fileName},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", fileName, s.bucket, err)
	}

	s.log.Debug("image uploaded", "key", info.Key, "size", info.Size, "file", fileName)
	return s.baseURL + key, nil
}

// Delete removes the object behind url.
func (s *MinioStore) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func keyFromURL(baseURL, url string) (string, bool) {
	if !strings.HasPrefix(url, baseURL) {
		return "", false
	}
	key := strings.TrimPrefix(url, baseURL)
	return key, key != ""
}

var _ ImageStore = (*MinioStore)(nil)

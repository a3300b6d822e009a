package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/desertthunder/ytpub/internal/shared"
)

// S3Store reads and writes assets in an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store creates an [S3Store] for cfg. No request is made until the first Open or Put.
func NewS3Store(cfg shared.S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Open accepts "s3://bucket/key" or a bare key in the configured bucket.
func (s *S3Store) Open(ctx context.Context, rawURL string) (*Asset, error) {
	bucket, key := s.locate(rawURL)
	if key == "" {
		return nil, fmt.Errorf("%w: %q has no object key", shared.ErrInvalidAsset, rawURL)
	}

	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: s3://%s/%s does not exist", shared.ErrInvalidAsset, bucket, key)
		}
		return nil, fmt.Errorf("%w: stat s3://%s/%s: %v", shared.ErrInvalidAsset, bucket, key, err)
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get s3://%s/%s: %v", shared.ErrInvalidAsset, bucket, key, err)
	}

	return &Asset{Name: path.Base(key), Size: info.Size, Body: obj}, nil
}

// Put uploads r under a fresh key and returns its s3 URL.
func (s *S3Store) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	key := "revisions/" + shared.GenerateID() + "/" + path.Base(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Store) locate(rawURL string) (bucket, key string) {
	if rest, ok := strings.CutPrefix(rawURL, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		return bucket, key
	}
	return s.bucket, strings.TrimPrefix(rawURL, "/")
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3-compatible bucket such as Cloudflare R2.
type S3Config struct {
	// Endpoint is the API host without scheme. When empty and AccountID is
	// set, the Cloudflare R2 endpoint for that account is used.
	Endpoint        string
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	// PublicURL is the base URL objects are served from.
	PublicURL string
	Insecure  bool
}

// Enabled reports whether enough is configured to build a client.
func (c S3Config) Enabled() bool {
	return (c.Endpoint != "" || c.AccountID != "") &&
		c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

func (c S3Config) endpoint() string {
	if c.Endpoint != "" {
		ep := strings.TrimPrefix(c.Endpoint, "https://")
		return strings.TrimSuffix(strings.TrimPrefix(ep, "http://"), "/")
	}
	return c.AccountID + ".r2.cloudflarestorage.com"
}

func (c S3Config) publicBase() string {
	if c.PublicURL != "" {
		return strings.TrimSuffix(c.PublicURL, "/")
	}
	if c.AccountID != "" {
		return "https://" + c.Bucket + "." + c.AccountID + ".r2.dev"
	}
	scheme := "https://"
	if c.Insecure {
		scheme = "http://"
	}
	return scheme + c.endpoint() + "/" + c.Bucket
}

// S3 uploads objects to a bucket and returns their public URLs.
type S3 struct {
	client *minio.Client
	bucket string
	base   string
}

// NewS3 builds the client. No request is made until the first Put.
func NewS3(cfg S3Config) (*S3, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3: incomplete configuration")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	client, err := minio.New(cfg.endpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: !cfg.Insecure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3{client: client, bucket: cfg.Bucket, base: cfg.publicBase()}, nil
}

func (s *S3) Name() string { return "s3" }

func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.base + "/" + key, nil
}

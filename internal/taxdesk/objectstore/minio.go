// Package objectstore uploads exported reports to an S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// BucketClient is the subset of *minio.Client the uploader needs.
type BucketClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

func EnsureBucket(ctx context.Context, client BucketClient, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", bucket, err)
	}
	return nil
}

// Uploader stores PDF documents as objects in a single bucket.
type Uploader struct {
	client BucketClient
	bucket string
	logger *zap.Logger
}

func NewUploader(client BucketClient, bucket string, logger *zap.Logger) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	return &Uploader{client: client, bucket: bucket, logger: logger.Named("objectstore")}, nil
}

// NewUploaderFromConfig connects to the configured endpoint and makes sure
// the bucket exists.
func NewUploaderFromConfig(ctx context.Context, cfg Config, logger *zap.Logger) (*Uploader, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureBucket(ctx, client, cfg.Bucket, cfg.Region); err != nil {
		return nil, err
	}
	return NewUploader(client, cfg.Bucket, logger)
}

// Put uploads data under name and returns its bucket/key location.
func (u *Uploader) Put(ctx context.Context, name string, data []byte) (string, error) {
	opts := minio.PutObjectOptions{ContentType: pdfContentType}
	info, err := u.client.PutObject(ctx, u.bucket, name, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", err
	}
	u.logger.Debug("object uploaded",
		zap.String("bucket", u.bucket),
		zap.String("key", name),
		zap.String("etag", info.ETag),
	)
	return u.bucket + "/" + name, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/valetdrive/valetdrive/internal/common"
)

// MinioOptions configures the MinIO-backed gateway.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Timeout   time.Duration
}

// MinioGateway implements Gateway with MinIO's native client.
type MinioGateway struct {
	client  *minio.Client
	bucket  string
	timeout time.Duration
}

func NewMinioGateway(opts MinioOptions) (*MinioGateway, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinioGateway{client: client, bucket: opts.Bucket, timeout: opts.Timeout}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (g *MinioGateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}
	if exists {
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}
	return nil
}

func (g *MinioGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *MinioGateway) PresignUpload(ctx context.Context, key string, contentType string, expires time.Duration) (string, error) {
	u, err := g.client.PresignedPutObject(ctx, g.bucket, key, expires)
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}
	return u.String(), nil
}

func (g *MinioGateway) PresignDownload(ctx context.Context, key string, fileName string, expires time.Duration) (string, error) {
	reqParams := make(url.Values)
	if fileName != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, expires, reqParams)
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}
	return u.String(), nil
}

func (g *MinioGateway) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}
	return true, nil
}

func (g *MinioGateway) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var keys []string
	for object := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrUpstreamStorage, object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}

func (g *MinioGateway) Delete(ctx context.Context, key string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}
	return nil
}

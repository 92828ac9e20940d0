package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/valetdrive/valetdrive/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
	listObjectsV2 = func(c *s3.Client, ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return c.ListObjectsV2(ctx, in)
	}
)

// S3Options configures the S3-backed gateway.
type S3Options struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string

	// Timeout bounds each object-store call. Zero disables the bound.
	Timeout time.Duration
}

// S3Gateway implements Gateway against the AWS S3 API. MinIO in S3
// compatibility mode works too.
type S3Gateway struct {
	opts S3Options
}

func NewS3Gateway(opts S3Options) *S3Gateway {
	return &S3Gateway{opts: opts}
}

func (g *S3Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.opts.Timeout)
}

func (g *S3Gateway) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(g.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			g.opts.AccessKey,
			g.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(g.opts.BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (g *S3Gateway) getPresignClient() (*s3.PresignClient, error) {
	client, err := g.getClient()
	if err != nil {
		return nil, err
	}
	return newS3PresignClient(client), nil
}

func (g *S3Gateway) PresignUpload(ctx context.Context, key string, contentType string, expires time.Duration) (string, error) {
	presignClient, err := g.getPresignClient()
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	in := &s3.PutObjectInput{
		Bucket: &g.opts.Bucket,
		Key:    &key,
	}
	if contentType != "" {
		in.ContentType = &contentType
	}

	req, err := presignPutObject(presignClient, ctx, in, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	return req.URL, nil
}

func (g *S3Gateway) PresignDownload(ctx context.Context, key string, fileName string, expires time.Duration) (string, error) {
	presignClient, err := g.getPresignClient()
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	in := &s3.GetObjectInput{
		Bucket: &g.opts.Bucket,
		Key:    &key,
	}
	if fileName != "" {
		disposition := fmt.Sprintf("attachment; filename=%q", fileName)
		in.ResponseContentDisposition = &disposition
	}

	req, err := presignGetObject(presignClient, ctx, in, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	return req.URL, nil
}

func (g *S3Gateway) Exists(ctx context.Context, key string) (bool, error) {
	client, err := g.getClient()
	if err != nil {
		return false, fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err = headObject(client, ctx, &s3.HeadObjectInput{
		Bucket: &g.opts.Bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	return true, nil
}

func (g *S3Gateway) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	client, err := g.getClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var keys []string
	var continuation *string
	for {
		out, err := listObjectsV2(client, ctx, &s3.ListObjectsV2Input{
			Bucket:            &g.opts.Bucket,
			Prefix:            &prefix,
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
		}
		for _, obj := range out.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	return keys, nil
}

func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	client, err := g.getClient()
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &g.opts.Bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrUpstreamStorage, err)
	}

	return nil
}

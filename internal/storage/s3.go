package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/ocrextractor/internal/config"
)

// ErrTooLarge is returned when an object exceeds the caller's size limit.
var ErrTooLarge = errors.New("object exceeds size limit")

// S3Client downloads input documents from S3 or an S3-compatible store.
type S3Client struct {
	client     *s3.Client
	downloader *manager.Downloader
}

// NewS3Client creates a new S3 client from the default AWS chain, with
// static credentials and a custom endpoint when configured.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*S3Client, error) {
	var opts []func(*awscfg.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awscfg.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Client{client: cli, downloader: manager.NewDownloader(cli)}, nil
}

// Fetch downloads bucket/key into memory. maxBytes <= 0 disables the limit.
func (s *S3Client) Fetch(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to stat s3://%s/%s: %w", bucket, key, err)
	}
	size := aws.ToInt64(head.ContentLength)
	if maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("s3://%s/%s is %d bytes: %w", bucket, key, size, ErrTooLarge)
	}

	buf := manager.NewWriteAtBuffer(make([]byte, 0, size))
	n, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("downloaded s3 object")
	return buf.Bytes(), nil
}

// Ping checks that the bucket exists and is reachable with the current credentials.
func (s *S3Client) Ping(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	return err
}

// ParseURL splits s3://bucket/key.
func ParseURL(u string) (bucket, key string, err error) {
	path, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid s3 url: %s", u)
	}
	bucket, key, ok = strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url: %s", u)
	}
	return bucket, key, nil
}

package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rufas/internal/config"
	"rufas/internal/rufas"
)

// Environment variables holding static S3 credentials. When unset, the
// default AWS credential chain is used.
const (
	EnvS3AccessKeyID     = "RUFAS_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "RUFAS_S3_SECRET_ACCESS_KEY"
)

// S3Sink uploads export documents to an S3 bucket under a key prefix.
// Large documents are sent as multipart uploads.
type S3Sink struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Sink wraps an existing client.
func NewS3Sink(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

// NewS3SinkFromConfig loads AWS configuration and builds an S3Sink.
// A custom endpoint switches to path-style addressing for S3-compatible
// servers.
func NewS3SinkFromConfig(ctx context.Context, cfg config.ExportConfig) (*S3Sink, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 export requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if key := os.Getenv(EnvS3AccessKeyID); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, os.Getenv(EnvS3SecretAccessKey), ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Sink(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func (s *S3Sink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads the document and returns its s3:// URL.
func (s *S3Sink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	key := s.key(name)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(name)),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Get downloads a document and copies it to w.
func (s *S3Sink) Get(ctx context.Context, name string, w io.Writer) error {
	key := s.key(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (s *S3Sink) ValidateSetup(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".xml"):
		return "application/xml"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".toon"):
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

var _ rufas.Sink = (*S3Sink)(nil)

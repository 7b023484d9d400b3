package postgres

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/media"
	"github.com/platinummonkey/noticias/pkg/observability"
)

// s3API is the subset of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Client stores uploaded images in an S3 compatible bucket
type S3Client struct {
	client   s3API
	bucket   string
	endpoint string
	baseURL  string
	metrics  *observability.Metrics
}

// NewS3Client creates a client for cfg. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg config.S3Config, metrics *observability.Metrics) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Client(client, cfg, metrics), nil
}

func newS3Client(client s3API, cfg config.S3Config, metrics *observability.Metrics) *S3Client {
	return &S3Client{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		baseURL:  publicBaseURL(cfg),
		metrics:  metrics,
	}
}

func publicBaseURL(cfg config.S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Bucket returns the configured bucket name
func (c *S3Client) Bucket() string { return c.bucket }

// Endpoint returns the configured endpoint, empty for AWS
func (c *S3Client) Endpoint() string { return c.endpoint }

// PutObject uploads data under key
func (c *S3Client) PutObject(ctx context.Context, key string, data []byte, contentType string) (err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "S3.PutObject",
		attribute.String("s3.bucket", c.bucket),
		attribute.String("s3.key", key),
		attribute.String("content.type", contentType),
		attribute.Int("content.size", len(data)),
	)
	defer func() {
		c.metrics.RecordStorageOperation("put", start, err)
		observability.EndSpan(span, err)
	}()

	hash := sha256.Sum256(data)

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"checksum-sha256": hex.EncodeToString(hash[:]),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3: %w", err)
	}
	return nil
}

// DeleteObject removes key from the bucket
func (c *S3Client) DeleteObject(ctx context.Context, key string) (err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "S3.DeleteObject",
		attribute.String("s3.bucket", c.bucket),
		attribute.String("s3.key", key),
	)
	defer func() {
		c.metrics.RecordStorageOperation("delete", start, err)
		observability.EndSpan(span, err)
	}()

	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL returns the URL clients use to fetch key
func (c *S3Client) PublicURL(key string) string {
	return c.baseURL + "/" + key
}

// KeyFromURL extracts the object key from a URL built by PublicURL. Only
// keys under media.KeyPrefix are returned so an article cannot claim an
// object the upload endpoint did not create.
func (c *S3Client) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, c.baseURL+"/")
	if !ok || len(key) <= len(media.KeyPrefix) || !strings.HasPrefix(key, media.KeyPrefix) {
		return "", false
	}
	return key, true
}

// HealthCheck verifies the bucket is reachable
func (c *S3Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet. Used for
// local MinIO setups.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	if _, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err == nil {
		return nil
	}

	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(c.bucket)})
	if err != nil && !isBucketAlreadyExistsError(err) {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func isBucketAlreadyExistsError(err error) bool {
	var exists *types.BucketAlreadyExists
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &exists) || errors.As(err, &owned) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "BucketAlreadyExists") || strings.Contains(msg, "BucketAlreadyOwnedByYou")
}

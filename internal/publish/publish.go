// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish uploads fact exports to S3-compatible object storage.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/pdiddy/cadfacts/internal/facts"
	"github.com/pdiddy/cadfacts/internal/metrics"
	"github.com/pdiddy/cadfacts/pkg/types"
)

// RetryBaseDelay is the first backoff after a throttled upload. It doubles
// on every retry. Tests override it to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const (
	defaultMaxRetries = 5
	defaultRegion     = "us-east-1"
)

// ErrNoBucket is returned when publishing is not configured.
var ErrNoBucket = errors.New("publish bucket not configured")

// ObjectPutter is the part of the S3 client the publisher uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads objects under a key prefix of one bucket.
type Publisher struct {
	client     ObjectPutter
	bucket     string
	prefix     string
	maxRetries int
	logger     *zap.Logger
}

// New builds a publisher backed by an S3 client. Static credentials are
// used when both keys are configured; otherwise the default AWS chain
// applies. A custom endpoint switches to path-style addressing for MinIO
// and similar stores.
func New(ctx context.Context, cfg types.PublishConfig, logger *zap.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, clientOptions(cfg))
	return NewWithClient(client, cfg, logger), nil
}

// clientOptions configures the S3 client. Put owns retries, so the SDK's
// own retryer is disabled.
func clientOptions(cfg types.PublishConfig) func(*s3.Options) {
	return func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg.Endpoint))
			o.UsePathStyle = true
		}
	}
}

// NewWithClient builds a publisher around an existing client.
func NewWithClient(client ObjectPutter, cfg types.PublishConfig, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Publisher{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}

// Key returns the object key for name under the configured prefix.
func (p *Publisher) Key(name string) string {
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Put uploads body as name and returns the object key. Throttled uploads
// (HTTP 429 or 503) are retried with exponential backoff. If ctx is
// cancelled during a backoff wait Put returns ctx.Err().
func (p *Publisher) Put(ctx context.Context, name string, body []byte, contentType string) (string, error) {
	key := p.Key(name)
	for attempt := 0; ; attempt++ {
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(p.bucket),
			Key:           aws.String(key),
			Body:          bytes.NewReader(body),
			ContentLength: aws.Int64(int64(len(body))),
			ContentType:   aws.String(contentType),
		})
		if err == nil {
			metrics.PublishedBytes.Add(float64(len(body)))
			p.logger.Info("published object",
				zap.String("bucket", p.bucket),
				zap.String("key", key),
				zap.Int("bytes", len(body)))
			return key, nil
		}
		if !throttled(err) || attempt >= p.maxRetries {
			return "", fmt.Errorf("uploading s3://%s/%s: %w", p.bucket, key, err)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		p.logger.Warn("upload throttled, retrying",
			zap.String("key", key),
			zap.Duration("backoff", backoff),
			zap.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// throttled reports whether err carries a 429 or 503 HTTP status. The SDK's
// response errors expose the status through HTTPStatusCode.
func throttled(err error) bool {
	var re interface{ HTTPStatusCode() int }
	if !errors.As(err, &re) {
		return false
	}
	code := re.HTTPStatusCode()
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// PublishFacts exports the facts matching opts in format and uploads them
// as <name>.<format>. It returns the object key and the fact count.
func (p *Publisher) PublishFacts(ctx context.Context, s facts.Store, name, format string, opts facts.QueryOptions) (string, int, error) {
	var buf bytes.Buffer
	n, err := facts.Export(ctx, s, &buf, format, opts)
	if err != nil {
		return "", 0, err
	}
	key, err := p.Put(ctx, name+"."+format, buf.Bytes(), contentType(format))
	if err != nil {
		return "", 0, err
	}
	return key, n, nil
}

func contentType(format string) string {
	switch format {
	case facts.FormatJSON:
		return "application/json"
	case facts.FormatNTriples:
		return "application/n-triples"
	default:
		return "application/yaml"
	}
}

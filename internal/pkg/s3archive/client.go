package s3archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
)

// Client writes archived webhook payloads to an S3-compatible bucket.
type Client struct {
	s3Client *s3.Client
	cfg      config.ArchiveConfig
}

// NewClient builds the client and verifies the bucket. Outside production a
// missing bucket is created.
func NewClient(ctx context.Context, cfg config.ArchiveConfig, createMissing bool) (*Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("webhook archive is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			// S3-compatible providers (MinIO, B2) need path-style URLs
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	c := &Client{s3Client: s3Client, cfg: cfg}
	if err := c.ensureBucket(ctx, createMissing); err != nil {
		return nil, err
	}

	log.Infof("[S3Archive] Archiving webhook events to bucket %s", cfg.BucketName)
	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context, createMissing bool) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.cfg.BucketName),
	})
	if err == nil {
		return nil
	}
	if !createMissing {
		return fmt.Errorf("bucket %s not accessible: %w", c.cfg.BucketName, err)
	}

	log.Warnf("[S3Archive] Bucket %s not found, attempting to create it", c.cfg.BucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(c.cfg.BucketName)}
	if c.cfg.EndpointURL == "" && c.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.cfg.Region),
		}
	}
	if _, err := c.s3Client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.cfg.BucketName, err)
	}
	return nil
}

// PutObject stores body under key.
func (c *Client) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", c.cfg.BucketName, key, err)
	}
	return nil
}

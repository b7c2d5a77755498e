package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// S3API is the subset of the S3 client used by the S3 cache.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures an S3 cache.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // custom endpoint (MinIO and similar); enables path-style addressing
	Logger   *slog.Logger
}

// S3 stores one JSON object per build in an S3-compatible bucket. It is
// meant to be the last tier of a Composite, shared between machines.
type S3 struct {
	client S3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// A non-empty endpoint switches to path-style addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3 creates an S3 cache using the default AWS credential chain.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	client, err := NewS3Client(ctx, opts.Region, opts.Endpoint)
	if err != nil {
		return nil, err
	}

	c := NewS3WithClient(client, opts.Bucket, opts.Prefix)
	if opts.Logger != nil {
		c.logger = opts.Logger
	}
	return c, nil
}

// NewS3WithClient creates an S3 cache backed by an existing client.
func NewS3WithClient(client S3API, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default(),
	}
}

// Key returns the object key for a build id, partitioned like the
// filesystem cache.
func (c *S3) Key(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	partition := id
	if len(id) > DefaultGranularity {
		partition = id[:DefaultGranularity]
	}
	return path.Join(c.prefix, partition, id+".json"), nil
}

func (c *S3) Load(ctx context.Context, id string, required model.ModelSet) (*model.Build, bool, error) {
	key, err := c.Key(id)
	if err != nil {
		c.logger.Warn("ignoring cache lookup", "build_id", id, "err", err)
		return nil, false, nil
	}
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("s3 get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("s3 read object %s: %w", key, err)
	}

	var b model.Build
	if err := json.Unmarshal(data, &b); err != nil || b.ID != id {
		c.logger.Warn("removing unreadable cache object", "build_id", id, "key", key, "err", err)
		if _, delErr := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		}); delErr != nil {
			c.logger.Warn("removing cache object failed", "key", key, "err", delErr)
		}
		return nil, false, nil
	}
	if !b.Satisfies(required) {
		return nil, false, nil
	}
	return &b, true, nil
}

func (c *S3) Save(ctx context.Context, b *model.Build) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encoding build %s: %w", b.ID, err)
	}
	key, err := c.Key(b.ID)
	if err != nil {
		return err
	}
	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}

package sync

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/buildproc/internal/cache"
)

// objectPutter is the part of the S3 client used for exports.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Destination uploads each export to a fixed key, overwriting the
// previous one. With snapshots enabled a dated copy is kept alongside.
type S3Destination struct {
	client    objectPutter
	bucket    string
	key       string
	snapshots bool
	now       func() time.Time
}

// NewS3Destination creates an S3 destination sharing the cache tier's
// client setup.
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	client, err := cache.NewS3Client(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	return &S3Destination{client: client, bucket: bucket, key: key, now: time.Now}, nil
}

// WithSnapshots also writes every export to a timestamped key next to the
// main one, e.g. builds.jsonl -> builds-20260301T100000Z.jsonl.
func (d *S3Destination) WithSnapshots() *S3Destination {
	d.snapshots = true
	return d
}

func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	if err := d.put(ctx, d.key, data); err != nil {
		return err
	}
	if d.snapshots {
		return d.put(ctx, snapshotKey(d.key, d.now()), data)
	}
	return nil
}

func (d *S3Destination) put(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s/%s: %w", d.bucket, key, err)
	}
	return nil
}

func snapshotKey(key string, t time.Time) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "-" + t.UTC().Format("20060102T150405Z") + ext
}

// Package s3archive stores flushed security-event batches in S3 as gzip
// compressed JSON Lines objects for long-term retention.
package s3archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	audit "ingestgate/pkg/platform/audit"
)

// PutObjectAPI is the subset of *s3.Client the archive needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archive struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

type Option func(*Archive)

func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

func New(client PutObjectAPI, bucket, prefix string, opts ...Option) *Archive {
	a := &Archive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewClient loads the default AWS credential chain for region.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Write uploads the batch as a single object under
// <prefix>/YYYY/MM/DD/HH/<uuid>.jsonl.gz.
func (a *Archive) Write(ctx context.Context, events []audit.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}
	body, err := encodeBatch(events)
	if err != nil {
		return err
	}
	key := a.objectKey()
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return fmt.Errorf("put archive object %s: %w", key, err)
	}
	return nil
}

func (a *Archive) objectKey() string {
	name := a.now().UTC().Format("2006/01/02/15") + "/" + uuid.NewString() + ".jsonl.gz"
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

func encodeBatch(events []audit.SecurityEvent) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	for _, e := range events {
		if err := enc.Encode(e.Record()); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("encode archive line: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive gzip: %w", err)
	}
	return buf.Bytes(), nil
}

package batch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// OutputSink writes a batch run's summary/patch artifacts to their final
// destination. A plain directory path writes to local disk; an "s3://"
// output_dir writes to an S3-compatible bucket instead, grounded on the
// teacher's internal/artifacts.S3Store (same client construction, same
// key-prefix convention).
type OutputSink interface {
	Write(ctx context.Context, relativePath string, data []byte) error
}

// LocalSink writes files under a root directory on local disk.
type LocalSink struct {
	Root string
}

func (s LocalSink) Write(ctx context.Context, relativePath string, data []byte) error {
	full := filepath.Join(s.Root, relativePath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

// S3Sink writes files to an S3-compatible bucket under a key prefix.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink builds an S3Sink from an "s3://bucket/prefix" output_dir URL.
func NewS3Sink(ctx context.Context, outputDir string) (*S3Sink, error) {
	bucket, prefix, err := parseS3URL(outputDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Sink{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *S3Sink) Write(ctx context.Context, relativePath string, data []byte) error {
	key := relativePath
	if s.prefix != "" {
		key = strings.TrimSuffix(s.prefix, "/") + "/" + relativePath
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func parseS3URL(outputDir string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(outputDir, "s3://")
	if rest == outputDir {
		return "", "", fmt.Errorf("not an s3:// output_dir: %s", outputDir)
	}
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in s3 output_dir: %s", outputDir)
	}
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix, nil
}

// NewOutputSink resolves outputDir to the appropriate sink, per §6's
// output_dir field — a plain path for local disk, or an "s3://" URL for
// bucket-backed storage of larger batch runs.
func NewOutputSink(ctx context.Context, outputDir string) (OutputSink, error) {
	if strings.HasPrefix(outputDir, "s3://") {
		return NewS3Sink(ctx, outputDir)
	}
	return LocalSink{Root: outputDir}, nil
}

package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalSinkWriteCreatesNestedDirs(t *testing.T) {
	dir := t.TempDir()
	sink := LocalSink{Root: dir}

	if err := sink.Write(context.Background(), "patches/task-1.diff", []byte("diff content")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "patches", "task-1.diff"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(got) != "diff content" {
		t.Fatalf("unexpected file content: %q", got)
	}
}

func TestParseS3URLSplitsBucketAndPrefix(t *testing.T) {
	bucket, prefix, err := parseS3URL("s3://my-bucket/exp-1/runs")
	if err != nil {
		t.Fatalf("parseS3URL: %v", err)
	}
	if bucket != "my-bucket" {
		t.Fatalf("unexpected bucket: %s", bucket)
	}
	if prefix != "exp-1/runs" {
		t.Fatalf("unexpected prefix: %s", prefix)
	}
}

func TestParseS3URLWithoutPrefix(t *testing.T) {
	bucket, prefix, err := parseS3URL("s3://my-bucket")
	if err != nil {
		t.Fatalf("parseS3URL: %v", err)
	}
	if bucket != "my-bucket" || prefix != "" {
		t.Fatalf("unexpected result: bucket=%s prefix=%s", bucket, prefix)
	}
}

func TestParseS3URLRejectsNonS3Input(t *testing.T) {
	if _, _, err := parseS3URL("/local/path"); err == nil {
		t.Fatal("expected an error for a non-s3:// output_dir")
	}
}

func TestParseS3URLRejectsMissingBucket(t *testing.T) {
	if _, _, err := parseS3URL("s3:///prefix-only"); err == nil {
		t.Fatal("expected an error for a missing bucket")
	}
}

func TestNewOutputSinkReturnsLocalSinkForPlainPath(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewOutputSink(context.Background(), dir)
	if err != nil {
		t.Fatalf("NewOutputSink: %v", err)
	}
	if _, ok := sink.(LocalSink); !ok {
		t.Fatalf("expected a LocalSink for a plain path, got %T", sink)
	}
}

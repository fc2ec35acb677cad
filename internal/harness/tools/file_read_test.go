package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestReadToolExecuteReadsFile(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "hello.txt"), []byte("hi there"), 0o644); err != nil {
		t.Fatal(err)
	}
	tool := NewReadTool(workspace)

	result, err := tool.Execute(context.Background(), map[string]any{"path": "hello.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}
	if result.Content != "hi there" {
		t.Fatalf("unexpected content: %s", result.Content)
	}
}

func TestReadToolExecuteMissingFile(t *testing.T) {
	tool := NewReadTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"path": "nope.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for a missing file")
	}
}

func TestReadToolExecuteRejectsEscape(t *testing.T) {
	tool := NewReadTool(t.TempDir())
	result, err := tool.Execute(context.Background(), map[string]any{"path": "../outside.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for a path that escapes the workspace")
	}
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteTool implements file_write(path, content) (4.B): creates parent
// directories, writes (overwrites) the file. Grounded on
// internal/tools/files/write.go, simplified to drop the teacher's append
// flag since the spec names only overwrite semantics.
type WriteTool struct {
	resolver Resolver
}

func NewWriteTool(workspace string) *WriteTool {
	return &WriteTool{resolver: Resolver{Root: workspace}}
}

func (t *WriteTool) Name() string        { return "file_write" }
func (t *WriteTool) Description() string { return "Write content to a file, creating parent directories as needed." }

type writeArgs struct {
	Path    string `json:"path" jsonschema:"required,description=Path to the file (relative to workspace)."`
	Content string `json:"content" jsonschema:"required,description=Content to write."`
}

func (t *WriteTool) Schema() json.RawMessage { return GenerateSchema(writeArgs{}) }

func (t *WriteTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return &ToolResult{Content: "Error: " + err.Error(), IsError: true}, nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: create parent directories: %v", err), IsError: true}, nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: write file: %v", err), IsError: true}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path)}, nil
}

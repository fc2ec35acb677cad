package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ReadTool implements file_read(path) (4.B), grounded on
// internal/tools/files/read.go. The spec's file_read has no offset/max_bytes
// parameters (unlike the teacher's ReadTool); this simplifies to a whole-file
// read matching the literal spec behavior: "Reads workspace/path; returns
// contents or an error-prefixed message if missing."
type ReadTool struct {
	resolver Resolver
}

func NewReadTool(workspace string) *ReadTool {
	return &ReadTool{resolver: Resolver{Root: workspace}}
}

func (t *ReadTool) Name() string        { return "file_read" }
func (t *ReadTool) Description() string { return "Read a file from the workspace." }

type readArgs struct {
	Path string `json:"path" jsonschema:"required,description=Path to the file (relative to workspace)."`
}

func (t *ReadTool) Schema() json.RawMessage { return GenerateSchema(readArgs{}) }

func (t *ReadTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	path, _ := args["path"].(string)
	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return &ToolResult{Content: "Error: " + err.Error(), IsError: true}, nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: file not found: %s", path), IsError: true}, nil
	}
	return &ToolResult{Content: string(data)}, nil
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// EditTool implements file_edit(path, old_string, new_string) (4.B).
// Grounded on internal/tools/files/edit.go's Resolver+JSON-schema+
// os.ReadFile/WriteFile shape, but the WHAT is replaced: the teacher's
// EditTool takes an edits array and replaces the first occurrence
// (non-unique) unless replace_all is set. This tool instead takes a single
// old_string/new_string pair and enforces the uniqueness constraint the
// spec describes as "a deliberate safety policy, not an accident": it
// fails if old_string is absent or appears more than once.
type EditTool struct {
	resolver Resolver
}

func NewEditTool(workspace string) *EditTool {
	return &EditTool{resolver: Resolver{Root: workspace}}
}

func (t *EditTool) Name() string { return "file_edit" }
func (t *EditTool) Description() string {
	return "Replace a unique occurrence of old_string with new_string in a file."
}

type editArgs struct {
	Path      string `json:"path" jsonschema:"required,description=Path to the file (relative to workspace)."`
	OldString string `json:"old_string" jsonschema:"required,description=Exact text to find; must be unique in the file."`
	NewString string `json:"new_string" jsonschema:"required,description=Replacement text."`
}

func (t *EditTool) Schema() json.RawMessage { return GenerateSchema(editArgs{}) }

func (t *EditTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	path, _ := args["path"].(string)
	oldString, _ := args["old_string"].(string)
	newString, _ := args["new_string"].(string)

	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return &ToolResult{Content: "Error: " + err.Error(), IsError: true}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: file not found: %s", path), IsError: true}, nil
	}
	content := string(data)

	count := strings.Count(content, oldString)
	if count == 0 {
		return &ToolResult{Content: fmt.Sprintf("Error: old_string not found in %s", path), IsError: true}, nil
	}
	if count > 1 {
		return &ToolResult{Content: fmt.Sprintf(
			"Error: old_string found %d times in %s. Provide more surrounding context to make it unique.", count, path,
		), IsError: true}, nil
	}

	updated := strings.Replace(content, oldString, newString, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: write file: %v", err), IsError: true}, nil
	}
	return &ToolResult{Content: fmt.Sprintf("Successfully edited %s", path)}, nil
}

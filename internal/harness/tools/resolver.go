package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolver confines relative tool paths to a workspace root, grounded on
// internal/tools/files/resolver.go.
type Resolver struct {
	Root string
}

// Resolve cleans and joins path against Root, rejecting any path that
// escapes the workspace.
func (r Resolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	joined := filepath.Join(r.Root, path)
	rel, err := filepath.Rel(r.Root, joined)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace", path)
	}
	return joined, nil
}

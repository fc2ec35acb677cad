package tools

import (
	"path/filepath"
	"testing"
)

func TestResolverResolveJoinsWithinRoot(t *testing.T) {
	r := Resolver{Root: "/workspace"}
	got, err := r.Resolve("src/app.py")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join("/workspace", "src/app.py"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestResolverResolveRejectsEscape(t *testing.T) {
	r := Resolver{Root: "/workspace"}
	if _, err := r.Resolve("../etc/passwd"); err == nil {
		t.Fatal("expected an error for a path that escapes the workspace")
	}
}

func TestResolverResolveRejectsEmptyPath(t *testing.T) {
	r := Resolver{Root: "/workspace"}
	if _, err := r.Resolve(""); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestResolverResolveAllowsNestedTraversalThatStaysInside(t *testing.T) {
	r := Resolver{Root: "/workspace"}
	got, err := r.Resolve("a/../b/file.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join("/workspace", "b/file.txt"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

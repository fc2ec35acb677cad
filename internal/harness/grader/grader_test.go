package grader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePatch = `diff --git a/src/app.py b/src/app.py
index 1234567..89abcde 100644
--- a/src/app.py
+++ b/src/app.py
@@ -1,3 +1,4 @@
 def add(a, b):
+    # fixed
     return a + b
diff --git a/tests/test_app.py b/tests/test_app.py
index aaa..bbb 100644
--- a/tests/test_app.py
+++ b/tests/test_app.py
@@ -1,2 +1,3 @@
 def test_add():
+    assert add(1, 2) == 3
     pass
diff --git a/conftest.py b/conftest.py
index ccc..ddd 100644
--- a/conftest.py
+++ b/conftest.py
@@ -1 +1,2 @@
 import pytest
+pytest.fixture
`

func TestFilterPatchDropsTestHunks(t *testing.T) {
	filtered := FilterPatch(samplePatch)

	if !strings.Contains(filtered, "src/app.py") {
		t.Fatal("expected the source-file hunk to survive filtering")
	}
	if strings.Contains(filtered, "tests/test_app.py") {
		t.Fatal("expected the tests/ hunk to be dropped")
	}
	if strings.Contains(filtered, "conftest.py") {
		t.Fatal("expected the conftest.py hunk to be dropped")
	}
}

func TestFilterPatchEmptyInput(t *testing.T) {
	if got := FilterPatch(""); got != "" {
		t.Fatalf("expected empty output for empty input, got %q", got)
	}
}

func TestIsTestPath(t *testing.T) {
	cases := map[string]bool{
		"src/app.py":          false,
		"tests/test_app.py":   true,
		"test_app.py":         true,
		"app_test.py":         true,
		"foo/bar_test.py":     true,
		"conftest.py":         true,
		"a/testing/helper.py": true,
		"a/contest/helper.py": false,
	}
	for path, want := range cases {
		if got := isTestPath(path); got != want {
			t.Errorf("isTestPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestBuildPredictionsReadsDiffFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "task-1.diff"), []byte(samplePatch), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not a diff"), 0o644); err != nil {
		t.Fatal(err)
	}

	preds, err := BuildPredictions(dir, "agentverify-run")
	if err != nil {
		t.Fatalf("BuildPredictions: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("expected exactly 1 prediction, got %d", len(preds))
	}
	if preds[0].InstanceID != "task-1" {
		t.Fatalf("unexpected instance id: %s", preds[0].InstanceID)
	}
	if preds[0].ModelNameOrPath != "agentverify-run" {
		t.Fatalf("unexpected model_name_or_path: %s", preds[0].ModelNameOrPath)
	}
	if strings.Contains(preds[0].ModelPatch, "tests/test_app.py") {
		t.Fatal("expected the written prediction's patch to be filtered")
	}
}

func TestWritePredictionsWritesValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "predictions.json")
	preds := []Prediction{{InstanceID: "a", ModelNameOrPath: "m", ModelPatch: "diff"}}

	if err := WritePredictions(preds, path); err != nil {
		t.Fatalf("WritePredictions: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"instance_id": "a"`) {
		t.Fatalf("unexpected predictions document: %s", data)
	}
}

func TestScrubbedEnvRemovesVirtualEnvAndVenvSegments(t *testing.T) {
	env := []string{
		"VIRTUAL_ENV=/home/user/.venv",
		"PATH=/home/user/.venv/bin:/usr/bin:/usr/local/bin",
		"PYTHONPATH=/home/user/.venv/lib/site-packages:/opt/app",
		"HOME=/home/user",
	}
	scrubbed := scrubbedEnv(env)

	for _, kv := range scrubbed {
		if strings.HasPrefix(kv, "VIRTUAL_ENV=") {
			t.Fatal("expected VIRTUAL_ENV to be removed entirely")
		}
	}
	var sawHome bool
	for _, kv := range scrubbed {
		if kv == "HOME=/home/user" {
			sawHome = true
		}
		if strings.HasPrefix(kv, "PATH=") && strings.Contains(kv, ".venv") {
			t.Fatalf("expected .venv segments stripped from PATH, got %s", kv)
		}
		if strings.HasPrefix(kv, "PYTHONPATH=") && strings.Contains(kv, "site-packages") {
			t.Fatalf("expected site-packages segments stripped from PYTHONPATH, got %s", kv)
		}
	}
	if !sawHome {
		t.Fatal("expected unrelated environment variables to pass through untouched")
	}
}

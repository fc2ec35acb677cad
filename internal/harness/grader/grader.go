// Package grader implements the post-hoc, external-container grader adapter
// of 4.I: diff filtering, predictions-document construction, and the
// scrubbed subprocess invocation of the container grader.
package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Prediction is one task's entry in the predictions document consumed by
// the external grader (§6 "Predictions document").
type Prediction struct {
	InstanceID      string `json:"instance_id"`
	ModelNameOrPath string `json:"model_name_or_path"`
	ModelPatch      string `json:"model_patch"`
}

// testPathSegments names the path components that mark a diff hunk as
// test-only, per §4.I: "any segment equals tests, test, or testing".
var testPathSegments = map[string]bool{"tests": true, "test": true, "testing": true}

// isTestPath reports whether a unified-diff touched path looks like test
// code, matching §4.I's rule exactly: basename starts with test_ or ends
// with _test.py; any path segment equals tests/test/testing; or the
// basename is conftest.py.
func isTestPath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") {
		return true
	}
	if base == "conftest.py" {
		return true
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if testPathSegments[seg] {
			return true
		}
	}
	return false
}

// FilterPatch strips every hunk of a unified diff whose touched path looks
// like a test, by splitting on "diff --git" headers (§4.I). The diff is
// expected in the standard `diff --git a/<path> b/<path>` form.
func FilterPatch(diff string) string {
	if diff == "" {
		return ""
	}
	const marker = "diff --git "
	chunks := strings.Split(diff, marker)

	var out strings.Builder
	// chunks[0] is whatever precedes the first "diff --git " (usually empty).
	out.WriteString(chunks[0])
	for _, chunk := range chunks[1:] {
		headerLine, _, _ := strings.Cut(chunk, "\n")
		path := extractDiffPath(headerLine)
		if isTestPath(path) {
			continue
		}
		out.WriteString(marker)
		out.WriteString(chunk)
	}
	return out.String()
}

// extractDiffPath pulls the "b/<path>" side out of a `diff --git a/x b/x`
// header line (the header text that follows the split marker).
func extractDiffPath(headerLine string) string {
	fields := strings.Fields(headerLine)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.HasPrefix(fields[i], "b/") {
			return strings.TrimPrefix(fields[i], "b/")
		}
	}
	if len(fields) > 0 {
		return strings.TrimPrefix(fields[len(fields)-1], "a/")
	}
	return ""
}

// BuildPredictions reads every "{task-id}.diff" file in patchDir, filters
// it to source-only changes, and returns the predictions document (§4.I).
func BuildPredictions(patchDir, runName string) ([]Prediction, error) {
	entries, err := os.ReadDir(patchDir)
	if err != nil {
		return nil, fmt.Errorf("read patch dir: %w", err)
	}

	var preds []Prediction
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".diff") {
			continue
		}
		taskID := strings.TrimSuffix(e.Name(), ".diff")
		raw, err := os.ReadFile(filepath.Join(patchDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read patch %s: %w", e.Name(), err)
		}
		preds = append(preds, Prediction{
			InstanceID:      taskID,
			ModelNameOrPath: runName,
			ModelPatch:      FilterPatch(string(raw)),
		})
	}
	return preds, nil
}

// WritePredictions marshals preds to path as a JSON array (§6 "Predictions
// document... a JSON array of {instance_id, model_name_or_path,
// model_patch} objects").
func WritePredictions(preds []Prediction, path string) error {
	data, err := json.MarshalIndent(preds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Options configures a grader subprocess invocation (§4.I / §6).
type Options struct {
	GraderCommand    string // path to the external container grader binary
	PredictionsPath  string
	DatasetName      string
	RunID            string
	MaxWorkers       int
	CacheLevel       string // default "env"
	TimeoutSeconds   int
	ReportDir        string
}

// Invoke runs the external container grader as a subprocess, with PATH and
// PYTHONPATH scrubbed of ambient virtual-environment indicators first
// (§6/§12: "strips VIRTUAL_ENV, and any PATH/PYTHONPATH segment containing
// .venv or site-packages, before the grader subprocess is invoked") so the
// grader's own container does not pick up this process's Python
// environment or bytecode cache.
func Invoke(ctx context.Context, opts Options) ([]byte, error) {
	if opts.CacheLevel == "" {
		opts.CacheLevel = "env"
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}

	args := []string{
		"--predictions_path", opts.PredictionsPath,
		"--dataset_name", opts.DatasetName,
		"--run_id", opts.RunID,
		"--max_workers", fmt.Sprintf("%d", opts.MaxWorkers),
		"--cache_level", opts.CacheLevel,
		"--report_dir", opts.ReportDir,
	}
	if opts.TimeoutSeconds > 0 {
		args = append(args, "--timeout", fmt.Sprintf("%d", opts.TimeoutSeconds))
	}

	cmd := exec.CommandContext(ctx, opts.GraderCommand, args...)
	cmd.Env = scrubbedEnv(os.Environ())

	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("grader subprocess: %w", err)
	}
	return out, nil
}

// scrubbedEnv removes VIRTUAL_ENV entirely and strips any PATH/PYTHONPATH
// segment containing ".venv" or "site-packages" (§12).
func scrubbedEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			out = append(out, kv)
			continue
		}
		switch key {
		case "VIRTUAL_ENV":
			continue
		case "PATH", "PYTHONPATH":
			out = append(out, key+"="+scrubPathSegments(val))
		default:
			out = append(out, kv)
		}
	}
	return out
}

func scrubPathSegments(value string) string {
	segments := strings.Split(value, string(os.PathListSeparator))
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.Contains(seg, ".venv") || strings.Contains(seg, "site-packages") {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, string(os.PathListSeparator))
}

package benchmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// swebenchRecord is one line of a SWE-bench JSONL dataset file.
type swebenchRecord struct {
	InstanceID    string `json:"instance_id"`
	ProblemStatement string `json:"problem_statement"`
	Repo          string `json:"repo"`
	BaseCommit    string `json:"base_commit"`
	HintsText     string `json:"hints_text"`
	Patch         string `json:"patch"`
	TestPatch     string `json:"test_patch"`
	Version       string `json:"version"`
	FailToPass    string `json:"FAIL_TO_PASS"`
}

// LoadSWEBenchTasks loads tasks from a SWE-bench JSONL dataset file (§12,
// "currently only the SWE-bench variant is recognized"), grounded on
// agent_verify.benchmark.swebench.load_swebench_tasks. When instanceIDs is
// non-empty, only matching records are loaded.
func LoadSWEBenchTasks(datasetPath string, instanceIDs []string) ([]Task, error) {
	f, err := os.Open(datasetPath)
	if err != nil {
		return nil, fmt.Errorf("swebench dataset not found: %w", err)
	}
	defer f.Close()

	want := make(map[string]bool, len(instanceIDs))
	for _, id := range instanceIDs {
		want[id] = true
	}

	var tasks []Task
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec swebenchRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse swebench record: %w", err)
		}
		if len(want) > 0 && !want[rec.InstanceID] {
			continue
		}

		tasks = append(tasks, Task{
			TaskID:       rec.InstanceID,
			Description:  rec.ProblemStatement,
			Repo:         rec.Repo,
			BaseCommit:   rec.BaseCommit,
			TestCommand:  buildTestCommand(rec.FailToPass),
			Metadata: map[string]any{
				"hints_text": rec.HintsText,
				"patch":      rec.Patch,
				"test_patch": rec.TestPatch,
				"version":    rec.Version,
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read swebench dataset: %w", err)
	}
	return tasks, nil
}

// buildTestCommand turns a SWE-bench FAIL_TO_PASS field (a JSON-encoded
// array of pytest node ids) into a runnable test_command, or "" if the
// field is absent or malformed.
func buildTestCommand(failToPass string) string {
	if failToPass == "" {
		return ""
	}
	var testIDs []string
	if err := json.Unmarshal([]byte(failToPass), &testIDs); err != nil || len(testIDs) == 0 {
		return ""
	}
	return fmt.Sprintf("python -m pytest %s -x --tb=short", strings.Join(testIDs, " "))
}

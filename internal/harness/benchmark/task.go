// Package benchmark defines the task and result data models (§3) that flow
// through the scheduler, verifiers, and batch runner.
package benchmark

// Task is the immutable input to a single agent run (§3), grounded on
// agent_verify.benchmark.base.Task.
type Task struct {
	TaskID       string
	Description  string
	Repo         string
	BaseCommit   string
	TestCommand  string
	WorkspaceDir string
	Metadata     map[string]any
}

// MetadataString reads a string field from Metadata, returning "" if absent
// or of the wrong type. Used for task-supplied fields like e2e_command.
func (t Task) MetadataString(key string) string {
	v, ok := t.Metadata[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Result is the outcome of running an agent on a single Task (§3), grounded
// on agent_verify.benchmark.base.TaskResult.
type Result struct {
	TaskID             string
	Resolved           bool
	InputTokens        int64
	OutputTokens       int64
	CacheCreationInput int64
	CacheReadInput     int64
	CostUSD            float64
	WallClockSeconds   float64
	ToolCallCount      int
	VerificationCount  int
	RecoveryCount      int
	Iterations         int
	CompletionReason   string
	Error              string
	Metadata           map[string]any
}

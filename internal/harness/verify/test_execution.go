package verify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
)

const defaultVerifyTimeout = 300 * time.Second

// TestExecution is V2: runs task.TestCommand in task.WorkspaceDir and
// passes iff the exit code is zero. Grounded on
// agent_verify.verification.test_execution.TestExecutionVerifier.
type TestExecution struct {
	Timeout time.Duration
}

func NewTestExecution(timeout time.Duration) *TestExecution {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &TestExecution{Timeout: timeout}
}

func (v *TestExecution) MethodName() string { return "test_execution" }

func (v *TestExecution) Verify(ctx context.Context, _ *harness.Context, task benchmark.Task, _ transport.ModelTransport) Result {
	if task.TestCommand == "" {
		return Result{Passed: false, Message: "No test command specified for this task"}
	}
	return runShellVerification(ctx, task.TestCommand, task.WorkspaceDir, v.Timeout, "Tests")
}

// truncateMiddle elides the middle of output over limit characters, keeping
// the first and last halves (§4.D).
func truncateMiddle(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	half := limit / 2
	return s[:half] + "\n...[truncated]...\n" + s[len(s)-half:]
}

// runShellVerification is the shared subprocess discipline of V2 and V4:
// run a command under a timeout, capture stdout+stderr, truncate to a
// middle-elided 10k-character window, and pass iff exit code is zero.
func runShellVerification(ctx context.Context, command, workspace string, timeout time.Duration, label string) Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	cmd.Dir = workspace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() != nil {
		return Result{
			Passed:  false,
			Message: fmt.Sprintf("%s timed out after %s", label, timeout),
			Details: map[string]any{"test_command": command, "timeout_seconds": timeout.Seconds()},
		}
	}

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return Result{Passed: false, Message: fmt.Sprintf("error running %s: %v", label, err)}
	}

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n"
		}
		output += stderr.String()
	}
	output = truncateMiddle(output, 10000)

	passed := exitCode == 0
	verb := "failed"
	if passed {
		verb = "passed"
	}
	return Result{
		Passed:  passed,
		Message: fmt.Sprintf("%s %s (exit code %d)", label, verb, exitCode),
		Details: map[string]any{
			"exit_code":    exitCode,
			"output":       output,
			"test_command": command,
		},
	}
}

package verify

import (
	"context"
	"time"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// E2E is V4: runs a task-supplied e2e_command (from task metadata) under the
// same subprocess discipline as V2. Grounded on
// agent_verify.verification.e2e.E2EVerifier.
type E2E struct {
	Timeout time.Duration
}

func NewE2E(timeout time.Duration) *E2E {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	return &E2E{Timeout: timeout}
}

func (v *E2E) MethodName() string { return "e2e" }

func (v *E2E) Verify(ctx context.Context, _ *harness.Context, task benchmark.Task, _ transport.ModelTransport) Result {
	cmd := task.MetadataString("e2e_command")
	if cmd == "" {
		return Result{Passed: false, Message: "No E2E verification command specified for this task"}
	}
	return runShellVerification(ctx, cmd, task.WorkspaceDir, v.Timeout, "E2E verification")
}

package recover

import (
	"context"
	"fmt"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/verify"
)

// Fresh is R3: a Ralph-style clean restart. Only filesystem state carries
// over (handled by the harness/workspace, not this type); the conversation
// starts over with a single user message holding the task description and
// the verification failure message. Grounded on
// agent_verify.recovery.fresh.FreshRestart.
type Fresh struct{}

func (r *Fresh) StrategyName() string { return "fresh_restart" }

func (r *Fresh) Recover(_ context.Context, convo *harness.Context, verdict verify.Result, task benchmark.Task) *harness.Context {
	next := convo.CloneFresh()
	next.Usage = convo.Usage
	next.ToolCalls = convo.ToolCalls
	next.IterationCount = convo.IterationCount
	next.VerificationCount = convo.VerificationCount
	next.RecoveryCount = convo.RecoveryCount + 1

	restartMessage := fmt.Sprintf(
		"## Task\n%s\n\n## Previous Attempt Result\n"+
			"A previous attempt was made but verification failed:\n%s\n\n"+
			"The workspace filesystem contains changes from the previous attempt. "+
			"You may inspect the current state of files and git history.\n\n"+
			"Please complete this task, addressing the issues identified above.",
		task.Description, verdict.Message,
	)
	next.AddUserMessage(restartMessage)
	return next
}

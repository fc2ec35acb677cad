package recover

import (
	"context"
	"fmt"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/verify"
)

// Retry is R1: append failure feedback to the current context and retry in
// place, mutating and returning the same *harness.Context. Grounded on
// agent_verify.recovery.retry.RetryInContext.
type Retry struct{}

func (r *Retry) StrategyName() string { return "retry_in_context" }

func (r *Retry) Recover(_ context.Context, convo *harness.Context, verdict verify.Result, _ benchmark.Task) *harness.Context {
	feedback := fmt.Sprintf(
		"VERIFICATION FAILED. Please fix the issues and try again.\n\nFailure details:\n%s",
		verdict.Message,
	)
	convo.AddUserMessage(feedback)
	convo.RecoveryCount++
	convo.Terminal = false
	return convo
}

// Package verify implements the pluggable verification strategies of §4.D:
// V0 none, V1 self-review, V2 test execution, V3 spec comparison, V4 e2e.
// Every strategy shares the Verifier contract so the scheduler can select
// one by name at run configuration time.
package verify

import (
	"context"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// Result is the outcome of a verification pass (§4.D), grounded on
// agent_verify.verification.base.VerificationResult.
type Result struct {
	Passed    bool
	Message   string
	Details   map[string]any
	TokenCost int64
}

// Verifier is the strategy interface every verification method implements.
type Verifier interface {
	Verify(ctx context.Context, convo *harness.Context, task benchmark.Task, t transport.ModelTransport) Result
	MethodName() string
}

// New resolves a verification method name to its Verifier, as named in a
// run configuration document's verification field (§6).
func New(method string) Verifier {
	switch method {
	case "self_review":
		return &SelfReview{}
	case "test_execution":
		return NewTestExecution(0)
	case "spec_comparison":
		return &SpecComparison{}
	case "e2e":
		return NewE2E(0)
	default:
		return &None{}
	}
}

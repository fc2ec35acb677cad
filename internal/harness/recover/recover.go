// Package recover implements the pluggable recovery strategies of §4.E: R1
// retry-in-context, R2 compact-and-retry, R3 fresh-restart. Each strategy
// returns a *harness.Context; R1 mutates and returns the same one, while R2
// and R3 return a new one — Go's native pointer identity (==) makes the
// spec's "tagged pair" fallback for reference-equality-less languages
// unnecessary here.
package recover

import (
	"context"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
	"github.com/agent-verify/harness/internal/harness/verify"
)

// Strategy is the recovery strategy interface (§4.E).
type Strategy interface {
	Recover(ctx context.Context, convo *harness.Context, verdict verify.Result, task benchmark.Task) *harness.Context
	StrategyName() string
}

// New resolves a recovery strategy name to its Strategy, as named in a run
// configuration document's recovery field (§6). t may be nil; Compact
// degrades to Retry behavior when it is.
func New(method string, t transport.ModelTransport) Strategy {
	switch method {
	case "compact_and_retry":
		return &Compact{Transport: t}
	case "fresh_restart":
		return &Fresh{}
	default:
		return &Retry{}
	}
}

package recover

import (
	"context"
	"fmt"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
	"github.com/agent-verify/harness/internal/harness/verify"
)

// compactionPrompt is verbatim from §12 / agent_verify.recovery.compact.
const compactionPrompt = `Summarize the conversation so far into a concise technical summary.
Include:
1. What task was being worked on
2. What approaches were tried
3. What files were modified and how
4. The current state of the changes
5. What verification failed and why

Keep it under 2000 tokens. Be precise and technical.`

// Compact is R2: an LLM summarizes the conversation, and a new context
// carries the summary plus the failure message forward. Degrades to Retry
// behavior when no transport is configured. Grounded on
// agent_verify.recovery.compact.CompactAndRetry.
type Compact struct {
	Transport transport.ModelTransport
}

func (r *Compact) StrategyName() string { return "compact_and_retry" }

func (r *Compact) Recover(ctx context.Context, convo *harness.Context, verdict verify.Result, task benchmark.Task) *harness.Context {
	if r.Transport == nil {
		return (&Retry{}).Recover(ctx, convo, verdict, task)
	}

	messages := append(harness.CloneMessages(convo.Messages), harness.Message{
		Role:    harness.RoleUser,
		Content: []harness.ContentBlock{{Type: harness.ContentText, Text: compactionPrompt}},
	})
	resp, err := r.Transport.Generate(ctx, transport.Request{Messages: messages, MaxTokens: 2048})
	if err != nil {
		return (&Retry{}).Recover(ctx, convo, verdict, task)
	}
	convo.Usage.Add(resp.InputTokens, resp.OutputTokens, resp.CacheCreationInput, resp.CacheReadInput, resp.CostUSD)
	summary := resp.TextContent()

	next := convo.CloneFresh()
	next.Usage = convo.Usage
	next.ToolCalls = convo.ToolCalls
	next.IterationCount = convo.IterationCount
	next.VerificationCount = convo.VerificationCount
	next.RecoveryCount = convo.RecoveryCount + 1

	compacted := fmt.Sprintf(
		"## Context Summary (from previous attempt)\n%s\n\n## Verification Failure\n%s\n\n## Task\n%s\n\n"+
			"Please continue working on this task, addressing the verification failure above.",
		summary, verdict.Message, task.Description,
	)
	next.AddUserMessage(compacted)
	return next
}

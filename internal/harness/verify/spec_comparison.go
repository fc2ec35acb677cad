package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// specComparisonPrompt is verbatim from §12 /
// agent_verify.verification.spec_comparison.
const specComparisonPrompt = `You are a verification agent. Compare the work done in the conversation above against the original task specification below.

## Original Task Specification
%s

## Instructions
1. Carefully compare every requirement in the spec against the actual changes made.
2. Check for completeness: are all requirements addressed?
3. Check for correctness: do the changes actually fulfill each requirement?
4. Check for regressions: could the changes break existing functionality?

Respond with EXACTLY one of:
- "VERIFICATION_PASSED" if all requirements are met
- "VERIFICATION_FAILED: <specific list of unmet requirements or issues>"

Be strict and thorough. Only pass if ALL requirements are clearly met.`

// SpecComparison is V3: a separate LLM call compares the transcript against
// the task spec, independent of whatever the agent believes it did.
// Grounded on agent_verify.verification.spec_comparison.SpecComparisonVerifier.
type SpecComparison struct{}

func (s *SpecComparison) MethodName() string { return "spec_comparison" }

func (s *SpecComparison) Verify(ctx context.Context, convo *harness.Context, task benchmark.Task, t transport.ModelTransport) Result {
	if t == nil {
		return Result{Passed: false, Message: "Spec comparison requires an LLM client"}
	}

	prompt := fmt.Sprintf(specComparisonPrompt, task.Description)
	messages := append(harness.CloneMessages(convo.Messages), harness.Message{
		Role:    harness.RoleUser,
		Content: []harness.ContentBlock{{Type: harness.ContentText, Text: prompt}},
	})

	resp, err := t.Generate(ctx, transport.Request{Messages: messages, MaxTokens: 2048})
	if err != nil {
		return Result{Passed: false, Message: fmt.Sprintf("verification transport error: %v", err)}
	}
	convo.Usage.Add(resp.InputTokens, resp.OutputTokens, resp.CacheCreationInput, resp.CacheReadInput, resp.CostUSD)
	text := resp.TextContent()
	passed := strings.Contains(text, "VERIFICATION_PASSED")
	return Result{
		Passed:    passed,
		Message:   text,
		Details:   map[string]any{"raw_response": text},
		TokenCost: resp.InputTokens + resp.OutputTokens,
	}
}

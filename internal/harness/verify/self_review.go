package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// selfReviewPrompt is verbatim from §12 / agent_verify.verification.self_review.
const selfReviewPrompt = `Review the changes you have made so far for the following task.

## Task
%s

## Your Changes
Review all the file modifications and tool outputs in the conversation above.

## Instructions
1. Check if the changes correctly address the task requirements.
2. Look for potential bugs, edge cases, or missing functionality.
3. Determine if the task is truly complete.

Respond with EXACTLY one of:
- "VERIFICATION_PASSED" if the changes are correct and complete
- "VERIFICATION_FAILED: <reason>" if there are issues

Be critical and thorough in your review.`

// SelfReview is V1: the LLM reviews its own output. Grounded on
// agent_verify.verification.self_review.SelfReviewVerifier.
type SelfReview struct{}

func (s *SelfReview) MethodName() string { return "self_review" }

func (s *SelfReview) Verify(ctx context.Context, convo *harness.Context, task benchmark.Task, t transport.ModelTransport) Result {
	if t == nil {
		return Result{Passed: false, Message: "Self-review requires an LLM client"}
	}

	prompt := fmt.Sprintf(selfReviewPrompt, task.Description)
	messages := append(harness.CloneMessages(convo.Messages), harness.Message{
		Role:    harness.RoleUser,
		Content: []harness.ContentBlock{{Type: harness.ContentText, Text: prompt}},
	})

	resp, err := t.Generate(ctx, transport.Request{Messages: messages, MaxTokens: 2048})
	if err != nil {
		return Result{Passed: false, Message: fmt.Sprintf("verification transport error: %v", err)}
	}
	// This transport call site accounts its own usage; the scheduler does
	// not call Usage.Add a second time for verification calls.
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

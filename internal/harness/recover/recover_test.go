package recover

import (
	"context"
	"strings"
	"testing"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
	"github.com/agent-verify/harness/internal/harness/verify"
)

// canned is a hand-rolled stub ModelTransport returning one fixed response,
// grounded on the teacher's AgenticRuntime stub pattern
// (internal/agent/loop_test.go).
type canned struct {
	resp *transport.Response
	err  error
}

func (c canned) Generate(context.Context, transport.Request) (*transport.Response, error) {
	return c.resp, c.err
}

func textResp(text string) *transport.Response {
	return &transport.Response{
		StopReason: transport.StopEndTurn,
		Content:    []harness.ContentBlock{{Type: harness.ContentText, Text: text}},
	}
}

func TestNewResolvesEveryStrategyName(t *testing.T) {
	cases := map[string]string{
		"retry_in_context": "retry_in_context",
		"compact_and_retry": "compact_and_retry",
		"fresh_restart":     "fresh_restart",
		"":                  "retry_in_context",
		"unknown":           "retry_in_context",
	}
	for method, want := range cases {
		s := New(method, nil)
		if s.StrategyName() != want {
			t.Errorf("New(%q).StrategyName() = %s, want %s", method, s.StrategyName(), want)
		}
	}
}

func TestRetryMutatesSameContextInPlace(t *testing.T) {
	convo := harness.NewContext()
	convo.MarkTerminal("verified")
	next := (&Retry{}).Recover(context.Background(), convo, verify.Result{Message: "test failed"}, benchmark.Task{})

	if next != convo {
		t.Fatal("R1 retry must mutate and return the same context pointer")
	}
	if convo.Terminal {
		t.Fatal("expected retry to un-terminate the context")
	}
	if convo.RecoveryCount != 1 {
		t.Fatalf("expected recovery count 1, got %d", convo.RecoveryCount)
	}
	last := convo.Messages[len(convo.Messages)-1]
	if !strings.Contains(harness.TextContent(last.Content), "test failed") {
		t.Fatalf("expected feedback message to include failure details, got %+v", last)
	}
}

func TestFreshReturnsNewContextWithCounters(t *testing.T) {
	convo := harness.NewContext()
	convo.AddUserMessage("original task")
	convo.IterationCount = 5
	convo.VerificationCount = 2
	convo.RecoveryCount = 1

	next := (&Fresh{}).Recover(context.Background(), convo, verify.Result{Message: "bad"}, benchmark.Task{Description: "fix it"})

	if next == convo {
		t.Fatal("R3 fresh restart must return a new context")
	}
	if next.RecoveryCount != 2 {
		t.Fatalf("expected recovery count incremented to 2, got %d", next.RecoveryCount)
	}
	if next.IterationCount != 5 || next.VerificationCount != 2 {
		t.Fatalf("expected counters carried over, got iter=%d verif=%d", next.IterationCount, next.VerificationCount)
	}
	if len(next.Messages) != 1 {
		t.Fatalf("expected fresh context to start with a single restart message, got %d", len(next.Messages))
	}
}

func TestCompactDegradesToRetryWithoutTransport(t *testing.T) {
	convo := harness.NewContext()
	next := (&Compact{}).Recover(context.Background(), convo, verify.Result{Message: "fail"}, benchmark.Task{})
	if next != convo {
		t.Fatal("Compact without a transport should degrade to Retry's same-context behavior")
	}
}

func TestCompactSummarizesIntoNewContext(t *testing.T) {
	convo := harness.NewContext()
	convo.AddUserMessage("original task")
	recovery := &Compact{Transport: canned{resp: textResp("summary of prior work")}}

	next := recovery.Recover(context.Background(), convo, verify.Result{Message: "tests still fail"}, benchmark.Task{Description: "fix bug"})

	if next == convo {
		t.Fatal("Compact with a transport must return a new context")
	}
	last := next.Messages[len(next.Messages)-1]
	text := harness.TextContent(last.Content)
	if !strings.Contains(text, "summary of prior work") {
		t.Fatalf("expected compacted message to include the summary, got %s", text)
	}
	if !strings.Contains(text, "tests still fail") {
		t.Fatalf("expected compacted message to include the verification failure, got %s", text)
	}
}

func TestCompactDegradesToRetryOnTransportError(t *testing.T) {
	convo := harness.NewContext()
	recovery := &Compact{Transport: canned{err: context.DeadlineExceeded}}
	next := recovery.Recover(context.Background(), convo, verify.Result{Message: "fail"}, benchmark.Task{})
	if next != convo {
		t.Fatal("expected degrade-to-retry on transport error to return the same context")
	}
}

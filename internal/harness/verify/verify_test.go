package verify

import (
	"context"
	"testing"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// canned is a hand-rolled stub ModelTransport returning a single fixed
// response, grounded on the teacher's AgenticRuntime stub pattern
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
		StopReason:   transport.StopEndTurn,
		Content:      []harness.ContentBlock{{Type: harness.ContentText, Text: text}},
		InputTokens:  10,
		OutputTokens: 5,
	}
}

func TestNewResolvesEveryMethodName(t *testing.T) {
	cases := map[string]string{
		"none":            "none",
		"self_review":     "self_review",
		"test_execution":  "test_execution",
		"spec_comparison": "spec_comparison",
		"e2e":             "e2e",
		"":                "none",
		"unknown_method":  "none",
	}
	for method, wantName := range cases {
		v := New(method)
		if v.MethodName() != wantName {
			t.Errorf("New(%q).MethodName() = %s, want %s", method, v.MethodName(), wantName)
		}
	}
}

func TestNoneAlwaysPasses(t *testing.T) {
	result := (&None{}).Verify(context.Background(), harness.NewContext(), benchmark.Task{}, nil)
	if !result.Passed {
		t.Fatal("V0 none must always pass")
	}
}

func TestSelfReviewRequiresTransport(t *testing.T) {
	result := (&SelfReview{}).Verify(context.Background(), harness.NewContext(), benchmark.Task{}, nil)
	if result.Passed {
		t.Fatal("expected self-review to fail without a transport")
	}
}

func TestSelfReviewPassesOnVerificationPassedMarker(t *testing.T) {
	convo := harness.NewContext()
	convo.AddUserMessage("fix the bug")
	result := (&SelfReview{}).Verify(context.Background(), convo, benchmark.Task{Description: "fix the bug"}, canned{resp: textResp("Looks correct. VERIFICATION_PASSED")})
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
}

func TestSelfReviewFailsWithoutMarker(t *testing.T) {
	convo := harness.NewContext()
	result := (&SelfReview{}).Verify(context.Background(), convo, benchmark.Task{Description: "fix the bug"}, canned{resp: textResp("VERIFICATION_FAILED: missing edge case")})
	if result.Passed {
		t.Fatal("expected failure when VERIFICATION_PASSED marker is absent")
	}
}

func TestSelfReviewAccountsUsageOnConvo(t *testing.T) {
	convo := harness.NewContext()
	(&SelfReview{}).Verify(context.Background(), convo, benchmark.Task{Description: "fix"}, canned{resp: textResp("VERIFICATION_PASSED")})
	if convo.Usage.InputTokens != 10 || convo.Usage.OutputTokens != 5 {
		t.Fatalf("expected verification call's usage to be recorded on convo, got %+v", convo.Usage)
	}
}

func TestSelfReviewTransportErrorFails(t *testing.T) {
	convo := harness.NewContext()
	result := (&SelfReview{}).Verify(context.Background(), convo, benchmark.Task{}, canned{err: context.DeadlineExceeded})
	if result.Passed {
		t.Fatal("expected failure on transport error")
	}
}

func TestSpecComparisonPassesOnMarker(t *testing.T) {
	convo := harness.NewContext()
	result := (&SpecComparison{}).Verify(context.Background(), convo, benchmark.Task{Description: "spec"}, canned{resp: textResp("VERIFICATION_PASSED")})
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
}

func TestSpecComparisonRequiresTransport(t *testing.T) {
	result := (&SpecComparison{}).Verify(context.Background(), harness.NewContext(), benchmark.Task{}, nil)
	if result.Passed {
		t.Fatal("expected spec comparison to fail without a transport")
	}
}

func TestTestExecutionFailsWithoutCommand(t *testing.T) {
	result := NewTestExecution(0).Verify(context.Background(), harness.NewContext(), benchmark.Task{}, nil)
	if result.Passed {
		t.Fatal("expected failure when no test command is configured")
	}
}

func TestTestExecutionPassesOnZeroExit(t *testing.T) {
	task := benchmark.Task{TestCommand: "true", WorkspaceDir: t.TempDir()}
	result := NewTestExecution(0).Verify(context.Background(), harness.NewContext(), task, nil)
	if !result.Passed {
		t.Fatalf("expected pass for a zero-exit command, got %+v", result)
	}
}

func TestTestExecutionFailsOnNonZeroExit(t *testing.T) {
	task := benchmark.Task{TestCommand: "false", WorkspaceDir: t.TempDir()}
	result := NewTestExecution(0).Verify(context.Background(), harness.NewContext(), task, nil)
	if result.Passed {
		t.Fatal("expected failure for a non-zero exit command")
	}
}

func TestTestExecutionTimesOut(t *testing.T) {
	task := benchmark.Task{TestCommand: "sleep 5", WorkspaceDir: t.TempDir()}
	result := NewTestExecution(10000000).Verify(context.Background(), harness.NewContext(), task, nil) // 10ms in nanoseconds
	if result.Passed {
		t.Fatal("expected a timeout failure")
	}
}

func TestE2EFailsWithoutCommand(t *testing.T) {
	result := NewE2E(0).Verify(context.Background(), harness.NewContext(), benchmark.Task{}, nil)
	if result.Passed {
		t.Fatal("expected failure when no e2e_command metadata is present")
	}
}

func TestE2EPassesOnZeroExitFromMetadata(t *testing.T) {
	task := benchmark.Task{WorkspaceDir: t.TempDir(), Metadata: map[string]any{"e2e_command": "true"}}
	result := NewE2E(0).Verify(context.Background(), harness.NewContext(), task, nil)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
}

func TestTruncateMiddleElidesLongOutput(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateMiddle(string(long), 20)
	if len(got) >= 100 {
		t.Fatalf("expected truncation, got length %d", len(got))
	}
}

func TestTruncateMiddleLeavesShortOutputUntouched(t *testing.T) {
	if got := truncateMiddle("short", 20); got != "short" {
		t.Fatalf("expected untouched output, got %q", got)
	}
}

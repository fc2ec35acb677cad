package scheduler

import (
	"context"
	"testing"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/tools"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// stubTransport is a hand-rolled fake ModelTransport, grounded on the
// teacher's own AgenticRuntime stub pattern (internal/agent/loop_test.go):
// a queue of canned responses returned in order, one per Generate call.
type stubTransport struct {
	responses []*transport.Response
	calls     int
}

func (s *stubTransport) Generate(_ context.Context, _ transport.Request) (*transport.Response, error) {
	if s.calls >= len(s.responses) {
		return &transport.Response{StopReason: transport.StopEndTurn, Content: []harness.ContentBlock{
			{Type: harness.ContentText, Text: "TASK_COMPLETE"},
		}}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return resp, nil
}

func textResponse(text string) *transport.Response {
	return &transport.Response{
		StopReason: transport.StopEndTurn,
		Content:    []harness.ContentBlock{{Type: harness.ContentText, Text: text}},
	}
}

func toolUseResponse(toolUseID, toolName string, input map[string]any) *transport.Response {
	return &transport.Response{
		StopReason: transport.StopToolUse,
		Content: []harness.ContentBlock{
			{Type: harness.ContentToolUse, ToolUseID: toolUseID, ToolName: toolName, ToolInput: input},
		},
	}
}

func TestRunTerminatesOnTaskComplete(t *testing.T) {
	stub := &stubTransport{responses: []*transport.Response{
		textResponse("working on it"),
		textResponse("done. TASK_COMPLETE"),
	}}
	registry := tools.NewRegistry()
	cfg := DefaultConfig()
	cfg.MaxIterations = 10
	cfg.VerificationMethod = "none"

	sched := New(cfg, stub, registry, nil)
	result := sched.Run(context.Background(), benchmark.Task{TaskID: "t1", Description: "fix it"})

	if !result.Resolved {
		t.Fatalf("expected resolved=true, got result=%+v", result)
	}
	if result.Iterations != 2 {
		t.Fatalf("expected 2 iterations, got %d", result.Iterations)
	}
	if result.CompletionReason != "verified" {
		t.Fatalf("expected completion reason verified (V0 always passes), got %s", result.CompletionReason)
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	stub := &stubTransport{responses: []*transport.Response{
		textResponse("still working"),
		textResponse("still working"),
		textResponse("still working"),
	}}
	registry := tools.NewRegistry()
	cfg := DefaultConfig()
	cfg.MaxIterations = 2
	cfg.VerificationMethod = "none"

	sched := New(cfg, stub, registry, nil)
	result := sched.Run(context.Background(), benchmark.Task{TaskID: "t2", Description: "fix it"})

	if result.Resolved {
		t.Fatal("expected resolved=false when max iterations is exhausted without TASK_COMPLETE")
	}
	if result.CompletionReason != "max_iterations" {
		t.Fatalf("expected completion reason max_iterations, got %s", result.CompletionReason)
	}
}

func TestRunDispatchesToolCalls(t *testing.T) {
	workspace := t.TempDir()
	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewWriteTool(workspace)); err != nil {
		t.Fatalf("register tool: %v", err)
	}

	stub := &stubTransport{responses: []*transport.Response{
		toolUseResponse("call-1", "file_write", map[string]any{"path": "out.txt", "content": "hello"}),
		textResponse("TASK_COMPLETE"),
	}}
	cfg := DefaultConfig()
	cfg.MaxIterations = 5
	cfg.VerificationMethod = "none"

	sched := New(cfg, stub, registry, nil)
	result := sched.Run(context.Background(), benchmark.Task{TaskID: "t3", Description: "write a file", WorkspaceDir: workspace})

	if !result.Resolved {
		t.Fatalf("expected resolved=true, got %+v", result)
	}
	if result.ToolCallCount != 1 {
		t.Fatalf("expected 1 tool call, got %d", result.ToolCallCount)
	}
}

func TestResultUsageCountersAreNonNegative(t *testing.T) {
	stub := &stubTransport{responses: []*transport.Response{
		{
			StopReason:         transport.StopEndTurn,
			Content:            []harness.ContentBlock{{Type: harness.ContentText, Text: "TASK_COMPLETE"}},
			InputTokens:        120,
			OutputTokens:       40,
			CacheCreationInput: 5,
			CacheReadInput:     15,
			CostUSD:            0.002,
		},
	}}
	registry := tools.NewRegistry()
	cfg := DefaultConfig()
	cfg.VerificationMethod = "none"

	sched := New(cfg, stub, registry, nil)
	result := sched.Run(context.Background(), benchmark.Task{TaskID: "t4", Description: "fix it"})

	if result.InputTokens != 120 || result.OutputTokens != 40 {
		t.Fatalf("unexpected token counters: %+v", result)
	}
	if result.CacheCreationInput != 5 || result.CacheReadInput != 15 {
		t.Fatalf("unexpected cache counters: %+v", result)
	}
	if result.CostUSD != 0.002 {
		t.Fatalf("unexpected cost: %v", result.CostUSD)
	}
}

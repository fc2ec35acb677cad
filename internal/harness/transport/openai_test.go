package transport

import (
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agent-verify/harness/internal/harness"
)

func TestConvertMessagesToOpenAIPrependsSystemMessage(t *testing.T) {
	msgs, err := convertMessagesToOpenAI("be helpful", nil)
	if err != nil {
		t.Fatalf("convertMessagesToOpenAI: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != openai.ChatMessageRoleSystem || msgs[0].Content != "be helpful" {
		t.Fatalf("expected a leading system message, got %+v", msgs)
	}
}

func TestConvertMessagesToOpenAIFlattensToolResults(t *testing.T) {
	messages := []harness.Message{
		{Role: harness.RoleUser, Content: []harness.ContentBlock{
			{Type: harness.ContentToolResult, ToolResultForID: "call-1", ToolResultText: "ok"},
		}},
	}
	out, err := convertMessagesToOpenAI("", messages)
	if err != nil {
		t.Fatalf("convertMessagesToOpenAI: %v", err)
	}
	if len(out) != 1 || out[0].Role != openai.ChatMessageRoleTool || out[0].ToolCallID != "call-1" {
		t.Fatalf("expected a single tool-role message, got %+v", out)
	}
}

func TestConvertMessagesToOpenAICarriesToolCalls(t *testing.T) {
	messages := []harness.Message{
		{Role: harness.RoleAssistant, Content: []harness.ContentBlock{
			{Type: harness.ContentToolUse, ToolUseID: "call-1", ToolName: "bash", ToolInput: map[string]any{"command": "ls"}},
		}},
	}
	out, err := convertMessagesToOpenAI("", messages)
	if err != nil {
		t.Fatalf("convertMessagesToOpenAI: %v", err)
	}
	if len(out) != 1 || len(out[0].ToolCalls) != 1 {
		t.Fatalf("expected one message carrying one tool call, got %+v", out)
	}
	if out[0].ToolCalls[0].Function.Name != "bash" {
		t.Fatalf("unexpected tool call function name: %s", out[0].ToolCalls[0].Function.Name)
	}
	if out[0].Content != "" {
		t.Fatalf("expected empty content when tool calls are present, got %q", out[0].Content)
	}
}

func TestStripThinkingRemovesThinkBlocks(t *testing.T) {
	got := stripThinking("<think>internal reasoning</think>final answer")
	if got != "final answer" {
		t.Fatalf("expected think block stripped, got %q", got)
	}
}

func TestStripThinkingLeavesPlainTextUntouched(t *testing.T) {
	if got := stripThinking("no think blocks here"); got != "no think blocks here" {
		t.Fatalf("unexpected mutation: %q", got)
	}
}

func TestParseInlineToolCallExtractsNameAndArgs(t *testing.T) {
	text := `I'll call the tool now: {"name": "bash", "input": {"command": "ls -la"}}`
	name, args, ok := parseInlineToolCall(text)
	if !ok {
		t.Fatal("expected an inline tool call to be parsed")
	}
	if name != "bash" {
		t.Fatalf("unexpected name: %s", name)
	}
	if args["command"] != "ls -la" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestParseInlineToolCallFailsOnPlainText(t *testing.T) {
	if _, _, ok := parseInlineToolCall("just a regular sentence"); ok {
		t.Fatal("expected no inline tool call to be parsed from plain text")
	}
}

func TestWrapOpenAIErrorMarksRateLimitRetryable(t *testing.T) {
	err := wrapOpenAIError(errors.New("429 rate limit exceeded"))
	if !err.Retryable {
		t.Fatal("expected rate-limit error to be retryable")
	}
	if err.Provider != "openai-compatible" {
		t.Fatalf("unexpected provider: %s", err.Provider)
	}
}

func TestWrapOpenAIErrorMarksGenericErrorNonRetryable(t *testing.T) {
	err := wrapOpenAIError(errors.New("invalid api key"))
	if err.Retryable {
		t.Fatal("expected a non-transient error to be non-retryable")
	}
}

func TestConvertToolsToOpenAIPreservesNameAndDescription(t *testing.T) {
	schemas := []ToolSchema{{Name: "bash", Description: "run a command", Parameters: []byte(`{"type":"object"}`)}}
	out := convertToolsToOpenAI(schemas)
	if len(out) != 1 || out[0].Function.Name != "bash" || out[0].Function.Description != "run a command" {
		t.Fatalf("unexpected tool conversion: %+v", out)
	}
}

// Package transport implements the provider-polymorphic model transport of
// 4.C: a native Anthropic-style tool-use transport and an OpenAI-compatible
// transport, both normalizing to the same closed response shape.
package transport

import (
	"context"

	"github.com/agent-verify/harness/internal/harness"
)

// StopReason is the closed set both transports normalize to (4.C).
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ToolSchema mirrors tools.ToolSchema without importing the tools package,
// keeping transport decoupled from the registry's implementation.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []byte
}

// Response is the transport's normalized output (4.C).
type Response struct {
	Content    []harness.ContentBlock
	StopReason StopReason
	Model      string

	InputTokens        int64
	OutputTokens       int64
	CacheCreationInput int64
	CacheReadInput     int64
	CostUSD            float64
}

// TextContent concatenates all text blocks in the response.
func (r *Response) TextContent() string { return harness.TextContent(r.Content) }

// ToolUses returns all tool_use blocks in the response.
func (r *Response) ToolUses() []harness.ContentBlock { return harness.ToolUses(r.Content) }

// HasToolUse reports whether the response requested any tool calls.
func (r *Response) HasToolUse() bool { return len(r.ToolUses()) > 0 }

// ModelTransport is the single capability every provider implements (4.C).
type ModelTransport interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request bundles one generation call's inputs.
type Request struct {
	Messages    []harness.Message
	System      string
	Tools       []ToolSchema
	MaxTokens   int
	Temperature float64
}

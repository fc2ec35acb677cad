package harness

import "time"

// ToolCallRecord is one entry in the context's parallel tool-call audit
// trail (§3 Context).
type ToolCallRecord struct {
	ToolUseID string
	ToolName  string
	Arguments map[string]any
	Result    string
	Timestamp time.Time
	Duration  time.Duration
}

// Context is a conversation owned by exactly one scheduler invocation
// (4.A). It is a value-like object, never shared across goroutines: the
// batch runner constructs one per task per worker (§5).
type Context struct {
	Messages  []Message
	ToolCalls []ToolCallRecord
	Usage     Usage
	StartTime time.Time

	IterationCount    int
	VerificationCount int
	RecoveryCount     int

	Terminal       bool
	TerminalReason string
}

// NewContext creates an empty context with the start timestamp set to now.
func NewContext() *Context {
	return &Context{StartTime: time.Now()}
}

// AddUserMessage appends a plain user-role text message.
func (c *Context) AddUserMessage(text string) {
	c.Messages = append(c.Messages, Message{
		Role:    RoleUser,
		Content: []ContentBlock{{Type: ContentText, Text: text}},
	})
}

// AddAssistantMessage appends the full content-block list of one model
// response, including any reasoning block, as a single assistant message.
func (c *Context) AddAssistantMessage(blocks []ContentBlock) {
	c.Messages = append(c.Messages, Message{Role: RoleAssistant, Content: blocks})
}

// AddToolResultMessage wraps one tool's stringified output as a
// tool_result block inside a user-role message (§4.A).
func (c *Context) AddToolResultMessage(toolUseID, content string, isError bool) {
	c.Messages = append(c.Messages, Message{
		Role: RoleUser,
		Content: []ContentBlock{{
			Type:            ContentToolResult,
			ToolResultForID: toolUseID,
			ToolResultText:  content,
			ToolResultError: isError,
		}},
	})
}

// RecordToolCall appends one audit-trail entry. This is independent of the
// message transcript: it exists purely for reporting (benchmark.Result's
// ToolCallCount, the testable-property "tool_call_count equals tool-use
// blocks dispatched").
func (c *Context) RecordToolCall(rec ToolCallRecord) {
	c.ToolCalls = append(c.ToolCalls, rec)
}

// ElapsedSeconds is the wall-clock time since the context was started.
func (c *Context) ElapsedSeconds() float64 {
	return time.Since(c.StartTime).Seconds()
}

// CloneFresh returns a new context sharing only the original start
// timestamp — used by recovery R3, and as the base for R2's compacted
// context (4.A "clone fresh").
func (c *Context) CloneFresh() *Context {
	return &Context{StartTime: c.StartTime}
}

// MarkTerminal sets the terminal flag and reason. The flag transitions at
// most once from false to true and never back (§3 invariant); calling this
// on an already-terminal context is a no-op guarded by callers, not enforced
// here, since the scheduler is the only writer and is single-threaded per
// context.
func (c *Context) MarkTerminal(reason string) {
	c.Terminal = true
	c.TerminalReason = reason
}

package harness

// ContentBlock is the polymorphic message content described in §3 "Message
// content". Exactly one of the typed fields is populated, selected by Type.
// Modeled as a struct-with-tag rather than an interface so a transport can
// deep-copy a slice of blocks with a plain value copy (needed for the
// native transport's cache-control injection, which must never mutate the
// caller's context — see 4.C and Design Notes "Transport safety under
// caching").
type ContentBlockType string

const (
	ContentText       ContentBlockType = "text"
	ContentToolUse    ContentBlockType = "tool_use"
	ContentToolResult ContentBlockType = "tool_result"
	// ContentReasoning is the transport-internal block: never user-visible,
	// round-tripped only by the transport that produced it (§3, §9
	// "Reasoning round-trip").
	ContentReasoning ContentBlockType = "reasoning"
)

type ContentBlock struct {
	Type ContentBlockType

	// ContentText
	Text string

	// ContentToolUse
	ToolUseID string
	ToolName  string
	ToolInput map[string]any

	// ContentToolResult
	ToolResultForID string
	ToolResultText  string
	ToolResultError bool

	// ContentReasoning — transport-private, skipped by all text-facing ops.
	Reasoning string
}

// Clone returns a deep-enough copy: ToolInput is a distinct map so a
// transport may freely mutate its own copy without touching the original.
func (b ContentBlock) Clone() ContentBlock {
	c := b
	if b.ToolInput != nil {
		c.ToolInput = make(map[string]any, len(b.ToolInput))
		for k, v := range b.ToolInput {
			c.ToolInput[k] = v
		}
	}
	return c
}

// Role is the message role. Tool results are modeled as user-role messages
// carrying ContentToolResult blocks (§3 Context invariant).
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content []ContentBlock
}

// CloneMessages deep-copies a message slice, used by transports before
// injecting cache-control markers or any other request-shape mutation.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		blocks := make([]ContentBlock, len(m.Content))
		for j, b := range m.Content {
			blocks[j] = b.Clone()
		}
		out[i] = Message{Role: m.Role, Content: blocks}
	}
	return out
}

// TextContent concatenates all text blocks in a message list, in order.
func TextContent(blocks []ContentBlock) string {
	var out string
	for _, b := range blocks {
		if b.Type == ContentText {
			if out != "" {
				out += "\n"
			}
			out += b.Text
		}
	}
	return out
}

// ToolUses returns every tool_use block in a message's content.
func ToolUses(blocks []ContentBlock) []ContentBlock {
	var out []ContentBlock
	for _, b := range blocks {
		if b.Type == ContentToolUse {
			out = append(out, b)
		}
	}
	return out
}

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/oauth2"

	"github.com/agent-verify/harness/internal/harness"
)

// OpenAITransport is the OpenAI-compatible transport of 4.C.2, used for
// vLLM, local servers, and any endpoint speaking the OpenAI chat-completions
// wire protocol. Grounded on providers/openai.go, enriched with the
// reasoning pass-through and inline-JSON tool-call fallback parsing that
// original_source/agent_verify/llm/openai_compat.py adds (§12) and that the
// teacher's OpenAI transport does not implement.
type OpenAITransport struct {
	client *openai.Client
	model  string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string

	// TokenSource, when set, authenticates requests with an OAuth2 bearer
	// token instead of a static APIKey — for `vllm`/`local` endpoints
	// fronted by an OAuth2 gateway rather than a provider-issued API key.
	TokenSource oauth2.TokenSource
}

func NewOpenAITransport(cfg OpenAIConfig) *OpenAITransport {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if cfg.TokenSource != nil {
		conf.HTTPClient = oauth2.NewClient(context.Background(), cfg.TokenSource)
	}
	return &OpenAITransport{client: openai.NewClientWithConfig(conf), model: cfg.Model}
}

func (t *OpenAITransport) Generate(ctx context.Context, req Request) (*Response, error) {
	messages, err := convertMessagesToOpenAI(req.System, req.Messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionRequest{
		Model:       t.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = convertToolsToOpenAI(req.Tools)
	}

	resp, err := t.client.CreateChatCompletion(ctx, params)
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai-compatible transport: empty choices")
	}

	return convertOpenAIResponse(resp), nil
}

func convertMessagesToOpenAI(system string, messages []harness.Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, m := range messages {
		// Tool-result user messages flatten to one `tool`-role message per
		// result (4.C.2).
		var toolResults []harness.ContentBlock
		var reasoning string
		var text []string
		var toolCalls []openai.ToolCall

		for _, b := range m.Content {
			switch b.Type {
			case harness.ContentToolResult:
				toolResults = append(toolResults, b)
			case harness.ContentText:
				text = append(text, b.Text)
			case harness.ContentReasoning:
				reasoning = b.Reasoning
			case harness.ContentToolUse:
				argBytes, _ := json.Marshal(b.ToolInput)
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   b.ToolUseID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      b.ToolName,
						Arguments: string(argBytes),
					},
				})
			}
		}

		if len(toolResults) > 0 {
			for _, tr := range toolResults {
				out = append(out, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    tr.ToolResultText,
					ToolCallID: tr.ToolResultForID,
				})
			}
			continue
		}

		role := openai.ChatMessageRoleUser
		if m.Role == harness.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msg := openai.ChatCompletionMessage{Role: role, Content: strings.Join(text, "\n")}
		if len(toolCalls) > 0 {
			msg.ToolCalls = toolCalls
			msg.Content = ""
		}
		// Interleaved reasoning (vLLM/Qwen3 `reasoning` field) round-trips
		// only within a Context's own ContentReasoning blocks; the
		// go-openai request struct has no field for it, so a prior turn's
		// reasoning is not re-sent upstream. It is still captured on the
		// way in — see convertOpenAIResponse.
		_ = reasoning
		out = append(out, msg)
	}
	return out, nil
}

func convertToolsToOpenAI(schemas []ToolSchema) []openai.Tool {
	out := make([]openai.Tool, 0, len(schemas))
	for _, s := range schemas {
		var params map[string]any
		_ = json.Unmarshal(s.Parameters, &params)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

var thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinking removes any <think>...</think> blocks left in text content
// as a safety net, per 4.C.2.
func stripThinking(text string) string {
	return strings.TrimSpace(thinkBlockPattern.ReplaceAllString(text, ""))
}

var inlineToolCallPattern = regexp.MustCompile(`(?s)\{[^{}]*"name"\s*:\s*"(\w+)"[^{}]*"(?:input|arguments)"\s*:\s*(\{[^{}]*\})[^{}]*\}`)

// parseInlineToolCall is the fallback parser for models that emit tool
// invocations as inline JSON in text rather than native tool_calls (4.C.2).
func parseInlineToolCall(text string) (name string, args map[string]any, ok bool) {
	m := inlineToolCallPattern.FindStringSubmatch(text)
	if m == nil {
		return "", nil, false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(m[2]), &decoded); err != nil {
		return "", nil, false
	}
	return m[1], decoded, true
}

// extractReasoning reads the vLLM/Qwen-style `reasoning` (or
// `reasoning_content`) field off the raw message JSON, since go-openai's
// ChatCompletionMessage does not declare it.
func extractReasoning(raw []byte) string {
	var fields struct {
		Reasoning        string `json:"reasoning"`
		ReasoningContent string `json:"reasoning_content"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	if fields.Reasoning != "" {
		return fields.Reasoning
	}
	return fields.ReasoningContent
}

func convertOpenAIResponse(resp openai.ChatCompletionResponse) *Response {
	choice := resp.Choices[0]
	var blocks []harness.ContentBlock

	text := stripThinking(choice.Message.Content)
	if text != "" {
		blocks = append(blocks, harness.ContentBlock{Type: harness.ContentText, Text: text})
	}

	if len(choice.Message.ToolCalls) > 0 {
		for _, tc := range choice.Message.ToolCalls {
			var input map[string]any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
			blocks = append(blocks, harness.ContentBlock{
				Type:      harness.ContentToolUse,
				ToolUseID: tc.ID,
				ToolName:  tc.Function.Name,
				ToolInput: input,
			})
		}
	} else if text != "" {
		// Fallback: parse an inline tool call from text if the model
		// didn't use native tool calling (4.C.2).
		if name, args, ok := parseInlineToolCall(text); ok {
			blocks = []harness.ContentBlock{{
				Type:      harness.ContentToolUse,
				ToolUseID: fmt.Sprintf("call_%d", resp.Created),
				ToolName:  name,
				ToolInput: args,
			}}
		}
	}

	if raw, err := json.Marshal(choice.Message); err == nil {
		if reasoning := extractReasoning(raw); reasoning != "" {
			blocks = append(blocks, harness.ContentBlock{Type: harness.ContentReasoning, Reasoning: reasoning})
		}
	}

	stop := StopEndTurn
	switch choice.FinishReason {
	case openai.FinishReasonToolCalls:
		stop = StopToolUse
	case openai.FinishReasonLength:
		stop = StopMaxTokens
	}

	input := int64(resp.Usage.PromptTokens)
	output := int64(resp.Usage.CompletionTokens)

	return &Response{
		Content:      blocks,
		StopReason:   stop,
		Model:        resp.Model,
		InputTokens:  input,
		OutputTokens: output,
		CostUSD:      harness.CostUSD(resp.Model, input, output, 0, 0),
	}
}

func wrapOpenAIError(err error) *harness.ProviderError {
	msg := strings.ToLower(err.Error())
	retryable := strings.Contains(msg, "timeout") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "connection")
	return &harness.ProviderError{Provider: "openai-compatible", Retryable: retryable, Cause: err}
}

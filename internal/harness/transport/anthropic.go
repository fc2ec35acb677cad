package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agent-verify/harness/internal/harness"
)

// AnthropicTransport is the native-tool-use transport of 4.C.1, grounded on
// providers/anthropic.go but collapsed from the teacher's streaming
// chunk-channel API to the single-call generate(...) -> response contract
// the spec names (no component here needs token-by-token delivery).
type AnthropicTransport struct {
	client     anthropic.Client
	model      string
	maxRetries int
	retryDelay time.Duration
}

type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

func NewAnthropicTransport(cfg AnthropicConfig) *AnthropicTransport {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &AnthropicTransport{
		client:     anthropic.NewClient(opts...),
		model:      cfg.Model,
		maxRetries: retries,
		retryDelay: delay,
	}
}

// Generate implements ModelTransport. Messages passed in are deep-copied
// before cache-control markers are injected (Design Notes "Transport safety
// under caching") so the caller's Context is never mutated by this call.
func (t *AnthropicTransport) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := harness.CloneMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: int64(req.MaxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		}
	}

	toolParams, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}
	params.Tools = toolParams

	msgParams, err := convertMessagesToAnthropic(messages)
	if err != nil {
		return nil, err
	}
	// Mark the second-to-last user-role message as the cache breakpoint so
	// the entire prefix through that point is cacheable and only the most
	// recent exchange is fresh on each turn (4.C.1).
	applySecondToLastUserCacheControl(msgParams)
	params.Messages = msgParams

	var resp *anthropic.Message
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		resp, lastErr = t.client.Messages.New(ctx, params)
		if lastErr == nil {
			break
		}
		if !isRetryableAnthropicError(lastErr) || attempt == t.maxRetries {
			break
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * t.retryDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if lastErr != nil {
		return nil, wrapAnthropicError(lastErr)
	}

	return convertAnthropicResponse(resp), nil
}

func convertTools(schemas []ToolSchema) ([]anthropic.ToolUnionParam, error) {
	if len(schemas) == 0 {
		return nil, nil
	}
	out := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		var decoded struct {
			Type       string          `json:"type"`
			Properties json.RawMessage `json:"properties"`
			Required   []string        `json:"required"`
		}
		if err := json.Unmarshal(s.Parameters, &decoded); err != nil {
			return nil, fmt.Errorf("decode tool schema for %s: %w", s.Name, err)
		}
		var props map[string]any
		_ = json.Unmarshal(decoded.Properties, &props)

		schema := anthropic.ToolInputSchemaParam{
			Properties: props,
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, s.Name)
		toolParam.OfTool.Description = anthropic.String(s.Description)
		out = append(out, toolParam)
	}
	// Cache breakpoint on the last tool definition so the entire tool set
	// is covered by the cached prefix (4.C.1).
	if len(out) > 0 && out[len(out)-1].OfTool != nil {
		out[len(out)-1].OfTool.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}
	return out, nil
}

func convertMessagesToAnthropic(messages []harness.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range m.Content {
			switch b.Type {
			case harness.ContentText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case harness.ContentToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUseID, b.ToolInput, b.ToolName))
			case harness.ContentToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolResultForID, b.ToolResultText, b.ToolResultError))
			case harness.ContentReasoning:
				// Transport-private: the native transport never needs to
				// round-trip reasoning blocks produced by itself, since
				// Anthropic models keep their own chain-of-thought
				// server-side. Skipped here per Design Notes.
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == harness.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out, nil
}

func applySecondToLastUserCacheControl(messages []anthropic.MessageParam) {
	// Walk backwards to find the second-to-last user-role message.
	seen := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != anthropic.MessageParamRoleUser {
			continue
		}
		seen++
		if seen == 2 {
			if len(messages[i].Content) > 0 {
				last := len(messages[i].Content) - 1
				if messages[i].Content[last].OfText != nil {
					messages[i].Content[last].OfText.CacheControl = anthropic.NewCacheControlEphemeralParam()
				} else if messages[i].Content[last].OfToolResult != nil {
					messages[i].Content[last].OfToolResult.CacheControl = anthropic.NewCacheControlEphemeralParam()
				}
			}
			break
		}
	}
}

func convertAnthropicResponse(resp *anthropic.Message) *Response {
	var blocks []harness.ContentBlock
	for _, c := range resp.Content {
		switch variant := c.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, harness.ContentBlock{Type: harness.ContentText, Text: variant.Text})
		case anthropic.ToolUseBlock:
			var input map[string]any
			_ = json.Unmarshal(variant.Input, &input)
			blocks = append(blocks, harness.ContentBlock{
				Type:      harness.ContentToolUse,
				ToolUseID: variant.ID,
				ToolName:  variant.Name,
				ToolInput: input,
			})
		}
	}

	stop := StopEndTurn
	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		stop = StopToolUse
	case anthropic.StopReasonMaxTokens:
		stop = StopMaxTokens
	}

	input := resp.Usage.InputTokens
	output := resp.Usage.OutputTokens
	cacheCreate := resp.Usage.CacheCreationInputTokens
	cacheRead := resp.Usage.CacheReadInputTokens

	return &Response{
		Content:            blocks,
		StopReason:         stop,
		Model:              string(resp.Model),
		InputTokens:        input,
		OutputTokens:       output,
		CacheCreationInput: cacheCreate,
		CacheReadInput:     cacheRead,
		CostUSD:            harness.CostUSD(string(resp.Model), input, output, cacheCreate, cacheRead),
	}
}

func isRetryableAnthropicError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 529:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset")
}

func wrapAnthropicError(err error) *harness.ProviderError {
	status := 0
	retryable := isRetryableAnthropicError(err)
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &harness.ProviderError{Provider: "anthropic", StatusCode: status, Retryable: retryable, Cause: err}
}

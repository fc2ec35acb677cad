package main

import (
	"fmt"
	"time"

	"github.com/agent-verify/harness/internal/harness/batch"
	"github.com/agent-verify/harness/internal/harness/eventlog"
	"github.com/agent-verify/harness/internal/harness/tools"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// buildTransport selects the model transport named by an LLMConfig's
// provider, grounded on agent_verify.llm.get_transport's provider dispatch.
func buildTransport(llm batch.LLMConfig) (transport.ModelTransport, error) {
	switch llm.Provider {
	case "", "anthropic":
		return transport.NewAnthropicTransport(transport.AnthropicConfig{
			APIKey: llm.APIKey,
			Model:  llm.Model,
		}), nil
	case "openai", "vllm", "local":
		return transport.NewOpenAITransport(transport.OpenAIConfig{
			APIKey:  llm.APIKey,
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", llm.Provider)
	}
}

// buildToolRegistry wires the fixed tool set of §4.B into a workspace-scoped
// registry, grounded on cmd/nexus-edge's tool bootstrap sequence.
func buildToolRegistry(workspaceDir string) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	registrations := []tools.Tool{
		tools.NewBashTool(workspaceDir),
		tools.NewReadTool(workspaceDir),
		tools.NewWriteTool(workspaceDir),
		tools.NewEditTool(workspaceDir),
	}
	for _, t := range registrations {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}
	return registry, nil
}

// buildEventLogger opens a JSONL event logger under outputDir, degrading to
// nil (no logging) rather than failing the run when outputDir can't be
// created — logging is an observability concern, not a correctness one.
func buildEventLogger(experimentID, outputDir string) *eventlog.Logger {
	if outputDir == "" {
		return nil
	}
	logger, err := eventlog.New(experimentID, outputDir)
	if err != nil {
		return nil
	}
	return logger
}

const defaultRunTimeout = 30 * time.Minute

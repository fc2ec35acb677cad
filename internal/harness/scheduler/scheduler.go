// Package scheduler implements the bounded agent-loop state machine of
// 4.F: generate -> dispatch tools -> verify -> recover, in fixed guard
// order, grounded on agent_verify.harness.AgentHarness.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/agent-verify/harness/internal/harness"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/eventlog"
	recoverstrategy "github.com/agent-verify/harness/internal/harness/recover"
	"github.com/agent-verify/harness/internal/harness/tools"
	"github.com/agent-verify/harness/internal/harness/tracing"
	"github.com/agent-verify/harness/internal/harness/transport"
	"github.com/agent-verify/harness/internal/harness/verify"
)

const taskCompleteMarker = "TASK_COMPLETE"

// Granularity is the verification granularity of §4.F: G1 task-end-only,
// G2 per-feature, G3 per-step. G2 is implemented identically to G1 — both
// verify only when the agent declares completion — since the spec names no
// feature-boundary signal a scheduler could detect on its own; a reader
// wanting true per-feature granularity would need a task-specific feature
// boundary marker the benchmark does not supply.
type Granularity string

const (
	GranularityTaskEnd   Granularity = "task_end_only"
	GranularityPerFeature Granularity = "per_feature"
	GranularityPerStep   Granularity = "per_step"
)

// Config is a single harness run's tunables, grounded on
// agent_verify.config.HarnessConfig.
type Config struct {
	Model                  string
	MaxTokens              int
	Temperature            float64
	VerificationMethod     string
	VerificationGranularity Granularity
	RecoveryStrategy       string
	MaxIterations          int
	MaxRecoveryAttempts    int
	MaxTokensBudget        int64
	TimeoutSeconds         int
	SystemPrompt           string
	WorkspaceDir           string
}

const defaultSystemPrompt = "You are a software engineering agent. You can read and write files, " +
	"execute bash commands, and use git. Complete the given task by modifying " +
	"the codebase as needed. When you believe the task is complete, state " +
	"'TASK_COMPLETE' in your response."

// DefaultConfig returns the harness defaults from §4.F / §6.
func DefaultConfig() Config {
	return Config{
		Model:                   "claude-sonnet-4-6",
		MaxTokens:               8192,
		Temperature:             0.0,
		VerificationMethod:      "none",
		VerificationGranularity: GranularityTaskEnd,
		RecoveryStrategy:        "retry_in_context",
		MaxIterations:           50,
		MaxRecoveryAttempts:     3,
		MaxTokensBudget:         500_000,
		TimeoutSeconds:          600,
		SystemPrompt:            defaultSystemPrompt,
		WorkspaceDir:            "/tmp/agent-workspace",
	}
}

// Scheduler runs the bounded agent loop for one task.
type Scheduler struct {
	Config    Config
	Transport transport.ModelTransport
	Tools     *tools.Registry
	Verifier  verify.Verifier
	Recovery  recoverstrategy.Strategy
	Logger    *eventlog.Logger
	Tracer    *tracing.Tracer // optional; nil disables spans (§11)
}

// New wires a Scheduler from its Config and the resolved strategy pieces.
func New(cfg Config, t transport.ModelTransport, registry *tools.Registry, logger *eventlog.Logger) *Scheduler {
	return &Scheduler{
		Config:    cfg,
		Transport: t,
		Tools:     registry,
		Verifier:  verify.New(cfg.VerificationMethod),
		Recovery:  recoverstrategy.New(cfg.RecoveryStrategy, t),
		Logger:    logger,
	}
}

// Run executes the full agent loop for task and returns its Result (§4.F
// Termination). A harness-level exception during the loop becomes a
// "harness_error" completion reason rather than propagating, matching
// agent_verify.harness.AgentHarness.run's try/except boundary.
func (s *Scheduler) Run(ctx context.Context, task benchmark.Task) benchmark.Result {
	if task.WorkspaceDir == "" {
		task.WorkspaceDir = s.Config.WorkspaceDir
	}

	if s.Logger != nil {
		s.Logger.LogRunStart(task.TaskID, map[string]any{
			"model":                s.Config.Model,
			"verification_method":  s.Config.VerificationMethod,
			"recovery_strategy":    s.Config.RecoveryStrategy,
			"max_iterations":       s.Config.MaxIterations,
		})
	}

	convo := harness.NewContext()
	convo.AddUserMessage(task.Description)

	result := s.runLoop(ctx, convo, task)

	if s.Logger != nil {
		s.Logger.LogRunEnd(task.TaskID, map[string]any{
			"resolved":           result.Resolved,
			"completion_reason":  result.CompletionReason,
			"tokens":             result.InputTokens + result.OutputTokens,
			"wall_clock_seconds": result.WallClockSeconds,
		})
	}
	return result
}

// runLoop is the core generate/execute/verify/recover state machine (4.F).
// It recurses when recovery produces a new *harness.Context (R2/R3),
// propagating the inner terminal reason and counters back to the caller.
func (s *Scheduler) runLoop(ctx context.Context, convo *harness.Context, task benchmark.Task) (result benchmark.Result) {
	defer func() {
		if r := recover(); r != nil {
			convo.MarkTerminal("harness_error")
			result = s.buildResult(convo, task)
		}
	}()

	for !convo.Terminal {
		// Guards, checked in fixed order before each generation (4.F).
		if convo.IterationCount >= s.Config.MaxIterations {
			convo.MarkTerminal("max_iterations")
			break
		}
		if convo.Usage.Total() >= s.Config.MaxTokensBudget {
			convo.MarkTerminal("token_budget")
			break
		}
		if convo.ElapsedSeconds() >= float64(s.Config.TimeoutSeconds) {
			convo.MarkTerminal("timeout")
			break
		}

		iterCtx := ctx
		var iterSpan trace.Span
		if s.Tracer != nil {
			iterCtx, iterSpan = s.Tracer.StartIteration(ctx, task.TaskID, convo.IterationCount+1)
		}

		resp, err := s.Transport.Generate(iterCtx, transport.Request{
			Messages:    convo.Messages,
			System:      s.Config.SystemPrompt,
			Tools:       transportSchemas(s.Tools),
			MaxTokens:   s.Config.MaxTokens,
			Temperature: s.Config.Temperature,
		})
		if iterSpan != nil {
			s.Tracer.RecordError(iterSpan, err)
			iterSpan.End()
		}
		if err != nil {
			convo.MarkTerminal("harness_error")
			break
		}

		convo.Usage.Add(resp.InputTokens, resp.OutputTokens, resp.CacheCreationInput, resp.CacheReadInput, resp.CostUSD)
		convo.IterationCount++

		if s.Logger != nil {
			s.Logger.LogLLMCall(task.TaskID, convo.IterationCount, resp.InputTokens, resp.OutputTokens,
				string(resp.StopReason), resp.HasToolUse(), resp.CacheCreationInput, resp.CacheReadInput, resp.CostUSD)
		}

		convo.AddAssistantMessage(resp.Content)

		if resp.HasToolUse() {
			for _, toolUse := range resp.ToolUses() {
				resultText := s.executeTool(ctx, toolUse, task, convo)
				convo.AddToolResultMessage(toolUse.ToolUseID, resultText, false)

				if s.Config.VerificationGranularity == GranularityPerStep {
					if done := s.runVerification(ctx, convo, task); !done {
						continue
					}
					return s.buildResult(convo, task)
				}
			}
			continue
		}

		// No tool use: either the agent declares completion or it stopped
		// without doing either (4.F).
		text := resp.TextContent()
		if containsTaskComplete(text) {
			convo.MarkTerminal("agent_declared")
			if done := s.runVerification(ctx, convo, task); done {
				return s.buildResult(convo, task)
			}
			// Recovery (R1) un-terminated the context; loop continues.
			continue
		}
		if resp.StopReason == transport.StopEndTurn {
			convo.AddUserMessage("Please continue working on the task. When done, include 'TASK_COMPLETE' in your response.")
		}
	}

	return s.buildResult(convo, task)
}

// transportSchemas converts the registry's tool schemas to the transport
// package's decoupled mirror type (transport.go keeps no dependency on the
// tools package).
func transportSchemas(registry *tools.Registry) []transport.ToolSchema {
	schemas := registry.AsSchemas()
	out := make([]transport.ToolSchema, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, transport.ToolSchema{Name: s.Name, Description: s.Description, Parameters: s.Parameters})
	}
	return out
}

func containsTaskComplete(text string) bool {
	return len(text) > 0 && indexOf(text, taskCompleteMarker) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// executeTool dispatches a single tool_use content block and records its
// ToolCallRecord (4.F Dispatch).
func (s *Scheduler) executeTool(ctx context.Context, toolUse harness.ContentBlock, task benchmark.Task, convo *harness.Context) string {
	toolCtx := ctx
	var toolSpan trace.Span
	if s.Tracer != nil {
		toolCtx, toolSpan = s.Tracer.StartToolCall(ctx, task.TaskID, toolUse.ToolName)
	}

	start := time.Now()
	result, err := s.Tools.Execute(toolCtx, toolUse.ToolName, toolUse.ToolInput)
	duration := time.Since(start)

	if toolSpan != nil {
		s.Tracer.RecordError(toolSpan, err)
		toolSpan.End()
	}

	var text string
	if err != nil {
		text = fmt.Sprintf("Error: %v", err)
	} else {
		text = result.Content
	}

	convo.RecordToolCall(harness.ToolCallRecord{
		ToolUseID: toolUse.ToolUseID,
		ToolName:  toolUse.ToolName,
		Arguments: toolUse.ToolInput,
		Result:    text,
		Timestamp: start,
		Duration:  duration,
	})

	if s.Logger != nil {
		s.Logger.LogToolCall(task.TaskID, toolUse.ToolName, duration.Seconds())
	}
	return text
}

// runVerification runs the configured Verifier and, on failure, the
// configured Recovery strategy (4.F Verify/Recover). The max-recovery bound
// is checked against convo.RecoveryCount, which every strategy (R1 in
// place, R2/R3 on the new context they return) increments on each attempt,
// so the bound holds regardless of which strategy is configured. Returns
// true when the loop is done (verification passed, or max recovery attempts
// exceeded, or a recursive R2/R3 sub-loop has already produced a final
// result copied back into convo); false when an R1-style in-place retry
// should continue the same loop iteration.
func (s *Scheduler) runVerification(ctx context.Context, convo *harness.Context, task benchmark.Task) bool {
	verifyCtx := ctx
	var verifySpan trace.Span
	if s.Tracer != nil {
		verifyCtx, verifySpan = s.Tracer.StartVerification(ctx, task.TaskID, s.Verifier.MethodName())
	}
	verdict := s.Verifier.Verify(verifyCtx, convo, task, s.Transport)
	if verifySpan != nil {
		verifySpan.End()
	}
	convo.VerificationCount++

	if s.Logger != nil {
		s.Logger.LogVerification(task.TaskID, verdict.Passed, verdict.Message, s.Verifier.MethodName(), verdict.TokenCost)
	}

	if verdict.Passed {
		convo.MarkTerminal("verified")
		return true
	}

	if convo.RecoveryCount >= s.Config.MaxRecoveryAttempts {
		convo.MarkTerminal("max_recovery")
		return true
	}

	if s.Logger != nil {
		s.Logger.LogRecovery(task.TaskID, s.Recovery.StrategyName(), convo.RecoveryCount+1)
	}

	next := s.Recovery.Recover(ctx, convo, verdict, task)

	if next != convo {
		// R2/R3: recurse on the new context and propagate its outcome.
		inner := s.runLoop(ctx, next, task)
		convo.MarkTerminal(inner.CompletionReason)
		convo.Usage = next.Usage
		convo.IterationCount = next.IterationCount
		convo.ToolCalls = next.ToolCalls
		convo.VerificationCount = next.VerificationCount
		convo.RecoveryCount = next.RecoveryCount
		return true
	}

	// R1: same context, continue the loop.
	convo.Terminal = false
	return false
}

func (s *Scheduler) buildResult(convo *harness.Context, task benchmark.Task) benchmark.Result {
	return benchmark.Result{
		TaskID:             task.TaskID,
		Resolved:           convo.TerminalReason == "verified",
		InputTokens:        convo.Usage.InputTokens,
		OutputTokens:       convo.Usage.OutputTokens,
		CacheCreationInput: convo.Usage.CacheCreationInput,
		CacheReadInput:     convo.Usage.CacheReadInput,
		CostUSD:            convo.Usage.CostUSD,
		WallClockSeconds:   convo.ElapsedSeconds(),
		ToolCallCount:      len(convo.ToolCalls),
		VerificationCount:  convo.VerificationCount,
		RecoveryCount:      convo.RecoveryCount,
		Iterations:         convo.IterationCount,
		CompletionReason:   convo.TerminalReason,
	}
}

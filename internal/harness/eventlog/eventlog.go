// Package eventlog implements the append-only NDJSON experiment event log
// of 4.H: one file per experiment, flushed after every event, recording the
// six event kinds {run_start, llm_call, tool_call, verification, recovery,
// run_end}. Grounded on agent_verify.logging.logger.ExperimentLogger and the
// teacher's structured slog-based audit.Logger (internal/audit/logger.go),
// simplified to the spec's synchronous flush-per-event discipline rather
// than the teacher's buffered async writer.
package eventlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes one NDJSON line per event to <output_dir>/<experiment_id>.jsonl.
type Logger struct {
	experimentID string
	mu           sync.Mutex
	file         *os.File
	slog         *slog.Logger
}

// New opens (creating parent directories as needed) the experiment's event
// log file for appending.
func New(experimentID, outputDir string) (*Logger, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outputDir, experimentID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Logger{
		experimentID: experimentID,
		file:         f,
		slog:         slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}, nil
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) writeEvent(event map[string]any) {
	if l == nil || l.file == nil {
		return
	}
	event["event_id"] = uuid.NewString()
	event["experiment_id"] = l.experimentID
	event["timestamp"] = time.Now().Unix()

	l.mu.Lock()
	defer l.mu.Unlock()

	encoded, err := json.Marshal(event)
	if err != nil {
		l.slog.Error("encode event", "error", err)
		return
	}
	if _, err := l.file.Write(append(encoded, '\n')); err != nil {
		l.slog.Error("write event", "error", err)
		return
	}
	_ = l.file.Sync()
}

func (l *Logger) LogRunStart(taskID string, config map[string]any) {
	l.writeEvent(map[string]any{"event": "run_start", "task_id": taskID, "config": config})
}

func (l *Logger) LogLLMCall(taskID string, iteration int, inputTokens, outputTokens int64, stopReason string, hasToolUse bool, cacheCreationInput, cacheReadInput int64, costUSD float64) {
	l.writeEvent(map[string]any{
		"event":                       "llm_call",
		"task_id":                     taskID,
		"iteration":                   iteration,
		"input_tokens":                inputTokens,
		"output_tokens":               outputTokens,
		"cache_creation_input_tokens": cacheCreationInput,
		"cache_read_input_tokens":     cacheReadInput,
		"cost_usd":                    costUSD,
		"stop_reason":                 stopReason,
		"has_tool_use":                hasToolUse,
	})
}

func (l *Logger) LogToolCall(taskID, toolName string, durationSeconds float64) {
	l.writeEvent(map[string]any{
		"event":            "tool_call",
		"task_id":          taskID,
		"tool_name":        toolName,
		"duration_seconds": durationSeconds,
	})
}

func (l *Logger) LogVerification(taskID string, passed bool, message string, method string, tokenCost int64) {
	if len(message) > 1000 {
		message = message[:1000]
	}
	l.writeEvent(map[string]any{
		"event":      "verification",
		"task_id":    taskID,
		"method":     method,
		"passed":     passed,
		"message":    message,
		"token_cost": tokenCost,
	})
}

func (l *Logger) LogRecovery(taskID, strategy string, attempt int) {
	l.writeEvent(map[string]any{
		"event":    "recovery",
		"task_id":  taskID,
		"strategy": strategy,
		"attempt":  attempt,
	})
}

func (l *Logger) LogRunEnd(taskID string, result map[string]any) {
	l.writeEvent(map[string]any{"event": "run_end", "task_id": taskID, "result": result})
}

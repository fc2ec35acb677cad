package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// installBlocklist matches commands that would install packages into the
// ambient runtime rather than the task's own dependency set (§4.B). Matches
// are refused before any subprocess is spawned.
var installBlocklist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)pip\s+install\s+(-e|--editable)\b`),
	regexp.MustCompile(`(?i)\bsetup\.py\s+(develop|install)\b`),
	regexp.MustCompile(`(?i)\bpip\s+install\s+.*--target\s+/(usr|opt)\b`),
}

const defaultBashTimeout = 120 * time.Second

// BashTool implements bash(command) (4.B), grounded on
// internal/tools/exec/tools.go's ExecTool, minus background-process support
// (not named by the spec) and with the install blocklist added.
type BashTool struct {
	workspace string
	timeout   time.Duration
}

func NewBashTool(workspace string) *BashTool {
	return &BashTool{workspace: workspace, timeout: defaultBashTimeout}
}

func (t *BashTool) Name() string        { return "bash" }
func (t *BashTool) Description() string { return "Run a shell command in the workspace directory." }

type bashArgs struct {
	Command string `json:"command" jsonschema:"required,description=Shell command to execute."`
}

func (t *BashTool) Schema() json.RawMessage { return GenerateSchema(bashArgs{}) }

func (t *BashTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	command, _ := args["command"].(string)
	command = strings.TrimSpace(command)
	if command == "" {
		return &ToolResult{Content: "Error: command is required", IsError: true}, nil
	}

	for _, pattern := range installBlocklist {
		if pattern.MatchString(command) {
			return &ToolResult{
				Content: fmt.Sprintf("Error: command blocked by install policy: %s", command),
				IsError: true,
			}, nil
		}
	}

	timeout := t.timeout
	if timeout <= 0 {
		timeout = defaultBashTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	cmd.Dir = t.workspace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var output strings.Builder
	output.Write(stdout.Bytes())
	if stderr.Len() > 0 {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.Write(stderr.Bytes())
	}

	if runCtx.Err() != nil {
		return &ToolResult{
			Content: fmt.Sprintf("Error: command timed out after %s", timeout),
			IsError: true,
		}, nil
	}

	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error executing command: %v", err), IsError: true}, nil
	}
	if exitCode != 0 {
		output.WriteString(fmt.Sprintf("\n[Exit code: %d]", exitCode))
	}

	result := output.String()
	if result == "" {
		result = "[No output]"
	}
	// A non-zero exit is a normal tool outcome (e.g. a failing test run),
	// not a tool-execution error — it is reported to the model as content,
	// not flagged as IsError.
	return &ToolResult{Content: result}, nil
}

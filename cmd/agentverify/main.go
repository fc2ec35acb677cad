// Package main provides the CLI entry point for agentverify, an experiment
// harness for evaluating LLM-driven autonomous code-repair agents.
//
// agentverify drives a bounded generate -> tool-dispatch -> verify -> recover
// loop against SWE-bench-style tasks, across Anthropic and OpenAI-compatible
// model transports, and reports resolve rate, token usage, and cost.
//
// # Basic Usage
//
// Run a single task:
//
//	agentverify run --config harness.yaml --task-id django__django-12345
//
// Run a full experiment across trials and a worker pool:
//
//	agentverify batch --config experiment.yaml
//
// Grade collected patches against an external evaluation harness:
//
//	agentverify grade --patches results/patches --run-id exp-001 --dataset-name princeton-nlp/SWE-bench_Lite
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT-family and OpenAI-compatible models
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP collector endpoint for trace export (§11)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentverify",
		Short: "agentverify - autonomous code-repair agent evaluation harness",
		Long: `agentverify runs LLM-driven agents against code-repair benchmarks under a
bounded generate -> tool-dispatch -> verify -> recover loop, then grades the
resulting patches and reports resolve rate, token usage, and cost.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildBatchCmd(),
		buildGradeCmd(),
	)

	return rootCmd
}

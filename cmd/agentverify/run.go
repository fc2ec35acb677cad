package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agent-verify/harness/internal/harness/batch"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/scheduler"
	"github.com/agent-verify/harness/internal/harness/tracing"
)

// buildRunCmd creates the "run" command: a single agent-loop invocation
// against one task, for local iteration on a harness config (§4.F).
func buildRunCmd() *cobra.Command {
	var (
		configPath  string
		taskID      string
		description string
		repo        string
		baseCommit  string
		testCommand string
		workspace   string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent loop once against a single task",
		Long: `Run loads a harness configuration document and executes the bounded
generate -> tool-dispatch -> verify -> recover loop (§4.F) against one
task, printing the resulting Result as JSON.`,
		Example: `  # Run against an ad-hoc task description
  agentverify run --config harness.yaml --task-id demo-1 \
    --description "Fix the off-by-one in pagination" --workspace ./scratch

  # Run a SWE-bench task loaded separately and piped through --test-command
  agentverify run --config harness.yaml --task-id django__django-12345 \
    --repo django/django --base-commit abc123 --test-command "python -m pytest -x"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := batch.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if workspace != "" {
				cfg.Harness.WorkspaceDir = workspace
			}

			transport, err := buildTransport(cfg.Harness.LLM)
			if err != nil {
				return err
			}
			registry, err := buildToolRegistry(cfg.Harness.WorkspaceDir)
			if err != nil {
				return err
			}
			logger := buildEventLogger(taskID, cfg.OutputDir)
			if logger != nil {
				defer logger.Close()
			}

			tracer, shutdown := tracing.New(tracing.Config{ServiceName: "agentverify"})
			defer func() { _ = shutdown(context.Background()) }()

			sched := scheduler.New(cfg.Harness.ToSchedulerConfig(), transport, registry, logger)
			sched.Tracer = tracer

			task := benchmark.Task{
				TaskID:       taskID,
				Description:  description,
				Repo:         repo,
				BaseCommit:   baseCommit,
				TestCommand:  testCommand,
				WorkspaceDir: cfg.Harness.WorkspaceDir,
			}

			runCtx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, timeout)
				defer cancel()
			}

			result := sched.Run(runCtx, task)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "harness.yaml", "Path to harness configuration YAML file")
	cmd.Flags().StringVar(&taskID, "task-id", "adhoc-task", "Identifier for this run")
	cmd.Flags().StringVar(&description, "description", "", "Task description handed to the agent as the initial user message")
	cmd.Flags().StringVar(&repo, "repo", "", "Origin repository for the task, if any")
	cmd.Flags().StringVar(&baseCommit, "base-commit", "", "Base commit recorded on the task (not checked out by this command)")
	cmd.Flags().StringVar(&testCommand, "test-command", "", "Shell command the test_execution verifier runs")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace directory override (defaults to the config's workspace_dir)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultRunTimeout, "Wall-clock timeout for the run")

	return cmd
}

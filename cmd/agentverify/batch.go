package main

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agent-verify/harness/internal/harness/batch"
	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/eventlog"
)

// buildBatchCmd creates the "batch" command: a full experiment across every
// task in a dataset, every configured trial, fanned out across a worker
// pool (§4.G).
func buildBatchCmd() *cobra.Command {
	var (
		configPath    string
		datasetPath   string
		dbPath        string
		metricsAddr   string
		eventsAddr    string
		workerWidth   int
		provisionRoot string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a full experiment: every task, every trial, worker-pool fan-out",
		Long: `Batch loads an experiment configuration document, loads the named
SWE-bench-style dataset, provisions a workspace per task, then runs every
(trial, task) pair through the scheduler across a bounded worker pool
(default width 10), recording results to SQLite and a summary JSON file.`,
		Example: `  # Run every task named in the config's instance_ids, 3 trials each
  agentverify batch --config experiment.yaml --dataset swebench_lite.jsonl

  # Serve live metrics and websocket progress events while the batch runs
  agentverify batch --config experiment.yaml --dataset swebench_lite.jsonl \
    --metrics-addr :9090 --events-addr :9091`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := batch.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			dataset := datasetPath
			if dataset == "" {
				dataset = cfg.Benchmark
			}
			if dataset == "" {
				return fmt.Errorf("no dataset path given (set --dataset or the config's benchmark field)")
			}

			tasks, err := benchmark.LoadSWEBenchTasks(dataset, cfg.InstanceIDs)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			if len(tasks) == 0 {
				return fmt.Errorf("dataset %s produced no tasks", dataset)
			}

			transport, err := buildTransport(cfg.Harness.LLM)
			if err != nil {
				return err
			}
			registry, err := buildToolRegistry(cfg.Harness.WorkspaceDir)
			if err != nil {
				return err
			}

			var logger *eventlog.Logger
			if l := buildEventLogger(cfg.ExperimentID, cfg.OutputDir); l != nil {
				logger = l
				defer logger.Close()
			}

			metrics := batch.NewMetrics()
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				go func() { _ = http.ListenAndServe(metricsAddr, mux) }()
				fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on %s/metrics\n", metricsAddr)
			}

			hub := batch.NewEventHub()
			if eventsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/events", hub)
				go func() { _ = http.ListenAndServe(eventsAddr, mux) }()
				fmt.Fprintf(cmd.OutOrStdout(), "Serving progress events on %s/events\n", eventsAddr)
			}

			if dbPath == "" {
				dbPath = filepath.Join(cfg.OutputDir, cfg.ExperimentID+".sqlite")
			}
			store, err := batch.OpenStore(dbPath)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer store.Close()

			if provisionRoot == "" {
				provisionRoot = filepath.Join(cfg.OutputDir, "workspaces")
			}

			runner := &batch.Runner{
				Config:          cfg,
				Transport:       transport,
				Tools:           registry,
				Logger:          logger,
				Provisioner:     batch.GitProvisioner{Root: provisionRoot},
				Metrics:         metrics,
				Hub:             hub,
				Store:           store,
				WorkerPoolWidth: workerWidth,
			}

			results, err := runner.Run(cmd.Context(), tasks)
			if err != nil {
				return fmt.Errorf("run batch: %w", err)
			}

			summary := batch.BuildSummary(cfg.ExperimentID, results)
			path, err := batch.WriteSummary(summary, cfg.OutputDir)
			if err != nil {
				return fmt.Errorf("write summary: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Resolved %.1f%% of %d runs, $%.4f total, summary written to %s\n",
				summary.ResolveRate*100, len(results), summary.TotalCostUSD, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "experiment.yaml", "Path to experiment configuration YAML file")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to a SWE-bench-style JSONL dataset (overrides the config's benchmark field)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite result store path (default: <output_dir>/<experiment_id>.sqlite)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")
	cmd.Flags().StringVar(&eventsAddr, "events-addr", "", "Address to serve the websocket progress event hub on, e.g. :9091 (disabled if empty)")
	cmd.Flags().IntVar(&workerWidth, "workers", 0, "Worker pool width (0 uses the runner's default of 10)")
	cmd.Flags().StringVar(&provisionRoot, "workspace-root", "", "Root directory under which per-task workspaces are cloned (default: <output_dir>/workspaces)")

	return cmd
}

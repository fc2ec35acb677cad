package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agent-verify/harness/internal/harness/benchmark"
	"github.com/agent-verify/harness/internal/harness/eventlog"
	"github.com/agent-verify/harness/internal/harness/scheduler"
	"github.com/agent-verify/harness/internal/harness/tools"
	"github.com/agent-verify/harness/internal/harness/transport"
)

// defaultWorkerPoolWidth is the batch runner's default fan-out width (§4.G).
const defaultWorkerPoolWidth = 10

// Runner executes a full experiment: sequential workspace provisioning,
// then a worker-pool fan-out of one scheduler invocation per (trial, task)
// pair, grounded on agent_verify's run_experiment.py trial loop, widened
// into concurrent workers per §4.G (the original ran every task
// sequentially; the spec calls for a configurable worker pool instead).
type Runner struct {
	Config      ExperimentConfig
	Transport   transport.ModelTransport
	Tools       *tools.Registry
	Logger      *eventlog.Logger
	Provisioner Provisioner
	Metrics     *Metrics
	Hub         *EventHub
	Store       *Store

	// WorkerPoolWidth overrides defaultWorkerPoolWidth when positive.
	WorkerPoolWidth int
}

// trialTask pairs one task with the trial number it's running under.
type trialTask struct {
	trial int
	task  benchmark.Task
}

// Run executes every trial of every task, returning all results in
// completion order (not task order — callers that need task order should
// sort on Result.TaskID).
func (r *Runner) Run(ctx context.Context, tasks []benchmark.Task) ([]benchmark.Result, error) {
	width := r.WorkerPoolWidth
	if width <= 0 {
		width = defaultWorkerPoolWidth
	}

	// Provision every (trial, task) workspace sequentially first, to avoid
	// concurrent clones of the same origin racing on disk (§4.G).
	work := make([]trialTask, 0, len(tasks)*r.Config.NumTrials)
	var provisionFailures []benchmark.Result
	for trial := 1; trial <= r.Config.NumTrials; trial++ {
		for _, task := range tasks {
			provisioned := task
			if r.Provisioner != nil {
				dir, err := r.Provisioner.Provision(ctx, task)
				if err != nil {
					// Provisioning errors are recorded as a non-running result
					// and the runner moves on (§7 error taxonomy (f)).
					provisionFailures = append(provisionFailures, benchmark.Result{
						TaskID:           task.TaskID,
						CompletionReason: "provision_error",
						Error:            err.Error(),
					})
					if r.Store != nil {
						_ = r.Store.Save(ctx, r.Config.ExperimentID, trial, provisionFailures[len(provisionFailures)-1])
					}
					continue
				}
				provisioned.WorkspaceDir = dir
			}
			work = append(work, trialTask{trial: trial, task: provisioned})
		}
	}

	results := make([]benchmark.Result, 0, len(work)+len(provisionFailures))
	results = append(results, provisionFailures...)
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := make(chan struct{}, width)
	for _, item := range work {
		item := item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result := r.runOne(ctx, item)

			mu.Lock()
			results = append(results, result)
			if r.Store != nil {
				// Best-effort: a store write failure must not fail the batch.
				_ = r.Store.Save(ctx, r.Config.ExperimentID, item.trial, result)
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results, nil
}

// runOne runs a single (trial, task) pair through a fresh Scheduler
// instance, recovering from a harness-level panic into an "exception"
// result so one misbehaving worker never takes down the pool (§4.G:
// "a scheduler failure... is captured as a result with
// terminal-reason=harness_error or exception").
func (r *Runner) runOne(ctx context.Context, item trialTask) (result benchmark.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = benchmark.Result{
				TaskID:           item.task.TaskID,
				CompletionReason: "exception",
				Error:            fmt.Sprintf("%v", rec),
			}
		}
	}()

	if r.Metrics != nil {
		r.Metrics.TasksRunning.Inc()
		defer r.Metrics.TasksRunning.Dec()
	}
	if r.Hub != nil {
		r.Hub.Broadcast(Event{Type: "task_start", ExperimentID: r.Config.ExperimentID, Trial: item.trial, TaskID: item.task.TaskID})
	}

	start := time.Now()
	sched := scheduler.New(r.Config.Harness.ToSchedulerConfig(), r.Transport, r.Tools, r.Logger)
	res := sched.Run(ctx, item.task)

	if r.Metrics != nil {
		r.Metrics.RunDuration.Observe(time.Since(start).Seconds())
		r.Metrics.TasksCompleted.WithLabelValues(fmt.Sprintf("%t", res.Resolved)).Inc()
		r.Metrics.TokensUsed.WithLabelValues("input").Add(float64(res.InputTokens))
		r.Metrics.TokensUsed.WithLabelValues("output").Add(float64(res.OutputTokens))
		r.Metrics.CostUSD.Add(res.CostUSD)
	}
	if r.Hub != nil {
		r.Hub.Broadcast(Event{Type: "task_complete", ExperimentID: r.Config.ExperimentID, Trial: item.trial, TaskID: item.task.TaskID, Resolved: res.Resolved})
	}

	return res
}

// Summary is the aggregate document emitted after every trial completes
// (§4.G / §6 "Summary document").
type Summary struct {
	ExperimentID     string              `json:"experiment_id"`
	ResolveRate      float64             `json:"resolve_rate"`
	TotalCostUSD     float64             `json:"total_cost_usd"`
	CacheHitRate     float64             `json:"cache_hit_rate"`
	MeanWallClockSec float64             `json:"mean_wall_clock_seconds"`
	Results          []benchmark.Result  `json:"results"`
}

// BuildSummary aggregates resolve rate, total cost, cache-hit rate, and
// mean wall-clock across results (§4.G).
func BuildSummary(experimentID string, results []benchmark.Result) Summary {
	summary := Summary{ExperimentID: experimentID, Results: results}
	if len(results) == 0 {
		return summary
	}

	var resolved int
	var totalCost, totalWallClock float64
	var totalInput, totalCacheRead int64
	for _, res := range results {
		if res.Resolved {
			resolved++
		}
		totalCost += res.CostUSD
		totalWallClock += res.WallClockSeconds
		totalInput += res.InputTokens + res.CacheCreationInput + res.CacheReadInput
		totalCacheRead += res.CacheReadInput
	}

	summary.ResolveRate = float64(resolved) / float64(len(results))
	summary.TotalCostUSD = totalCost
	summary.MeanWallClockSec = totalWallClock / float64(len(results))
	if totalInput > 0 {
		summary.CacheHitRate = float64(totalCacheRead) / float64(totalInput)
	}
	return summary
}

// WriteSummary renders the summary as indented JSON to
// <outputDir>/<experimentID>_summary.json (§6).
func WriteSummary(summary Summary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outputDir, summary.ExperimentID+"_summary.json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

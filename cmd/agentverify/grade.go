package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agent-verify/harness/internal/harness/grader"
)

// buildGradeCmd creates the "grade" command: builds a predictions document
// from collected patches and invokes the external grading harness (§4.I).
func buildGradeCmd() *cobra.Command {
	var (
		patchDir        string
		runName         string
		predictionsPath string
		graderCommand   string
		datasetName     string
		runID           string
		maxWorkers      int
		cacheLevel      string
		timeoutSeconds  int
		reportDir       string
		buildOnly       bool
	)

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Build a predictions document and invoke the external grader",
		Long: `Grade reads a directory of per-task *.diff patches, filters out hunks that
only touch test files, writes a SWE-bench-style predictions.json document,
and (unless --build-only) invokes the external grading harness as a
subprocess with a scrubbed environment (§4.I) so the grader's own virtualenv
never leaks into the target repository's python environment.`,
		Example: `  # Build predictions.json only, for manual inspection
  agentverify grade --patches results/patches --build-only

  # Build and grade in one step
  agentverify grade --patches results/patches --run-id exp-001 \
    --dataset-name princeton-nlp/SWE-bench_Lite --grader-command sb-cli`,
		RunE: func(cmd *cobra.Command, args []string) error {
			preds, err := grader.BuildPredictions(patchDir, runName)
			if err != nil {
				return fmt.Errorf("build predictions: %w", err)
			}
			if err := grader.WritePredictions(preds, predictionsPath); err != nil {
				return fmt.Errorf("write predictions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d predictions to %s\n", len(preds), predictionsPath)

			if buildOnly {
				return nil
			}

			output, err := grader.Invoke(cmd.Context(), grader.Options{
				GraderCommand:   graderCommand,
				PredictionsPath: predictionsPath,
				DatasetName:     datasetName,
				RunID:           runID,
				MaxWorkers:      maxWorkers,
				CacheLevel:      cacheLevel,
				TimeoutSeconds:  timeoutSeconds,
				ReportDir:       reportDir,
			})
			if err != nil {
				return fmt.Errorf("invoke grader: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&patchDir, "patches", "results/patches", "Directory of per-task *.diff patch files")
	cmd.Flags().StringVar(&runName, "run-name", "agentverify", "model_name_or_path recorded in each prediction")
	cmd.Flags().StringVar(&predictionsPath, "predictions-path", "results/predictions.json", "Where to write the predictions document")
	cmd.Flags().StringVar(&graderCommand, "grader-command", "sb-cli", "External grading harness executable")
	cmd.Flags().StringVar(&datasetName, "dataset-name", "", "Benchmark dataset name passed to the grader")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier passed to the grader")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 4, "Grader's own worker count")
	cmd.Flags().StringVar(&cacheLevel, "cache-level", "env", "Grader cache level (env/instance/none)")
	cmd.Flags().IntVar(&timeoutSeconds, "grader-timeout", 1800, "Grader subprocess timeout in seconds")
	cmd.Flags().StringVar(&reportDir, "report-dir", "results/report", "Directory the grader writes its report into")
	cmd.Flags().BoolVar(&buildOnly, "build-only", false, "Only build and write the predictions document; don't invoke the grader")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imishinist/fe-bench/internal/config"
	"github.com/imishinist/fe-bench/internal/driver"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark flows",
	Long: `Build and serve every selected application, then drive each selected
flow against it the configured number of times. Raw records go to
<results-dir>/raw and per-pair summaries to <results-dir>/summary.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSelectionFlags(runCmd)
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("tech", []string{}, "Technology id to run (repeatable, default: all)")
	cmd.Flags().StringArray("flow", []string{}, "Flow name to run (repeatable, default: all)")
	cmd.Flags().Int("runs", 0, "Repetitions per flow (overrides the suite file)")
}

// buildSelection constructs the Selection from command flags
func buildSelection(cmd *cobra.Command) (config.Selection, error) {
	techs, _ := cmd.Flags().GetStringArray("tech")
	flows, _ := cmd.Flags().GetStringArray("flow")
	runs, _ := cmd.Flags().GetInt("runs")

	if cmd.Flags().Changed("runs") && runs <= 0 {
		return config.Selection{}, fmt.Errorf("invalid --runs: %d (must be a positive integer)", runs)
	}
	return config.Selection{Techs: techs, Flows: flows, Runs: runs}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	sel, err := buildSelection(cmd)
	if err != nil {
		return err
	}

	suite, plan, err := loadPlan(cfg, sel)
	if err != nil {
		return err
	}

	results, err := runBenchmark(cmd.Context(), cfg, suite, plan, log)
	printResults(cmd, results)
	return err
}

func printResults(cmd *cobra.Command, results []driver.PairResult) {
	out := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(out, "%s/%s: %d/%d runs succeeded, %d summary rows -> %s\n",
			r.Tech, r.Flow, r.Succeeded, r.Attempted, r.Rows, r.SummaryPath)
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run, aggregate, chart and report in one go",
	Long: `Run the benchmark, then aggregate, chart and report. Aggregation still
happens when some technologies failed; the command exits non-zero afterwards.`,
	RunE: runAll,
}

func init() {
	rootCmd.AddCommand(allCmd)
	addSelectionFlags(allCmd)
}

func runAll(cmd *cobra.Command, args []string) error {
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

	results, runErr := runBenchmark(cmd.Context(), cfg, suite, plan, log)
	printResults(cmd, results)
	if cmd.Context().Err() != nil {
		return runErr
	}

	doc, _, err := aggregate(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to aggregate: %w", err)
	}
	if _, err := renderCharts(cfg, doc, log); err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	paths, err := writeReport(cfg, doc, log)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return runErr
}

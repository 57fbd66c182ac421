package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Merge summaries into a cross-technology comparison",
	Long: `Read every summary file under <results-dir>/summary and write
analysis/data.json, analysis/combined.csv and analysis/combined.xlsx.`,
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	_, paths, err := aggregate(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to aggregate: %w", err)
	}
	for _, key := range []string{"json", "csv", "xlsx"} {
		fmt.Fprintln(cmd.OutOrStdout(), paths[key])
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "Render comparison charts",
	Long:  "Render one PNG per (flow, metric) from analysis/data.json into <results-dir>/charts.",
	RunE:  runCharts,
}

func init() {
	rootCmd.AddCommand(chartsCmd)
}

func runCharts(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	doc, err := loadAnalysis(cfg, log)
	if err != nil {
		return err
	}
	generated, err := renderCharts(cfg, doc, log)
	if err != nil {
		return fmt.Errorf("failed to render charts: %w", err)
	}
	for _, g := range generated {
		fmt.Fprintln(cmd.OutOrStdout(), g.Path)
	}
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the markdown and HTML reports",
	Long:  "Write analysis/report.md and analysis/index.html from analysis/data.json.",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	doc, err := loadAnalysis(cfg, log)
	if err != nil {
		return err
	}
	paths, err := writeReport(cfg, doc, log)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

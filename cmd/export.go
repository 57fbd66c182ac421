package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/fe-bench/internal/mlflow"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Publish the analysis to an MLflow tracking server",
	Long: `Create one MLflow run per (flow, technology) carrying <metric>.avg and
<metric>.p95, then a summary run holding the reports and charts as artifacts.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("tracking-uri", "", "MLflow tracking URI (overrides FEBENCH_TRACKING_URI)")
	exportCmd.Flags().String("experiment-id", "", "Experiment ID (overrides FEBENCH_EXPERIMENT_ID)")
	exportCmd.Flags().StringArray("tag", []string{}, "Extra tags on every run in key=value format")
	viper.BindPFlag("tracking_uri", exportCmd.Flags().Lookup("tracking-uri"))
	viper.BindPFlag("experiment_id", exportCmd.Flags().Lookup("experiment-id"))
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	tags, _ := cmd.Flags().GetStringArray("tag")
	tagMap, err := parseTags(tags)
	if err != nil {
		return err
	}

	client, err := mlflow.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MLflow client: %w", err)
	}

	doc, err := loadAnalysis(cfg, log)
	if err != nil {
		return err
	}
	artifacts, err := mlflow.CollectArtifacts(cfg.AnalysisDir(), cfg.ChartsDir())
	if err != nil {
		return fmt.Errorf("failed to collect artifacts: %w", err)
	}

	result, err := mlflow.Export(cmd.Context(), client, doc, mlflow.ExportOptions{
		ExperimentID: cfg.ExperimentID,
		InvocationID: uuid.NewString(),
		Tags:         tagMap,
		Artifacts:    artifacts,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	// Output only the summary run ID for shell scripting
	fmt.Fprintln(cmd.OutOrStdout(), result.SummaryRunID)
	log.Infof("exported %d pair runs, %d metrics, %d artifacts", len(result.PairRuns), result.Metrics, result.Artifacts)
	return nil
}

// parseTags parses tag strings in key=value format
func parseTags(tags []string) (map[string]string, error) {
	tagMap := make(map[string]string)
	for _, tag := range tags {
		parts := strings.SplitN(tag, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid tag format: %s (expected key=value)", tag)
		}
		tagMap[parts[0]] = parts[1]
	}
	return tagMap, nil
}

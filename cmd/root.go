package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imishinist/fe-bench/internal/config"
	"github.com/imishinist/fe-bench/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "fe-bench",
	Short: "Frontend framework benchmark tool",
	Long: `A command line tool that builds equivalent applications written with
different frontend technologies, drives the same user flows against each in a
headless browser, and compares the collected performance metrics.`,
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Suite file (overrides FEBENCH_SUITE_FILE)")
	flags.String("results-dir", "", "Results directory (overrides FEBENCH_RESULTS_DIR)")
	flags.String("log-level", "", "Log level (trace/debug/info/warn/error)")
	flags.String("log-format", "", "Log format (text/json)")
	flags.Bool("headless", true, "Run the browser headless")
	flags.String("chrome-path", "", "Chrome executable used by the browser and the audit")
	viper.BindPFlag("suite_file", flags.Lookup("config"))
	viper.BindPFlag("results_dir", flags.Lookup("results-dir"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))
	viper.BindPFlag("headless", flags.Lookup("headless"))
	viper.BindPFlag("chrome_path", flags.Lookup("chrome-path"))
}

func initConfig() {
	viper.SetEnvPrefix("FEBENCH")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	viper.SetDefault("results_dir", "results")
	viper.SetDefault("suite_file", "fe-bench.yaml")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("headless", true)
	viper.SetDefault("tracking_uri", "http://localhost:5000")
}

// setup resolves the settings and the logger shared by every command.
func setup() (*config.Config, *logrus.Entry, error) {
	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logrus.NewEntry(logger), nil
}

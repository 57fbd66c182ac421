package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

var (
	validLogFormats = map[string]bool{
		"text": true, "json": true,
	}
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
)

// Config holds the flat settings resolved from flags, FEBENCH_* environment
// variables and defaults.
type Config struct {
	ResultsDir string
	SuiteFile  string
	LogLevel   string
	LogFormat  string
	Headless   bool
	ChromePath string

	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string
}

func New() *Config {
	return &Config{
		ResultsDir:      viper.GetString("results_dir"),
		SuiteFile:       viper.GetString("suite_file"),
		LogLevel:        viper.GetString("log_level"),
		LogFormat:       viper.GetString("log_format"),
		Headless:        viper.GetBool("headless"),
		ChromePath:      viper.GetString("chrome_path"),
		TrackingURI:     viper.GetString("tracking_uri"),
		ExperimentID:    viper.GetString("experiment_id"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
	}
}

func (c *Config) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("results directory is required")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error)", c.LogLevel)
	}

	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.LogFormat)
	}

	return nil
}

// Result area layout.
func (c *Config) RawDir() string      { return filepath.Join(c.ResultsDir, "raw") }
func (c *Config) SummaryDir() string  { return filepath.Join(c.ResultsDir, "summary") }
func (c *Config) AnalysisDir() string { return filepath.Join(c.ResultsDir, "analysis") }
func (c *Config) ChartsDir() string   { return filepath.Join(c.ResultsDir, "charts") }

// ValidateTracking checks the settings needed to export to MLflow.
func (c *Config) ValidateTracking() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}
	if c.ExperimentID == "" {
		return fmt.Errorf("experiment ID must be specified via --experiment-id flag or FEBENCH_EXPERIMENT_ID environment variable")
	}
	return nil
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	switch {
	case c.TrackingURI == "databricks":
		return true
	case strings.HasPrefix(c.TrackingURI, "databricks://"):
		return true
	case strings.HasPrefix(c.TrackingURI, "https://"):
		host := strings.TrimPrefix(c.TrackingURI, "https://")
		if idx := strings.Index(host, "/"); idx != -1 {
			host = host[:idx]
		}
		for _, domain := range databricksDomains {
			if strings.HasSuffix(host, domain) {
				return true
			}
		}
	}
	return false
}

// DatabricksProfile extracts the profile name from a databricks://{profile} URI.
func (c *Config) DatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}
	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}

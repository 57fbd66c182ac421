package mlflow

import (
	"context"
	"fmt"
	"net/http"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/imishinist/fe-bench/internal/config"
)

// experiments is the part of the SDK experiments service the client uses.
type experiments interface {
	CreateRun(ctx context.Context, request ml.CreateRun) (*ml.CreateRunResponse, error)
	UpdateRun(ctx context.Context, request ml.UpdateRun) (*ml.UpdateRunResponse, error)
	GetRun(ctx context.Context, request ml.GetRunRequest) (*ml.GetRunResponse, error)
	LogMetric(ctx context.Context, request ml.LogMetric) error
	LogParam(ctx context.Context, request ml.LogParam) error
}

type Client struct {
	experiments experiments
	workspace   *databricks.WorkspaceClient
	config      *config.Config
	http        *http.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.ValidateTracking(); err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}

		if cfg.TrackingURI == "databricks" {
			// Use DATABRICKS_HOST if available, the default profile otherwise
			if cfg.DatabricksHost != "" {
				databricksConfig.Host = cfg.DatabricksHost
			}
		} else if profile := cfg.DatabricksProfile(); profile != "" {
			databricksConfig.Profile = profile
		} else {
			databricksConfig.Host = cfg.TrackingURI
		}

		// Token overrides profile
		if cfg.DatabricksToken != "" {
			databricksConfig.Token = cfg.DatabricksToken
		}
	} else {
		databricksConfig = &databricks.Config{
			Host: cfg.TrackingURI,
			// A plain MLflow server ignores authentication
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	workspace, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return &Client{
		experiments: workspace.Experiments,
		workspace:   workspace,
		config:      cfg,
		http:        &http.Client{},
	}, nil
}

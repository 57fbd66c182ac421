package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/fe-bench/internal/models"
)

func noopScript(context.Context, models.Page, string) error { return nil }

func lookupAll(string) (models.FlowScript, bool) { return noopScript, true }

func lookupNone(string) (models.FlowScript, bool) { return nil, false }

func TestDefaultSuiteIsValid(t *testing.T) {
	suite := DefaultSuite()
	require.NoError(t, suite.Validate(lookupAll))
	assert.Len(t, suite.Apps, 3)
	assert.Len(t, suite.Flows, 4)
	assert.Equal(t, 3, suite.Runs)
	assert.Equal(t, 90*time.Second, suite.Waits.AuditTimeout.Std())
}

func TestLoadSuite_MissingFileFallsBackToDefaults(t *testing.T) {
	suite, err := LoadSuite(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "react", suite.Apps[0].Tech)
}

func TestLoadSuite_OverridesAndResolvesDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fe-bench.yaml")
	content := `
root: apps
runs: 5
apps:
  - tech: solid
    label: Solid
    dir: solid-app
    port: 6000
    build: [npm, run, build]
    preview: [npm, run, preview, --, --port]
waits:
  audit_timeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	suite, err := LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, suite.Apps, 1)
	assert.Equal(t, filepath.Join(dir, "apps", "solid-app"), suite.Apps[0].Dir)
	assert.Equal(t, 5, suite.Runs)
	assert.Equal(t, 10*time.Second, suite.Waits.AuditTimeout.Std())
	// untouched waits keep their defaults
	assert.Equal(t, 60*time.Second, suite.Waits.ServerReadyTimeout.Std())
	assert.Len(t, suite.Flows, 4)
}

func TestLoadSuite_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runz: 3\n"), 0o644))
	_, err := LoadSuite(path)
	require.Error(t, err)
}

func TestSuiteValidate(t *testing.T) {
	t.Run("duplicate port", func(t *testing.T) {
		suite := DefaultSuite()
		suite.Apps[1].Port = suite.Apps[0].Port
		require.ErrorContains(t, suite.Validate(lookupAll), "already assigned")
	})
	t.Run("unknown script", func(t *testing.T) {
		require.ErrorContains(t, DefaultSuite().Validate(lookupNone), "unknown script")
	})
	t.Run("non-positive wait", func(t *testing.T) {
		suite := DefaultSuite()
		suite.Waits.MetricInterval = 0
		require.ErrorContains(t, suite.Validate(lookupAll), "metric_interval")
	})
	t.Run("zero close grace", func(t *testing.T) {
		suite := DefaultSuite()
		suite.Waits.CloseGrace = 0
		require.ErrorContains(t, suite.Validate(lookupAll), "close_grace")
	})
	t.Run("dash in tech id", func(t *testing.T) {
		suite := DefaultSuite()
		suite.Apps[0].Tech = "solid-js"
		require.ErrorContains(t, suite.Validate(lookupAll), "solid-js")
	})
}

func TestMetricsSpecIsScore(t *testing.T) {
	m := MetricsSpec{ScoreMetrics: []string{"CLS", "perf_index"}}
	assert.True(t, m.IsScore("perf_index"))
	assert.False(t, m.IsScore("FCP"))
}

func TestResolve(t *testing.T) {
	suite := DefaultSuite()

	plan, err := suite.Resolve(Selection{}, lookupAll)
	require.NoError(t, err)
	assert.Len(t, plan.Apps, 3)
	assert.Len(t, plan.Flows, 4)
	assert.Equal(t, 3, plan.Runs)

	plan, err = suite.Resolve(Selection{Techs: []string{"vue"}, Flows: []string{"flow-stress"}, Runs: 7}, lookupAll)
	require.NoError(t, err)
	require.Len(t, plan.Apps, 1)
	assert.Equal(t, "vue", plan.Apps[0].Tech)
	require.Len(t, plan.Flows, 1)
	assert.Equal(t, "/items", plan.Flows[0].EntryPath)
	assert.Equal(t, 7, plan.Runs)
}

func TestResolve_NoMatchingSelection(t *testing.T) {
	suite := DefaultSuite()

	_, err := suite.Resolve(Selection{Techs: []string{"angular"}}, lookupAll)
	require.True(t, errors.Is(err, ErrNoMatchingSelection))

	_, err = suite.Resolve(Selection{Flows: []string{"flow-missing"}}, lookupAll)
	require.True(t, errors.Is(err, ErrNoMatchingSelection))
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{ResultsDir: "results", LogLevel: "info", LogFormat: "text"}
	require.NoError(t, cfg.Validate())

	cfg.LogFormat = "xml"
	require.Error(t, cfg.Validate())
}

func TestIsDatabricks(t *testing.T) {
	cases := map[string]bool{
		"databricks":                                   true,
		"databricks://staging":                         true,
		"https://adb-123.azuredatabricks.net/":         true,
		"https://dbc-1.cloud.databricks.com/ml/runs/1": true,
		"http://localhost:5000":                        false,
	}
	for uri, want := range cases {
		cfg := &Config{TrackingURI: uri}
		assert.Equal(t, want, cfg.IsDatabricks(), uri)
	}
	assert.Equal(t, "staging", (&Config{TrackingURI: "databricks://staging/x"}).DatabricksProfile())
}

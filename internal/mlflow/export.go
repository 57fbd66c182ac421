package mlflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/analysis"
	"github.com/imishinist/fe-bench/internal/models"
)

// Tracker is the write side of an MLflow tracking server.
type Tracker interface {
	CreateRun(ctx context.Context, config *models.RunConfig) (*models.RunInfo, error)
	LogMetrics(ctx context.Context, runID string, metrics []models.Metric) error
	LogParams(ctx context.Context, runID string, params map[string]string) error
	UploadArtifact(ctx context.Context, runID, filePath, artifactPath string) error
	UpdateRun(ctx context.Context, runID string, status models.RunStatus) error
}

// Artifact is a local file and the path it is stored under in the run.
type Artifact struct {
	Path string
	Name string
}

type ExportOptions struct {
	ExperimentID string
	InvocationID string
	// Tags are added to every run.
	Tags      map[string]string
	Artifacts []Artifact
}

type ExportResult struct {
	SummaryRunID string
	// PairRuns maps "<flow>/<tech>" to its run id.
	PairRuns  map[string]string
	Metrics   int
	Artifacts int
}

const tagPrefix = "fe-bench."

// MetricKey builds the MLflow metric key for one statistic of a metric.
func MetricKey(metric, stat string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(metric) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String() + "." + stat
}

// PairMetrics lists the canonical-unit statistics of one technology within
// one flow, ordered by key.
func PairMetrics(fa *models.FlowAnalysis, tech string, ts time.Time) []models.Metric {
	var metrics []models.Metric
	for _, name := range analysis.SortedMetrics(fa) {
		values, ok := fa.Metrics[name].Technologies[tech]
		if !ok {
			continue
		}
		if values.Average != nil {
			metrics = append(metrics, models.Metric{Key: MetricKey(name, "avg"), Value: *values.Average, Timestamp: ts})
		}
		if values.P95 != nil {
			metrics = append(metrics, models.Metric{Key: MetricKey(name, "p95"), Value: *values.P95, Timestamp: ts})
		}
	}
	return metrics
}

func technologies(fa *models.FlowAnalysis) []string {
	seen := make(map[string]bool)
	var techs []string
	for _, ma := range fa.Metrics {
		for t := range ma.Technologies {
			if !seen[t] {
				seen[t] = true
				techs = append(techs, t)
			}
		}
	}
	sort.Strings(techs)
	return techs
}

// CollectArtifacts lists the analysis outputs and chart images that exist.
func CollectArtifacts(analysisDir, chartsDir string) ([]Artifact, error) {
	var artifacts []Artifact
	for _, name := range []string{"data.json", "combined.csv", "combined.xlsx", "report.md", "index.html"} {
		path := filepath.Join(analysisDir, name)
		if _, err := os.Stat(path); err == nil {
			artifacts = append(artifacts, Artifact{Path: path, Name: name})
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	charts, err := filepath.Glob(filepath.Join(chartsDir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(charts)
	for _, path := range charts {
		artifacts = append(artifacts, Artifact{Path: path, Name: "charts/" + filepath.Base(path)})
	}
	return artifacts, nil
}

// Export publishes doc as one run per (flow, technology) pair plus a summary
// run carrying the artifacts.
func Export(ctx context.Context, t Tracker, doc *models.AnalysisDocument, opts ExportOptions, log *logrus.Entry) (*ExportResult, error) {
	if opts.ExperimentID == "" {
		return nil, fmt.Errorf("experiment ID must be provided")
	}

	result := &ExportResult{PairRuns: make(map[string]string)}
	generated := doc.GeneratedAt.UTC().Format(time.RFC3339)

	for _, flow := range analysis.SortedFlows(doc) {
		fa := doc.Flows[flow]
		for _, tech := range technologies(fa) {
			metrics := PairMetrics(fa, tech, doc.GeneratedAt)
			runID, err := exportRun(ctx, t, opts, flow+"/"+tech,
				map[string]string{tagPrefix + "flow": flow, tagPrefix + "technology": tech},
				map[string]string{"flow": flow, "technology": tech, "generated_at": generated},
				metrics, nil)
			if err != nil {
				return result, fmt.Errorf("export %s/%s: %w", flow, tech, err)
			}
			result.PairRuns[flow+"/"+tech] = runID
			result.Metrics += len(metrics)
			log.WithFields(logrus.Fields{"flow": flow, "tech": tech, "run_id": runID}).Debugf("exported %d metrics", len(metrics))
		}
	}

	runID, err := exportRun(ctx, t, opts, "summary",
		map[string]string{tagPrefix + "kind": "summary"},
		map[string]string{"generated_at": generated, "flows": fmt.Sprint(len(doc.Flows)), "pairs": fmt.Sprint(len(result.PairRuns))},
		nil, opts.Artifacts)
	if err != nil {
		return result, fmt.Errorf("export summary: %w", err)
	}
	result.SummaryRunID = runID
	result.Artifacts = len(opts.Artifacts)
	return result, nil
}

func exportRun(ctx context.Context, t Tracker, opts ExportOptions, name string, tags, params map[string]string, metrics []models.Metric, artifacts []Artifact) (string, error) {
	for k, v := range opts.Tags {
		if _, ok := tags[k]; !ok {
			tags[k] = v
		}
	}
	if opts.InvocationID != "" {
		tags[tagPrefix+"invocation_id"] = opts.InvocationID
	}
	experimentID := opts.ExperimentID
	info, err := t.CreateRun(ctx, &models.RunConfig{
		ExperimentID: &experimentID,
		RunName:      &name,
		Tags:         tags,
	})
	if err != nil {
		return "", err
	}

	if err := fillRun(ctx, t, info.RunID, params, metrics, artifacts); err != nil {
		if uerr := t.UpdateRun(ctx, info.RunID, models.RunStatusFailed); uerr != nil {
			return info.RunID, fmt.Errorf("%w (marking run failed: %v)", err, uerr)
		}
		return info.RunID, err
	}
	return info.RunID, t.UpdateRun(ctx, info.RunID, models.RunStatusFinished)
}

func fillRun(ctx context.Context, t Tracker, runID string, params map[string]string, metrics []models.Metric, artifacts []Artifact) error {
	if err := t.LogParams(ctx, runID, params); err != nil {
		return err
	}
	if len(metrics) > 0 {
		if err := t.LogMetrics(ctx, runID, metrics); err != nil {
			return err
		}
	}
	for _, a := range artifacts {
		if err := t.UploadArtifact(ctx, runID, a.Path, a.Name); err != nil {
			return fmt.Errorf("failed to upload %s: %w", a.Path, err)
		}
	}
	return nil
}

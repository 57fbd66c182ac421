package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/analysis"
	"github.com/imishinist/fe-bench/internal/audit"
	"github.com/imishinist/fe-bench/internal/browser"
	"github.com/imishinist/fe-bench/internal/charts"
	"github.com/imishinist/fe-bench/internal/config"
	"github.com/imishinist/fe-bench/internal/driver"
	"github.com/imishinist/fe-bench/internal/extract"
	"github.com/imishinist/fe-bench/internal/flows"
	"github.com/imishinist/fe-bench/internal/hostinfo"
	"github.com/imishinist/fe-bench/internal/launcher"
	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/parser"
	"github.com/imishinist/fe-bench/internal/report"
	"github.com/imishinist/fe-bench/internal/store"
	"github.com/imishinist/fe-bench/internal/summary"
)

// loadPlan reads the suite and applies the selection to it.
func loadPlan(cfg *config.Config, sel config.Selection) (*config.Suite, *config.Plan, error) {
	suite, err := config.LoadSuite(cfg.SuiteFile)
	if err != nil {
		return nil, nil, err
	}
	registry := flows.NewRegistry(flows.Options{
		URLTimeout:  suite.Waits.MetricTimeout.Std(),
		URLInterval: suite.Waits.MetricInterval.Std(),
	})
	if err := suite.Validate(registry.Lookup); err != nil {
		return nil, nil, fmt.Errorf("invalid suite: %w", err)
	}
	plan, err := suite.Resolve(sel, registry.Lookup)
	if err != nil {
		return nil, nil, err
	}
	return suite, plan, nil
}

// runBenchmark drives the plan. Per-technology failures are returned combined
// after every technology was attempted.
func runBenchmark(ctx context.Context, cfg *config.Config, suite *config.Suite, plan *config.Plan, log *logrus.Entry) ([]driver.PairResult, error) {
	waits := suite.Waits
	l := launcher.New(launcher.Options{
		ReadyTimeout:  waits.ServerReadyTimeout.Std(),
		ReadyInterval: waits.ServerReadyInterval.Std(),
		CloseGrace:    waits.CloseGrace.Std(),
	}, log.WithField("stage", "server"))
	browsers := driver.ChromeBrowsers(browser.Options{
		Headless:       cfg.Headless,
		ExecPath:       cfg.ChromePath,
		MetricTimeout:  waits.MetricTimeout.Std(),
		MetricInterval: waits.MetricInterval.Std(),
	}, log.WithField("stage", "browser"))
	auditor := audit.NewLighthouse(suite.Audit.Command, suite.Audit.ChromeFlags, cfg.ChromePath, log.WithField("stage", "audit"))
	collector := extract.NewCollector(extract.Options{
		CustomMarks:    suite.Metrics.CustomMarks,
		TimingEntries:  suite.Metrics.TimingEntries,
		VitalsTimeout:  waits.MetricTimeout.Std(),
		VitalsInterval: waits.MetricInterval.Std(),
	}, log.WithField("stage", "extract"))

	invocationID := uuid.NewString()
	d := driver.New(driver.ProcessLauncher(l), browsers, auditor, collector,
		store.New(cfg.RawDir(), cfg.SummaryDir()),
		driver.Options{
			AuditTimeout: waits.AuditTimeout.Std(),
			Summary: summary.Options{
				CustomMarks: suite.Metrics.CustomMarks,
				IsScore:     suite.Metrics.IsScore,
			},
			InvocationID: invocationID,
			Host:         hostinfo.Collect(ctx, log),
		}, log)

	log.WithField("invocation_id", invocationID).Infof("running %d technologies x %d flows x %d runs",
		len(plan.Apps), len(plan.Flows), plan.Runs)
	return d.Run(ctx, plan)
}

func aggregate(cfg *config.Config, log *logrus.Entry) (*models.AnalysisDocument, map[string]string, error) {
	agg := analysis.NewAggregator(log)
	n, err := agg.LoadDir(cfg.SummaryDir())
	if err != nil {
		return nil, nil, err
	}
	doc := agg.Document(time.Now())
	paths, err := analysis.WriteFiles(cfg.AnalysisDir(), doc)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("aggregated %d summary files into %d flows", n, len(doc.Flows))
	return doc, paths, nil
}

// loadAnalysis reads data.json; a missing file yields an empty document.
func loadAnalysis(cfg *config.Config, log *logrus.Entry) (*models.AnalysisDocument, error) {
	path := filepath.Join(cfg.AnalysisDir(), "data.json")
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("%s not found; run aggregate first", path)
		return &models.AnalysisDocument{Flows: map[string]*models.FlowAnalysis{}}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc, err := parser.ParseJSONAnalysis(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return doc, nil
}

func renderCharts(cfg *config.Config, doc *models.AnalysisDocument, log *logrus.Entry) ([]charts.Generated, error) {
	generated, err := charts.RenderAll(cfg.ChartsDir(), doc, log)
	if err != nil {
		return generated, err
	}
	log.Infof("generated %d charts in %s", len(generated), cfg.ChartsDir())
	return generated, nil
}

func writeReport(cfg *config.Config, doc *models.AnalysisDocument, log *logrus.Entry) ([]string, error) {
	paths, err := report.Write(doc, report.Options{
		ReportDir: cfg.AnalysisDir(),
		ChartsDir: cfg.ChartsDir(),
	})
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		log.Infof("wrote %s", p)
	}
	return paths, nil
}

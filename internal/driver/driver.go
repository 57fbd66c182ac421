// Package driver runs every selected flow against every selected
// technology and persists the results.
package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/audit"
	"github.com/imishinist/fe-bench/internal/config"
	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/summary"
)

// FlowError is one failed repetition. It is logged, never returned.
type FlowError struct {
	Tech  string
	Flow  string
	Run   int
	Stage string
	Err   error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s/%s run %d: %s: %v", e.Tech, e.Flow, e.Run, e.Stage, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Server is a running preview server.
type Server interface {
	URL() string
	Close() error
}

type Launcher interface {
	Build(ctx context.Context, target models.AppTarget) error
	Start(ctx context.Context, target models.AppTarget) (Server, error)
}

// PageHandle is a browser page that owns an isolated browser context.
type PageHandle interface {
	models.Page
	Close() error
}

// Session is one browser process, reused across a technology's flows.
type Session interface {
	NewPage(ctx context.Context) (PageHandle, error)
	Close() error
}

type BrowserFactory interface {
	Open(ctx context.Context) (Session, error)
}

type Collector interface {
	Collect(ctx context.Context, page models.Evaluator, awaitWebVitals bool) (*models.Collected, error)
}

type Store interface {
	ResetPair(tech, flow string) error
	WriteRaw(record *models.RunRecord) (string, error)
	WriteSummary(tech, flow string, rows []models.SummaryRow) (string, error)
}

type Options struct {
	AuditTimeout time.Duration
	Summary      summary.Options
	InvocationID string
	Host         *models.HostInfo
}

type Driver struct {
	launcher  Launcher
	browsers  BrowserFactory
	auditor   audit.Auditor
	collector Collector
	store     Store
	opts      Options
	log       *logrus.Entry
	now       func() time.Time
}

func New(l Launcher, b BrowserFactory, a audit.Auditor, c Collector, s Store, opts Options, log *logrus.Entry) *Driver {
	return &Driver{
		launcher:  l,
		browsers:  b,
		auditor:   a,
		collector: c,
		store:     s,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// PairResult describes what one (technology, flow) pair produced.
type PairResult struct {
	Tech        string
	Flow        string
	Attempted   int
	Succeeded   int
	Rows        int
	SummaryPath string
}

// Run executes the plan sequentially. Build and server failures are fatal
// for their technology only; they are combined into the returned error after
// every technology has been attempted.
func (d *Driver) Run(ctx context.Context, plan *config.Plan) ([]PairResult, error) {
	var (
		results []PairResult
		errs    *multierror.Error
	)

	for _, target := range plan.Apps {
		log := d.log.WithField("tech", target.Tech)

		if _, err := os.Stat(target.ManifestPath()); err != nil {
			log.Warnf("skipping %s: %s is missing", target.DisplayName(), target.ManifestPath())
			continue
		}

		pairs, err := d.runTech(ctx, target, plan, log)
		results = append(results, pairs...)
		if err != nil {
			log.WithError(err).Error("technology aborted")
			errs = multierror.Append(errs, err)
		}
		if ctx.Err() != nil {
			return results, multierror.Append(errs, ctx.Err()).ErrorOrNil()
		}
	}

	return results, errs.ErrorOrNil()
}

func (d *Driver) runTech(ctx context.Context, target models.AppTarget, plan *config.Plan, log *logrus.Entry) ([]PairResult, error) {
	if err := d.launcher.Build(ctx, target); err != nil {
		return nil, err
	}

	server, err := d.launcher.Start(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.WithError(err).Warn("failed to stop preview server")
		}
	}()

	session, err := d.browsers.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open browser: %w", target.Tech, err)
	}
	defer session.Close()

	var results []PairResult
	for _, flow := range plan.Flows {
		flowLog := log.WithField("flow", flow.Name)
		result, err := d.runFlow(ctx, session, server.URL(), target, flow, plan.Runs, flowLog)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (d *Driver) runFlow(ctx context.Context, session Session, baseURL string, target models.AppTarget, flow models.FlowDefinition, runs int, log *logrus.Entry) (PairResult, error) {
	result := PairResult{Tech: target.Tech, Flow: flow.Name, Attempted: runs}

	if err := d.store.ResetPair(target.Tech, flow.Name); err != nil {
		return result, err
	}

	log.Infof("running %d repetitions", runs)
	var records []*models.RunRecord
	for i := 0; i < runs; i++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		runLog := log.WithField("run", i)
		record, err := d.runOnce(ctx, session, baseURL, target, flow, i, runLog)
		if err != nil {
			runLog.WithError(err).Warn("repetition failed")
			continue
		}
		records = append(records, record)
	}
	result.Succeeded = len(records)

	rows := summary.Build(records, d.opts.Summary)
	if len(records) == 0 {
		log.Warn("no repetition succeeded; summary will be empty")
	}
	path, err := d.store.WriteSummary(target.Tech, flow.Name, rows)
	if err != nil {
		return result, err
	}
	result.Rows = len(rows)
	result.SummaryPath = path
	log.WithField("rows", len(rows)).Infof("summary written to %s", path)
	return result, nil
}

func (d *Driver) runOnce(ctx context.Context, session Session, baseURL string, target models.AppTarget, flow models.FlowDefinition, run int, log *logrus.Entry) (*models.RunRecord, error) {
	fail := func(stage string, err error) error {
		return &FlowError{Tech: target.Tech, Flow: flow.Name, Run: run, Stage: stage, Err: err}
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, fail("page", err)
	}
	defer page.Close()

	if err := flow.Script(ctx, page, baseURL); err != nil {
		return nil, fail("flow", err)
	}

	collected, err := d.collector.Collect(ctx, page, true)
	if err != nil {
		return nil, fail("extract", err)
	}

	auditMetrics, err := audit.RunWithTimeout(ctx, d.auditor, flow.EntryURL(baseURL), d.opts.AuditTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fail("audit", err)
		}
		log.WithError(err).Warn("audit metrics unavailable for this run")
		auditMetrics = make(map[string]float64)
	}

	record := &models.RunRecord{
		Timestamp:          d.now().UTC(),
		InvocationID:       d.opts.InvocationID,
		Tech:               target.Tech,
		Flow:               flow.Name,
		Run:                run,
		CustomMetrics:      collected.CustomMetrics,
		WebVitals:          collected.WebVitals,
		PerformanceEntries: collected.PerformanceEntries,
		Audit:              auditMetrics,
		ExtraMetrics:       collected.ExtraMetrics,
		Host:               d.opts.Host,
	}

	path, err := d.store.WriteRaw(record)
	if err != nil {
		return nil, fail("persist", err)
	}
	log.WithField("path", path).Debug("raw record written")
	return record, nil
}

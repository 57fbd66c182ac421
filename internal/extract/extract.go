// Package extract drains the in-page metrics buffer into run data.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/poll"
)

// StressSeries is the ExtraMetrics key of the stress update series.
const StressSeries = "stress_update"

var stressMark = regexp.MustCompile(`^stress_update_(\d+)$`)

const (
	vitalsReady = `Object.keys(window.__appMetrics?.webVitals ?? {}).length > 0`
	drainBuffer = `(() => {
  if (window.__appMetrics && typeof window.__appMetrics.getAndReset === 'function') {
    return window.__appMetrics.getAndReset();
  }
  return { metrics: [], webVitals: {} };
})()`
	timingEntries = `((names) => {
  const result = {};
  for (const name of names) {
    const entries = performance.getEntriesByName(name);
    if (entries.length > 0) {
      const entry = entries[entries.length - 1];
      result[name] = { duration: entry.duration, startTime: entry.startTime };
    }
  }
  return result;
})(%s)`
)

type Options struct {
	CustomMarks   []string
	TimingEntries []string
	// VitalsTimeout and VitalsInterval bound the optional web-vitals wait.
	VitalsTimeout  time.Duration
	VitalsInterval time.Duration
}

type Collector struct {
	opts  Options
	marks map[string]bool
	log   *logrus.Entry
}

func NewCollector(opts Options, log *logrus.Entry) *Collector {
	marks := make(map[string]bool, len(opts.CustomMarks))
	for _, m := range opts.CustomMarks {
		marks[m] = true
	}
	return &Collector{opts: opts, marks: marks, log: log}
}

// Collect optionally waits for web vitals, then drains the buffer and reads
// the allow-listed performance timeline entries.
func (c *Collector) Collect(ctx context.Context, page models.Evaluator, awaitWebVitals bool) (*models.Collected, error) {
	if awaitWebVitals {
		err := poll.Until(ctx, poll.Options{
			What:     "web vitals",
			Interval: c.opts.VitalsInterval,
			Timeout:  c.opts.VitalsTimeout,
		}, func(ctx context.Context) (bool, error) {
			var ready bool
			if err := page.Evaluate(ctx, vitalsReady, &ready); err != nil {
				return false, err
			}
			return ready, nil
		})
		switch {
		case errors.Is(err, poll.ErrTimeout):
			c.log.WithError(err).Warn("web vitals not reported before timeout")
		case err != nil:
			return nil, fmt.Errorf("failed to wait for web vitals: %w", err)
		}
	}

	var snapshot models.BufferSnapshot
	if err := page.Evaluate(ctx, drainBuffer, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to drain metrics buffer: %w", err)
	}

	entries := make(map[string]models.TimingEntry)
	if len(c.opts.TimingEntries) > 0 {
		names, err := json.Marshal(c.opts.TimingEntries)
		if err != nil {
			return nil, err
		}
		if err := page.Evaluate(ctx, fmt.Sprintf(timingEntries, names), &entries); err != nil {
			return nil, fmt.Errorf("failed to read performance entries: %w", err)
		}
	}

	collected := c.split(snapshot)
	collected.PerformanceEntries = entries
	return collected, nil
}

// split separates configured custom marks from the stress series. A mark
// recorded twice keeps its last duration.
func (c *Collector) split(snapshot models.BufferSnapshot) *models.Collected {
	custom := make(map[string]float64)
	var series []models.SeriesPoint
	for _, entry := range snapshot.Metrics {
		if c.marks[entry.Name] {
			custom[entry.Name] = entry.Duration
		}
		if stressMark.MatchString(entry.Name) {
			series = append(series, models.SeriesPoint{Name: entry.Name, Duration: entry.Duration})
		}
	}
	SortSeries(series)

	vitals := snapshot.WebVitals
	if vitals == nil {
		vitals = make(map[string]float64)
	}

	extra := make(map[string][]models.SeriesPoint)
	if len(series) > 0 {
		extra[StressSeries] = series
	}

	return &models.Collected{
		CustomMetrics: custom,
		WebVitals:     vitals,
		ExtraMetrics:  extra,
	}
}

// SortSeries orders stress points by their numeric suffix, so
// stress_update_2 precedes stress_update_10.
func SortSeries(series []models.SeriesPoint) {
	sort.SliceStable(series, func(i, j int) bool {
		return seriesIndex(series[i].Name) < seriesIndex(series[j].Name)
	})
}

func seriesIndex(name string) int {
	m := stressMark.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

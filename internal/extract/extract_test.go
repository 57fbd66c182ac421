package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/fe-bench/internal/models"
)

// fakePage answers the three scripts the collector evaluates with canned
// JSON, decoding it into out the way the browser would.
type fakePage struct {
	vitalsReadyAfter int
	vitalsChecks     int
	snapshot         string
	timings          string
	drains           int
	drainErr         error
}

func (f *fakePage) Evaluate(_ context.Context, expr string, out any) error {
	switch {
	case expr == vitalsReady:
		f.vitalsChecks++
		return json.Unmarshal([]byte(boolJSON(f.vitalsChecks > f.vitalsReadyAfter)), out)
	case expr == drainBuffer:
		f.drains++
		if f.drainErr != nil {
			return f.drainErr
		}
		return json.Unmarshal([]byte(f.snapshot), out)
	case strings.Contains(expr, "performance.getEntriesByName"):
		return json.Unmarshal([]byte(f.timings), out)
	}
	return errors.New("unexpected expression")
}

func boolJSON(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func newCollector() (*Collector, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewCollector(Options{
		CustomMarks:    []string{"app_start", "filter_applied"},
		TimingEntries:  []string{"first-contentful-paint", "app_start"},
		VitalsTimeout:  50 * time.Millisecond,
		VitalsInterval: 5 * time.Millisecond,
	}, logrus.NewEntry(logger)), hook
}

const snapshotJSON = `{
  "metrics": [
    {"name": "app_start", "duration": 12.5, "timestamp": 1},
    {"name": "unknown_mark", "duration": 3, "timestamp": 2},
    {"name": "filter_applied", "duration": 40, "timestamp": 3},
    {"name": "filter_applied", "duration": 42, "timestamp": 4},
    {"name": "stress_update_10", "duration": 10, "timestamp": 5},
    {"name": "stress_update_2", "duration": 2, "timestamp": 6},
    {"name": "stress_update_1", "duration": 1, "timestamp": 7}
  ],
  "webVitals": {"LCP": 800, "CLS": 0.01}
}`

func TestCollect(t *testing.T) {
	c, _ := newCollector()
	page := &fakePage{
		snapshot: snapshotJSON,
		timings:  `{"first-contentful-paint": {"duration": 0, "startTime": 310.2}}`,
	}

	got, err := c.Collect(context.Background(), page, true)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"app_start": 12.5, "filter_applied": 42}, got.CustomMetrics)
	assert.Equal(t, map[string]float64{"LCP": 800, "CLS": 0.01}, got.WebVitals)
	assert.Equal(t, map[string]models.TimingEntry{
		"first-contentful-paint": {Duration: 0, StartTime: 310.2},
	}, got.PerformanceEntries)

	series := got.ExtraMetrics[StressSeries]
	require.Len(t, series, 3)
	assert.Equal(t, "stress_update_1", series[0].Name)
	assert.Equal(t, "stress_update_2", series[1].Name)
	assert.Equal(t, "stress_update_10", series[2].Name)
	assert.Equal(t, 1, page.drains)
}

func TestCollect_VitalsTimeoutIsSwallowed(t *testing.T) {
	c, hook := newCollector()
	page := &fakePage{
		vitalsReadyAfter: 1 << 30,
		snapshot:         `{"metrics": [], "webVitals": {}}`,
		timings:          `{}`,
	}

	got, err := c.Collect(context.Background(), page, true)
	require.NoError(t, err)
	assert.Empty(t, got.WebVitals)
	assert.Empty(t, got.CustomMetrics)
	assert.Empty(t, got.ExtraMetrics)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCollect_SkipsVitalsWaitWhenNotRequested(t *testing.T) {
	c, _ := newCollector()
	page := &fakePage{snapshot: `{"metrics": [], "webVitals": null}`, timings: `{}`}

	got, err := c.Collect(context.Background(), page, false)
	require.NoError(t, err)
	assert.Zero(t, page.vitalsChecks)
	assert.NotNil(t, got.WebVitals)
}

func TestCollect_DrainFailure(t *testing.T) {
	c, _ := newCollector()
	page := &fakePage{drainErr: errors.New("target closed")}

	_, err := c.Collect(context.Background(), page, false)
	require.ErrorContains(t, err, "drain")
}

func TestSortSeriesIsNumeric(t *testing.T) {
	series := []models.SeriesPoint{
		{Name: "stress_update_19"}, {Name: "stress_update_2"}, {Name: "stress_update_10"}, {Name: "stress_update_0"},
	}
	SortSeries(series)
	names := make([]string, len(series))
	for i, p := range series {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"stress_update_0", "stress_update_2", "stress_update_10", "stress_update_19"}, names)
}

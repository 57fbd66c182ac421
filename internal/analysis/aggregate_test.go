package analysis

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/parser"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newAggregator() *Aggregator {
	logger, _ := test.NewNullLogger()
	return NewAggregator(logrus.NewEntry(logger))
}

func writeSummaries(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func table(t *testing.T, content string) *parser.Table {
	tbl, err := parser.ParseCSVTable(strings.NewReader(content))
	require.NoError(t, err)
	return tbl
}

func TestScenarioA_MillisecondsAndRanking(t *testing.T) {
	dir := writeSummaries(t, map[string]string{
		"alpha-browse.csv": "metric,source,mean,p95,stddev,unit,runs\nFCP,audit,1200.00,1500.00,10.00,ms,3\n",
		"beta-browse.csv":  "metric,source,mean,p95,stddev,unit,runs\nFCP,audit,900.00,1100.00,10.00,ms,3\n",
	})

	a := newAggregator()
	n, err := a.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	fcp := a.Document(fixedNow).Flows["browse"].Metrics["FCP"]
	require.NotNil(t, fcp)
	assert.Equal(t, "ms", fcp.DisplayUnit)
	assert.True(t, fcp.IsDuration)
	assert.Equal(t, []string{"beta", "alpha"}, fcp.Order)
	assert.Equal(t, 1500.0, *fcp.Technologies["alpha"].P95)
}

func TestScenarioB_SecondsDisplay(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, "metric,average\nLCP,\"2,500\"\n"), "gamma-load")

	lcp := a.Document(fixedNow).Flows["load"].Metrics["LCP"]
	require.NotNil(t, lcp)
	assert.Equal(t, "s", lcp.DisplayUnit)
	assert.Equal(t, "2.50", FormatValue(lcp.Technologies["gamma"].Average, lcp.DisplayUnit, lcp.IsDuration))
	assert.Nil(t, lcp.Technologies["gamma"].P95)
}

func TestLongFormAndExplicitLabels(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, `Framework,Scenario,Metric,Stat,Value,Unit
React,checkout,First Contentful Paint,median,1.2,s
React,checkout,fcp,95th,1500ms,
React,checkout,FCP,p99,9000,ms
Vue,checkout,TBT,avg,"1,000",ms
`), "ignored-label")

	doc := a.Document(fixedNow)
	require.Contains(t, doc.Flows, "checkout")
	fcp := doc.Flows["checkout"].Metrics["FCP"]
	require.NotNil(t, fcp)
	assert.InDelta(t, 1200, *fcp.Technologies["React"].Average, 1e-9)
	assert.InDelta(t, 1500, *fcp.Technologies["React"].P95, 1e-9)

	tbt := doc.Flows["checkout"].Metrics["TBT"]
	assert.InDelta(t, 1000, *tbt.Technologies["Vue"].Average, 1e-9)
}

func TestColumnModeIgnoresMedianColumn(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, "metric,median,p95\nFCP,100,200\n"), "alpha-x")

	fcp := a.Document(fixedNow).Flows["x"].Metrics["FCP"]
	assert.Nil(t, fcp.Technologies["alpha"].Average)
	assert.Equal(t, 200.0, *fcp.Technologies["alpha"].P95)
	assert.Empty(t, fcp.Order)
}

func TestFileLabelWithoutFlowUsesDefault(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, "metric,mean\nFCP,10\n"), "solo")

	doc := a.Document(fixedNow)
	require.Contains(t, doc.Flows, models.DefaultFlow)
	assert.Contains(t, doc.Flows[models.DefaultFlow].Metrics["FCP"].Technologies, "solo")
}

func TestScoresAndWebVitalsStaySeparate(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, `metric,source,mean,p95,stddev,unit,runs
CLS,audit,0.0123,0.0200,0.0010,score,3
LCP,audit,1400.00,1500.00,1.00,ms,3
LCP,web-vitals,2600.00,2700.00,1.00,ms,3
CLS,web-vitals,0.0100,0.0100,0.0000,score,3
`), "react-flow-cold-start")

	metrics := a.Document(fixedNow).Flows["flow-cold-start"].Metrics
	cls := metrics["CLS"]
	assert.False(t, cls.IsDuration)
	assert.Equal(t, "", cls.DisplayUnit)
	assert.Equal(t, "0.0123", FormatValue(cls.Technologies["react"].Average, cls.DisplayUnit, cls.IsDuration))

	assert.Equal(t, "ms", metrics["LCP"].DisplayUnit)
	assert.Equal(t, "s", metrics["Web Vitals: LCP"].DisplayUnit)
	assert.False(t, metrics["Web Vitals: CLS"].IsDuration)
}

func TestScoreUnitIsNotDuration(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, `metric,source,mean,p95,stddev,unit,runs
perf_index,custom,2500.1234,2600.5000,1.0000,score,3
`), "react-flow-stress")

	idx := a.Document(fixedNow).Flows["flow-stress"].Metrics["Perf Index"]
	require.NotNil(t, idx)
	assert.False(t, idx.IsDuration)
	assert.Equal(t, "", idx.DisplayUnit)
	assert.Equal(t, "2500.1234", FormatValue(idx.Technologies["react"].Average, idx.DisplayUnit, idx.IsDuration))
	assert.Equal(t, 2600.5, *idx.Technologies["react"].P95)
}

func TestUnitConversionRoundTrip(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, "metric,mean,unit\nFCP,1.2345,s\n"), "alpha-x")
	a.AddTable(table(t, "metric,mean,unit\nFCP,1234.5,ms\n"), "beta-x")

	fcp := a.Document(fixedNow).Flows["x"].Metrics["FCP"]
	assert.Equal(t, "ms", fcp.DisplayUnit)
	assert.Equal(t,
		FormatValue(fcp.Technologies["beta"].Average, "ms", true),
		FormatValue(fcp.Technologies["alpha"].Average, "ms", true))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		suffix string
		ok     bool
	}{
		{"1,234.5", 1234.5, "", true},
		{"120ms", 120, "ms", true},
		{"1.5 s", 1.5, "s", true},
		{"95%", 95, "", true},
		{"  42 ", 42, "", true},
		{"", 0, "", false},
		{"n/a", 0, "", false},
		{"ms", 0, "", false},
	}
	for _, tt := range tests {
		v, suffix, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, v, tt.in)
			assert.Equal(t, tt.suffix, suffix, tt.in)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	a := newAggregator()
	n, err := a.LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Zero(t, n)

	doc := a.Document(fixedNow)
	assert.Empty(t, doc.Flows)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, doc))
	assert.Equal(t, "Flow,Technology\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, doc))
	assert.Contains(t, buf.String(), `"flows": {}`)
}

func TestWideTable(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, "metric,mean,p95\nFCP,1200,1500\nCLS,0.01,0.02\n"), "alpha-browse")
	a.AddTable(table(t, "metric,mean\nFCP,900\n"), "beta-browse")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, a.Document(fixedNow)))
	assert.Equal(t,
		"Flow,Technology,CLS (avg),CLS (p95),FCP (avg),FCP (p95)\n"+
			"browse,alpha,0.0100,0.0200,1200.00 ms,1500.00 ms\n"+
			"browse,beta,—,—,900.00 ms,—\n",
		buf.String())
}

func TestAggregationIsRepeatable(t *testing.T) {
	dir := writeSummaries(t, map[string]string{
		"react-a.csv":  "metric,source,mean,p95,stddev,unit,runs\nFCP,audit,1.00,2.00,0.00,ms,3\napp_start,custom,5.00,6.00,0.00,ms,3\n",
		"vue-a.csv":    "metric,source,mean,p95,stddev,unit,runs\nFCP,audit,3.00,4.00,0.00,ms,3\n",
		"svelte-b.csv": "metric,source,mean,p95,stddev,unit,runs\nTBT,audit,7.00,8.00,0.00,ms,3\n",
	})

	render := func(now time.Time) string {
		a := newAggregator()
		_, err := a.LoadDir(dir)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, a.Document(now)))
		return buf.String()
	}
	assert.Equal(t, render(fixedNow), render(fixedNow.Add(time.Hour)))
}

func TestWriteFiles(t *testing.T) {
	a := newAggregator()
	a.AddTable(table(t, "metric,mean,p95\nFCP,2400,3100\n"), "alpha-browse")
	a.AddTable(table(t, "metric,p95\nFCP,1000\n"), "beta-browse")

	dir := filepath.Join(t.TempDir(), "analysis")
	paths, err := WriteFiles(dir, a.Document(fixedNow))
	require.NoError(t, err)

	for _, kind := range []string{"json", "csv", "xlsx"} {
		assert.FileExists(t, paths[kind])
	}

	f, err := excelize.OpenFile(paths["xlsx"])
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(rankingSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"browse", "FCP", "1", "alpha", "2.4", "3.1", "s"}, rows[1])
	assert.Equal(t, "beta", rows[2][3])

	head, err := f.GetRows(comparisonSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Flow", "Technology", "FCP (avg)", "FCP (p95)"}, head[0])
}

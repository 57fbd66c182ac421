package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imishinist/fe-bench/internal/charts"
	"github.com/imishinist/fe-bench/internal/models"
)

func ptr(v float64) *float64 { return &v }

func sampleDoc() *models.AnalysisDocument {
	return &models.AnalysisDocument{
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Flows: map[string]*models.FlowAnalysis{
			"browse": {Metrics: map[string]*models.MetricAnalysis{
				"FCP": {
					Metric:      "FCP",
					DisplayUnit: "s",
					IsDuration:  true,
					Technologies: map[string]models.TechValues{
						"alpha": {Average: ptr(2500), P95: ptr(3000)},
						"beta":  {Average: ptr(900)},
						"gam|ma": {P95: ptr(100)},
					},
					Order: []string{"beta", "alpha"},
				},
				"CLS": {
					Metric:       "CLS",
					Technologies: map[string]models.TechValues{"alpha": {Average: ptr(0.01234)}},
					Order:        []string{"alpha"},
				},
			}},
		},
	}
}

func setup(t *testing.T) Options {
	root := t.TempDir()
	opts := Options{ReportDir: filepath.Join(root, "analysis"), ChartsDir: filepath.Join(root, "charts")}
	require.NoError(t, os.MkdirAll(opts.ChartsDir, 0o755))
	// only FCP has a chart
	require.NoError(t, os.WriteFile(filepath.Join(opts.ChartsDir, charts.FileName("browse", "FCP")), []byte("png"), 0o644))
	return opts
}

func TestMarkdown(t *testing.T) {
	opts := setup(t)
	out, err := Markdown(sampleDoc(), opts)
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "# Performance Results\n\nGenerated at: Wed, 01 May 2024 12:00:00 UTC\n")
	assert.Contains(t, md, "## Flow: browse")
	assert.Contains(t, md, "### FCP (s)\n\n| Technology | Average | p95 |\n| --- | --- | --- |\n"+
		"| beta | 0.90 | — |\n"+
		"| alpha | 2.50 | 3.00 |\n"+
		"| gam\\|ma | — | 0.10 |\n")
	assert.Contains(t, md, "[Chart preview](../charts/browse_fcp.png)")
	assert.Contains(t, md, "![browse – FCP](../charts/browse_fcp.png)")

	assert.Contains(t, md, "### CLS\n")
	assert.Contains(t, md, "| alpha | 0.0123 | — |")
	assert.NotContains(t, md, "browse_cls.png")
}

func TestHTML(t *testing.T) {
	opts := setup(t)
	out, err := HTML(sampleDoc(), opts)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<h2>Flow: browse</h2>")
	assert.Contains(t, html, "<h3>FCP (s)</h3>")
	assert.Contains(t, html, "<tr><td>beta</td><td>0.90</td><td>—</td></tr>")
	assert.Contains(t, html, `<img src="../charts/browse_fcp.png"`)
	assert.NotContains(t, html, "browse_cls.png")
}

func TestEmptyDocument(t *testing.T) {
	opts := setup(t)
	doc := &models.AnalysisDocument{GeneratedAt: time.Now(), Flows: map[string]*models.FlowAnalysis{}}

	md, err := Markdown(doc, opts)
	require.NoError(t, err)
	assert.Contains(t, string(md), "No summary data available.")

	html, err := HTML(doc, opts)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<p>No summary data available.</p>")
}

func TestWrite(t *testing.T) {
	opts := setup(t)
	paths, err := Write(sampleDoc(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(opts.ReportDir, "report.md"),
		filepath.Join(opts.ReportDir, "index.html"),
	}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}

// Package charts renders one comparison chart per (flow, metric).
package charts

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/imishinist/fe-bench/internal/analysis"
	"github.com/imishinist/fe-bench/internal/models"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// FileName is the chart file for a (flow, metric) pair. Every run of
// non-alphanumeric characters becomes one underscore and the result is
// lower-cased, so names differing only in case or punctuation share a file.
func FileName(flow, metric string) string {
	name := nonAlphanumeric.ReplaceAllString(flow+"-"+metric, "_")
	return strings.ToLower(strings.Trim(name, "_")) + ".png"
}

var (
	barColor  = color.RGBA{63, 81, 181, 200}
	lineColor = color.RGBA{255, 82, 82, 255}
)

// Series is the plotted data of one chart in technology order. Missing
// values are NaN.
type Series struct {
	Labels   []string
	Averages []float64
	P95      []float64
}

func (s Series) hasAverages() bool { return anyValue(s.Averages) }
func (s Series) hasP95() bool      { return anyValue(s.P95) }

func anyValue(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// BuildSeries orders technologies by ranking (then alphabetically for
// technologies without a mean) and scales values to the display unit.
func BuildSeries(ma *models.MetricAnalysis) Series {
	divisor := 1.0
	if ma.IsDuration && ma.DisplayUnit == models.UnitSeconds {
		divisor = 1000
	}
	value := func(v *float64) float64 {
		if v == nil {
			return math.NaN()
		}
		return *v / divisor
	}

	var s Series
	for _, tech := range analysis.TechOrder(ma) {
		tv := ma.Technologies[tech]
		s.Labels = append(s.Labels, tech)
		s.Averages = append(s.Averages, value(tv.Average))
		s.P95 = append(s.P95, value(tv.P95))
	}
	return s
}

func withUnit(label, unit string) string {
	if unit == "" {
		return label
	}
	return fmt.Sprintf("%s (%s)", label, unit)
}

// Render draws the chart and saves it to path. It reports false when there
// was nothing to plot.
func Render(path, flow, metric string, ma *models.MetricAnalysis) (bool, error) {
	s := BuildSeries(ma)
	if !s.hasAverages() && !s.hasP95() {
		return false, nil
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s · %s", flow, metric)
	p.Y.Label.Text = ma.DisplayUnit
	p.Y.Min = 0
	p.Legend.Top = true

	if s.hasAverages() {
		values := make(plotter.Values, len(s.Averages))
		for i, v := range s.Averages {
			if !math.IsNaN(v) {
				values[i] = v
			}
		}
		bar, err := plotter.NewBarChart(values, vg.Points(40))
		if err != nil {
			return false, fmt.Errorf("failed to build bar series: %w", err)
		}
		bar.Color = barColor
		bar.LineStyle.Width = vg.Length(0)
		p.Add(bar)
		p.Legend.Add(withUnit("Average", ma.DisplayUnit), bar)
	}

	if s.hasP95() {
		var pts plotter.XYs
		for i, v := range s.P95 {
			if !math.IsNaN(v) {
				pts = append(pts, plotter.XY{X: float64(i), Y: v})
			}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return false, fmt.Errorf("failed to build p95 series: %w", err)
		}
		line.Color = lineColor
		line.Width = vg.Points(2)
		points.Color = lineColor
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(withUnit("p95", ma.DisplayUnit), line, points)
	}

	p.NominalX(s.Labels...)
	p.X.Min = -0.5
	p.X.Max = float64(len(s.Labels)) - 0.5

	if err := p.Save(8*vg.Inch, 4.5*vg.Inch, path); err != nil {
		return false, fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return true, nil
}

// Generated is one chart written to disk.
type Generated struct {
	Flow   string
	Metric string
	Path   string
}

// RenderAll writes a chart for every (flow, metric) with data into dir.
func RenderAll(dir string, doc *models.AnalysisDocument, log *logrus.Entry) ([]Generated, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if len(doc.Flows) == 0 {
		log.Warn("no flows in analysis data; no charts generated")
		return nil, nil
	}

	var generated []Generated
	for _, flow := range analysis.SortedFlows(doc) {
		fa := doc.Flows[flow]
		for _, metric := range analysis.SortedMetrics(fa) {
			path := filepath.Join(dir, FileName(flow, metric))
			ok, err := Render(path, flow, metric, fa.Metrics[metric])
			if err != nil {
				return generated, err
			}
			if !ok {
				log.WithFields(logrus.Fields{"flow": flow, "metric": metric}).Warn("skipping chart with no data")
				continue
			}
			generated = append(generated, Generated{Flow: flow, Metric: metric, Path: path})
			log.WithField("path", path).Debug("chart saved")
		}
	}
	return generated, nil
}

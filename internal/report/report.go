// Package report renders the merged analysis as Markdown and HTML.
package report

import (
	"bytes"
	htmltemplate "html/template"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/imishinist/fe-bench/internal/analysis"
	"github.com/imishinist/fe-bench/internal/charts"
	"github.com/imishinist/fe-bench/internal/models"
)

const title = "Performance Results"

var markdownTempl = template.Must(template.New("markdown").Funcs(template.FuncMap{
	"cell": markdownCell,
}).Parse(`# {{.Title}}

Generated at: {{.GeneratedAt}}
{{- if not .Flows}}

No summary data available.
{{- end}}
{{- range .Flows}}

## Flow: {{cell .Name}}
{{- if not .Metrics}}

No metrics available.
{{- end}}
{{- range .Metrics}}

### {{cell .Name}}{{if .Unit}} ({{.Unit}}){{end}}

| Technology | Average | p95 |
| --- | --- | --- |
{{- range .Rows}}
| {{cell .Tech}} | {{.Average}} | {{.P95}} |
{{- end}}
{{- if .Chart}}

[Chart preview]({{.Chart}})

![{{cell .Flow}} – {{cell .Name}}]({{.Chart}})
{{- end}}
{{- end}}
{{- end}}
`))

var htmlTempl = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
    <style>
      body { font-family: Arial, Helvetica, sans-serif; margin: 2rem; line-height: 1.6; }
      h1, h2, h3 { color: #2a2a2a; }
      table { border-collapse: collapse; margin-bottom: 1rem; width: 100%; }
      th, td { border: 1px solid #cccccc; padding: 0.5rem; text-align: left; }
      th { background: #f5f5f5; }
      figure { margin: 1rem 0; }
      figcaption { font-weight: bold; margin-bottom: 0.5rem; }
      img { max-width: 100%; height: auto; border: 1px solid #e0e0e0; }
    </style>
  </head>
  <body>
    <h1>{{.Title}}</h1>
    <p>Generated at: {{.GeneratedAt}}</p>
    {{- if not .Flows}}
    <p>No summary data available.</p>
    {{- end}}
    {{- range .Flows}}
    <section>
      <h2>Flow: {{.Name}}</h2>
      {{- if not .Metrics}}
      <p>No metrics available.</p>
      {{- end}}
      {{- range .Metrics}}
      <section>
        <h3>{{.Name}}{{if .Unit}} ({{.Unit}}){{end}}</h3>
        <table>
          <thead>
            <tr><th>Technology</th><th>Average</th><th>p95</th></tr>
          </thead>
          <tbody>
            {{- range .Rows}}
            <tr><td>{{.Tech}}</td><td>{{.Average}}</td><td>{{.P95}}</td></tr>
            {{- end}}
          </tbody>
        </table>
        {{- if .Chart}}
        <figure>
          <figcaption>{{.Flow}} – {{.Name}}</figcaption>
          <a href="{{.Chart}}"><img src="{{.Chart}}" alt="{{.Flow}} – {{.Name}} chart" loading="lazy" /></a>
        </figure>
        {{- end}}
      </section>
      {{- end}}
    </section>
    {{- end}}
  </body>
</html>
`))

type view struct {
	Title       string
	GeneratedAt string
	Flows       []flowView
}

type flowView struct {
	Name    string
	Metrics []metricView
}

type metricView struct {
	Flow  string
	Name  string
	Unit  string
	Rows  []rowView
	Chart string
}

type rowView struct {
	Tech    string
	Average string
	P95     string
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func unitLabel(ma *models.MetricAnalysis) string {
	if !ma.IsDuration {
		return ma.DisplayUnit
	}
	if ma.DisplayUnit == "" {
		return models.UnitMilliseconds
	}
	return ma.DisplayUnit
}

// Options locate the chart images relative to the report.
type Options struct {
	ReportDir string
	ChartsDir string
}

func (o Options) chartRef(flow, metric string) string {
	name := charts.FileName(flow, metric)
	if _, err := os.Stat(filepath.Join(o.ChartsDir, name)); err != nil {
		return ""
	}
	rel, err := filepath.Rel(o.ReportDir, filepath.Join(o.ChartsDir, name))
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

func buildView(doc *models.AnalysisDocument, opts Options) view {
	v := view{Title: title, GeneratedAt: doc.GeneratedAt.UTC().Format(time.RFC1123)}
	if doc.GeneratedAt.IsZero() {
		v.GeneratedAt = time.Now().UTC().Format(time.RFC1123)
	}

	for _, flow := range analysis.SortedFlows(doc) {
		fa := doc.Flows[flow]
		fv := flowView{Name: flow}
		for _, metric := range analysis.SortedMetrics(fa) {
			ma := fa.Metrics[metric]
			mv := metricView{
				Flow:  flow,
				Name:  metric,
				Unit:  unitLabel(ma),
				Chart: opts.chartRef(flow, metric),
			}
			for _, tech := range analysis.TechOrder(ma) {
				tv := ma.Technologies[tech]
				mv.Rows = append(mv.Rows, rowView{
					Tech:    tech,
					Average: analysis.FormatValue(tv.Average, ma.DisplayUnit, ma.IsDuration),
					P95:     analysis.FormatValue(tv.P95, ma.DisplayUnit, ma.IsDuration),
				})
			}
			fv.Metrics = append(fv.Metrics, mv)
		}
		v.Flows = append(v.Flows, fv)
	}
	return v
}

func Markdown(doc *models.AnalysisDocument, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownTempl.Execute(&buf, buildView(doc, opts)); err != nil {
		return nil, fmt.Errorf("failed to render markdown report: %w", err)
	}
	return buf.Bytes(), nil
}

func HTML(doc *models.AnalysisDocument, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTempl.Execute(&buf, buildView(doc, opts)); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders report.md and index.html into opts.ReportDir.
func Write(doc *models.AnalysisDocument, opts Options) ([]string, error) {
	if err := os.MkdirAll(opts.ReportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.ReportDir, err)
	}

	outputs := []struct {
		name   string
		render func(*models.AnalysisDocument, Options) ([]byte, error)
	}{
		{"report.md", Markdown},
		{"index.html", HTML},
	}

	var paths []string
	for _, out := range outputs {
		data, err := out.render(doc, opts)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.ReportDir, out.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

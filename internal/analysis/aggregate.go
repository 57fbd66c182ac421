// Package analysis merges per-pair summary files into one cross-technology
// comparison.
package analysis

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/parser"
	"github.com/imishinist/fe-bench/internal/store"
)

// secondsThreshold is the largest value, in milliseconds, still shown in ms.
const secondsThreshold = 2000.0

const missingCell = "—"

var (
	techColumns   = []string{"technology", "tech", "framework", "app", "project"}
	flowColumns   = []string{"flow", "scenario", "path", "journey"}
	metricColumns = []string{"metric", "name", "label"}
	unitColumns   = []string{"unit", "units"}
	statColumns   = []string{"stat", "summary"}
	valueColumns  = []string{"value", "result"}

	numberSuffix = regexp.MustCompile(`(?i)\s*(ms|s|%)$`)
)

// Observation is one statistic of one metric, already in canonical units.
type Observation struct {
	Tech   string
	Flow   string
	Metric string
	Stat   string
	Value  float64
	// Score marks a unitless value whatever the metric name suggests.
	Score bool
}

// Aggregator accumulates observations and renders the merged document.
type Aggregator struct {
	// flow -> metric -> tech -> values
	data map[string]map[string]map[string]*models.TechValues
	// metrics reported with a score unit
	scores map[string]bool
	log    *logrus.Entry
}

func NewAggregator(log *logrus.Entry) *Aggregator {
	return &Aggregator{
		data:   make(map[string]map[string]map[string]*models.TechValues),
		scores: make(map[string]bool),
		log:    log,
	}
}

// LoadDir reads every summary file under dir. A missing or empty directory
// yields an empty aggregation and a warning.
func (a *Aggregator) LoadDir(dir string) (int, error) {
	files, err := store.ListSummaries(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		a.log.Warnf("no summary files found in %s", dir)
		return 0, nil
	}

	for _, f := range files {
		file, err := os.Open(f.Path)
		if err != nil {
			return 0, fmt.Errorf("failed to open %s: %w", f.Path, err)
		}
		table, err := parser.ParseCSVTable(file)
		file.Close()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", f.Path, err)
		}
		a.AddTable(table, f.Label)
	}
	return len(files), nil
}

// AddTable extracts observations from a parsed summary. label is the file
// name without extension, "<tech>-<flow>", used when rows carry no
// technology or flow column.
func (a *Aggregator) AddTable(table *parser.Table, label string) {
	fallbackTech, fallbackFlow := splitLabel(label)
	for _, row := range table.Rows {
		for _, obs := range extractRow(table, row, fallbackTech, fallbackFlow) {
			a.Add(obs)
		}
	}
}

func (a *Aggregator) Add(obs Observation) {
	if obs.Tech == "" || obs.Metric == "" || obs.Stat == "" || math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
		return
	}
	if obs.Score {
		a.scores[obs.Metric] = true
	}
	metrics, ok := a.data[obs.Flow]
	if !ok {
		metrics = make(map[string]map[string]*models.TechValues)
		a.data[obs.Flow] = metrics
	}
	techs, ok := metrics[obs.Metric]
	if !ok {
		techs = make(map[string]*models.TechValues)
		metrics[obs.Metric] = techs
	}
	values, ok := techs[obs.Tech]
	if !ok {
		values = &models.TechValues{}
		techs[obs.Tech] = values
	}

	v := obs.Value
	switch obs.Stat {
	case StatAverage:
		values.Average = &v
	case StatP95:
		values.P95 = &v
	}
}

// splitLabel derives technology and flow from "<tech>-<flow>".
func splitLabel(label string) (string, string) {
	tech, flow, ok := strings.Cut(label, "-")
	if !ok || flow == "" {
		return label, models.DefaultFlow
	}
	return tech, flow
}

func firstValue(row map[string]string, columns []string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(row[c]); v != "" {
			return v
		}
	}
	return ""
}

func extractRow(table *parser.Table, row map[string]string, fallbackTech, fallbackFlow string) []Observation {
	tech := firstValue(row, techColumns)
	if tech == "" {
		tech = fallbackTech
	}
	flow := firstValue(row, flowColumns)
	if flow == "" {
		flow = fallbackFlow
	}

	metric := CanonicalMetric(firstValue(row, metricColumns))
	if strings.EqualFold(row["source"], string(models.SourceWebVitals)) {
		metric = "Web Vitals: " + metric
	}
	unit := firstValue(row, unitColumns)
	score := isScoreUnit(unit)

	observe := func(stat, raw string) []Observation {
		value, suffix, ok := ParseNumber(raw)
		if !ok {
			return nil
		}
		u := unit
		if u == "" {
			u = suffix
		}
		return []Observation{{
			Tech:   tech,
			Flow:   flow,
			Metric: metric,
			Stat:   stat,
			Value:  ToCanonical(value, u, metric),
			Score:  score,
		}}
	}

	if statName := firstValue(row, statColumns); statName != "" {
		stat := CanonicalStat(statName)
		if stat == "" {
			return nil
		}
		return observe(stat, firstValue(row, valueColumns))
	}

	var out []Observation
	for _, column := range table.Headers {
		// median is only meaningful as a long-form stat label
		if column == "median" {
			continue
		}
		if stat := CanonicalStat(column); stat != "" {
			out = append(out, observe(stat, row[column])...)
		}
	}
	return out
}

// ParseNumber reads a value tolerating thousands separators and a trailing
// ms, s or % suffix, which is returned lower-cased.
func ParseNumber(raw string) (float64, string, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	var suffix string
	if m := numberSuffix.FindStringSubmatch(s); m != nil {
		suffix = strings.ToLower(m[1])
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}
	if suffix == "%" {
		suffix = ""
	}
	if s == "" {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "", false
	}
	return v, suffix, true
}

func isScoreUnit(unit string) bool {
	return strings.EqualFold(strings.TrimSpace(unit), models.UnitScore)
}

// NormalizeUnit reduces a unit label to ms, s, or "" for unitless metrics.
func NormalizeUnit(unit, metric string) string {
	if !IsDuration(metric) || isScoreUnit(unit) {
		return ""
	}
	u := strings.ToLower(strings.TrimSpace(unit))
	switch {
	case u == "ms" || strings.Contains(u, "millisecond"):
		return models.UnitMilliseconds
	case u == "s" || u == "sec" || strings.Contains(u, "second"):
		return models.UnitSeconds
	default:
		return models.UnitMilliseconds
	}
}

// ToCanonical converts durations to milliseconds; scores pass through.
func ToCanonical(value float64, unit, metric string) float64 {
	if NormalizeUnit(unit, metric) == models.UnitSeconds {
		return value * 1000
	}
	return value
}

// DisplayUnit picks ms or s for a duration metric from every average and
// p95 it will show; unitless metrics get "".
func DisplayUnit(isDuration bool, values map[string]*models.TechValues) string {
	if !isDuration {
		return ""
	}
	for _, v := range values {
		for _, x := range []*float64{v.Average, v.P95} {
			if x != nil && *x >= secondsThreshold {
				return models.UnitSeconds
			}
		}
	}
	return models.UnitMilliseconds
}

// FormatValue renders a canonical value in the display unit: seconds and
// milliseconds with 2 decimals, unitless scores with 4.
func FormatValue(value *float64, displayUnit string, isDuration bool) string {
	if value == nil {
		return missingCell
	}
	if !isDuration {
		return strconv.FormatFloat(*value, 'f', 4, 64)
	}
	v := *value
	if displayUnit == models.UnitSeconds {
		v /= 1000
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Document renders the merged analysis.
func (a *Aggregator) Document(now time.Time) *models.AnalysisDocument {
	doc := &models.AnalysisDocument{
		GeneratedAt: now.UTC(),
		Flows:       make(map[string]*models.FlowAnalysis, len(a.data)),
	}

	for flow, metrics := range a.data {
		fa := &models.FlowAnalysis{Metrics: make(map[string]*models.MetricAnalysis, len(metrics))}
		for metric, techs := range metrics {
			isDuration := IsDuration(metric) && !a.scores[metric]
			ma := &models.MetricAnalysis{
				Metric:       metric,
				DisplayUnit:  DisplayUnit(isDuration, techs),
				IsDuration:   isDuration,
				Technologies: make(map[string]models.TechValues, len(techs)),
				Order:        []string{},
			}
			for tech, v := range techs {
				ma.Technologies[tech] = *v
				if v.Average != nil {
					ma.Order = append(ma.Order, tech)
				}
			}
			sort.Slice(ma.Order, func(i, j int) bool {
				ai, aj := *ma.Technologies[ma.Order[i]].Average, *ma.Technologies[ma.Order[j]].Average
				if ai != aj {
					return ai < aj
				}
				return ma.Order[i] < ma.Order[j]
			})
			fa.Metrics[metric] = ma
		}
		doc.Flows[flow] = fa
	}
	return doc
}

// Package summary reduces the run records of one (technology, flow) pair to
// summary rows.
package summary

import (
	"sort"

	"github.com/imishinist/fe-bench/internal/extract"
	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/stats"
)

// StressAverage is the auxiliary row summarizing the stress series.
const StressAverage = "stress_update_avg"

type Options struct {
	// CustomMarks fixes the order of custom rows.
	CustomMarks []string
	// IsScore reports unitless metrics; everything else is milliseconds.
	IsScore func(name string) bool
}

// Build aggregates records into rows ordered audit, custom, web-vitals,
// auxiliary. Metrics with no samples produce no row.
func Build(records []*models.RunRecord, opts Options) []models.SummaryRow {
	unit := func(name string) string {
		if opts.IsScore != nil && opts.IsScore(name) {
			return models.UnitScore
		}
		return models.UnitMilliseconds
	}

	var rows []models.SummaryRow
	add := func(name string, source models.Source, samples []float64) {
		if st := stats.Aggregate(samples); st != nil {
			rows = append(rows, models.SummaryRow{Metric: name, Source: source, Unit: unit(name), Stats: *st})
		}
	}

	for _, key := range sortedKeys(records, func(r *models.RunRecord) map[string]float64 { return r.Audit }) {
		add(key, models.SourceAudit, collect(records, func(r *models.RunRecord) (float64, bool) {
			v, ok := r.Audit[key]
			return v, ok
		}))
	}

	for _, mark := range opts.CustomMarks {
		add(mark, models.SourceCustom, collect(records, func(r *models.RunRecord) (float64, bool) {
			v, ok := r.CustomMetrics[mark]
			return v, ok
		}))
	}

	for _, key := range sortedKeys(records, func(r *models.RunRecord) map[string]float64 { return r.WebVitals }) {
		add(key, models.SourceWebVitals, collect(records, func(r *models.RunRecord) (float64, bool) {
			v, ok := r.WebVitals[key]
			return v, ok
		}))
	}

	add(StressAverage, models.SourceAuxiliary, collect(records, func(r *models.RunRecord) (float64, bool) {
		series := r.ExtraMetrics[extract.StressSeries]
		if len(series) == 0 {
			return 0, false
		}
		var sum float64
		for _, p := range series {
			sum += p.Duration
		}
		return sum / float64(len(series)), true
	}))

	return rows
}

func collect(records []*models.RunRecord, pick func(*models.RunRecord) (float64, bool)) []float64 {
	var samples []float64
	for _, r := range records {
		if v, ok := pick(r); ok {
			samples = append(samples, v)
		}
	}
	return samples
}

func sortedKeys(records []*models.RunRecord, field func(*models.RunRecord) map[string]float64) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range records {
		for k := range field(r) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

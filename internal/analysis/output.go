package analysis

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/imishinist/fe-bench/internal/models"
)

// SortedFlows returns the flow names of doc in order.
func SortedFlows(doc *models.AnalysisDocument) []string {
	flows := make([]string, 0, len(doc.Flows))
	for f := range doc.Flows {
		flows = append(flows, f)
	}
	sort.Strings(flows)
	return flows
}

// SortedMetrics returns the metric names of one flow in order.
func SortedMetrics(fa *models.FlowAnalysis) []string {
	metrics := make([]string, 0, len(fa.Metrics))
	for m := range fa.Metrics {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return metrics
}

// TechOrder is the ranking order followed by technologies without a mean,
// alphabetically.
func TechOrder(ma *models.MetricAnalysis) []string {
	order := append([]string{}, ma.Order...)
	ranked := make(map[string]bool, len(order))
	for _, t := range order {
		ranked[t] = true
	}
	var rest []string
	for t := range ma.Technologies {
		if !ranked[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func flowTechnologies(fa *models.FlowAnalysis) []string {
	seen := make(map[string]bool)
	var techs []string
	for _, ma := range fa.Metrics {
		for t := range ma.Technologies {
			if !seen[t] {
				seen[t] = true
				techs = append(techs, t)
			}
		}
	}
	sort.Strings(techs)
	return techs
}

// WideTable lays the document out as one row per (flow, technology) with an
// average and a p95 column per metric.
func WideTable(doc *models.AnalysisDocument) [][]string {
	metricSet := make(map[string]bool)
	for _, fa := range doc.Flows {
		for m := range fa.Metrics {
			metricSet[m] = true
		}
	}
	metrics := make([]string, 0, len(metricSet))
	for m := range metricSet {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	header := []string{"Flow", "Technology"}
	for _, m := range metrics {
		header = append(header, m+" (avg)", m+" (p95)")
	}
	table := [][]string{header}

	for _, flow := range SortedFlows(doc) {
		fa := doc.Flows[flow]
		for _, tech := range flowTechnologies(fa) {
			row := []string{flow, tech}
			for _, m := range metrics {
				ma, ok := fa.Metrics[m]
				if !ok {
					row = append(row, missingCell, missingCell)
					continue
				}
				v := ma.Technologies[tech]
				row = append(row, cell(v.Average, ma), cell(v.P95, ma))
			}
			table = append(table, row)
		}
	}
	return table
}

func cell(value *float64, ma *models.MetricAnalysis) string {
	s := FormatValue(value, ma.DisplayUnit, ma.IsDuration)
	if value == nil || ma.DisplayUnit == "" {
		return s
	}
	return s + " " + ma.DisplayUnit
}

func WriteJSON(w io.Writer, doc *models.AnalysisDocument) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	return nil
}

func WriteCSV(w io.Writer, doc *models.AnalysisDocument) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(WideTable(doc)); err != nil {
		return fmt.Errorf("failed to write comparison table: %w", err)
	}
	return nil
}

const (
	comparisonSheet = "Comparison"
	rankingSheet    = "Ranking"
)

// WriteXLSX saves the wide table plus a numeric ranking sheet with values in
// each metric's display unit.
func WriteXLSX(path string, doc *models.AnalysisDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return err
	}
	for i, row := range WideTable(doc) {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if err := setRow(f, comparisonSheet, i+1, cells); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(rankingSheet); err != nil {
		return err
	}
	if err := setRow(f, rankingSheet, 1, []any{"Flow", "Metric", "Rank", "Technology", "Average", "P95", "Unit"}); err != nil {
		return err
	}
	line := 2
	for _, flow := range SortedFlows(doc) {
		fa := doc.Flows[flow]
		for _, metric := range SortedMetrics(fa) {
			ma := fa.Metrics[metric]
			for rank, tech := range TechOrder(ma) {
				v := ma.Technologies[tech]
				row := []any{flow, metric, rank + 1, tech, scaled(v.Average, ma), scaled(v.P95, ma), ma.DisplayUnit}
				if rank >= len(ma.Order) {
					row[2] = nil
				}
				if err := setRow(f, rankingSheet, line, row); err != nil {
					return err
				}
				line++
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// scaled converts a canonical value to the display unit; nil stays empty.
func scaled(value *float64, ma *models.MetricAnalysis) any {
	if value == nil {
		return nil
	}
	if ma.IsDuration && ma.DisplayUnit == models.UnitSeconds {
		return *value / 1000
	}
	return *value
}

// WriteFiles writes data.json, combined.csv and combined.xlsx into dir.
func WriteFiles(dir string, doc *models.AnalysisDocument) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	paths := map[string]string{
		"json": filepath.Join(dir, "data.json"),
		"csv":  filepath.Join(dir, "combined.csv"),
		"xlsx": filepath.Join(dir, "combined.xlsx"),
	}

	for kind, write := range map[string]func(io.Writer, *models.AnalysisDocument) error{
		"json": WriteJSON,
		"csv":  WriteCSV,
	} {
		file, err := os.Create(paths[kind])
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", paths[kind], err)
		}
		if err := write(file, doc); err != nil {
			file.Close()
			return nil, err
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
	}

	if err := WriteXLSX(paths["xlsx"], doc); err != nil {
		return nil, err
	}
	return paths, nil
}

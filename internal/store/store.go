// Package store lays out the raw and summary artifacts under the results
// directory.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/parser"
)

// SummaryHeader is the column set of every summary file.
var SummaryHeader = []string{"metric", "source", "mean", "p95", "stddev", "unit", "runs"}

type Store struct {
	rawDir     string
	summaryDir string
}

func New(rawDir, summaryDir string) *Store {
	return &Store{rawDir: rawDir, summaryDir: summaryDir}
}

func (s *Store) PairDir(tech, flow string) string {
	return filepath.Join(s.rawDir, tech, flow)
}

func (s *Store) RawPath(tech, flow string, run int) string {
	return filepath.Join(s.PairDir(tech, flow), fmt.Sprintf("run-%d.json", run))
}

func (s *Store) SummaryPath(tech, flow string) string {
	return filepath.Join(s.summaryDir, fmt.Sprintf("%s-%s.csv", tech, flow))
}

// ResetPair empties the raw directory of a pair so a new invocation starts
// from nothing.
func (s *Store) ResetPair(tech, flow string) error {
	dir := s.PairDir(tech, flow)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// WriteRaw persists a record. Existing files are never overwritten.
func (s *Store) WriteRaw(record *models.RunRecord) (string, error) {
	path := s.RawPath(record.Tech, record.Flow, record.Run)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create raw directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create raw record: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return "", fmt.Errorf("failed to write raw record %s: %w", path, err)
	}
	return path, nil
}

// ReadRaw loads every record of a pair in run order.
func (s *Store) ReadRaw(tech, flow string) ([]*models.RunRecord, error) {
	paths, err := filepath.Glob(filepath.Join(s.PairDir(tech, flow), "run-*.json"))
	if err != nil {
		return nil, err
	}

	var records []*models.RunRecord
	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		record, err := parser.ParseJSONRecord(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Run < records[j].Run })
	return records, nil
}

// WriteSummary replaces the summary file of a pair. An empty row set still
// yields a header-only file.
func (s *Store) WriteSummary(tech, flow string, rows []models.SummaryRow) (string, error) {
	if err := os.MkdirAll(s.summaryDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create summary directory: %w", err)
	}

	path := s.SummaryPath(tech, flow)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(SummaryHeader); err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := w.Write(summaryRecord(row)); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to write summary file %s: %w", path, err)
	}
	return path, nil
}

func summaryRecord(row models.SummaryRow) []string {
	prec := 2
	if row.Unit == models.UnitScore {
		prec = 4
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', prec, 64) }
	return []string{
		row.Metric,
		string(row.Source),
		f(row.Mean),
		f(row.P95),
		f(row.StdDev),
		row.Unit,
		strconv.Itoa(row.Count),
	}
}

// SummaryFile is one summary artifact found on disk.
type SummaryFile struct {
	Path string
	// Label is the file name without extension, "<tech>-<flow>".
	Label string
}

// ListSummaries returns the summary files in name order. A missing
// directory is not an error.
func ListSummaries(dir string) ([]SummaryFile, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var files []SummaryFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, SummaryFile{
			Path:  filepath.Join(dir, e.Name()),
			Label: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Label < files[j].Label })
	return files, nil
}

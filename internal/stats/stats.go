// Package stats turns sample sets into summary statistics.
package stats

import (
	"math"
	"sort"

	"github.com/imishinist/fe-bench/internal/models"
)

// Aggregate returns mean, nearest-rank p95 and sample standard deviation.
// It returns nil for an empty sample set; callers treat that as "no row".
func Aggregate(samples []float64) *models.Stats {
	n := len(samples)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var stddev float64
	if n > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		stddev = math.Sqrt(sq / float64(n-1))
	}

	return &models.Stats{
		Mean:   mean,
		P95:    sorted[P95Index(n)],
		StdDev: stddev,
		Count:  n,
	}
}

// P95Index is the nearest-rank index of the 95th percentile in a sorted
// slice of length n > 0.
func P95Index(n int) int {
	idx := int(math.Ceil(0.95*float64(n))) - 1
	if idx > n-1 {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

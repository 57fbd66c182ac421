package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Empty(t *testing.T) {
	require.Nil(t, Aggregate(nil))
	require.Nil(t, Aggregate([]float64{}))
}

func TestAggregate_SingleSample(t *testing.T) {
	got := Aggregate([]float64{42.5})
	require.NotNil(t, got)
	assert.Equal(t, 42.5, got.Mean)
	assert.Equal(t, 42.5, got.P95)
	assert.Equal(t, 0.0, got.StdDev)
	assert.Equal(t, 1, got.Count)
}

func TestAggregate_KnownValues(t *testing.T) {
	got := Aggregate([]float64{4, 2, 8, 6})
	require.NotNil(t, got)
	assert.Equal(t, 5.0, got.Mean)
	// ceil(0.95*4)-1 = 3
	assert.Equal(t, 8.0, got.P95)
	// sample variance: (9+1+1+9)/3
	assert.InDelta(t, 2.5819888974716, got.StdDev, 1e-9)
	assert.Equal(t, 4, got.Count)
}

func TestAggregate_DoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Aggregate(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestP95Index(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{n: 1, want: 0},
		{n: 2, want: 1},
		{n: 3, want: 2},
		{n: 19, want: 18},
		{n: 20, want: 18},
		{n: 21, want: 19},
		{n: 100, want: 94},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, P95Index(tc.n), "n=%d", tc.n)
	}
}

func TestAggregate_P95IsAlwaysASample(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := r.Intn(50) + 1
		samples := make([]float64, n)
		for j := range samples {
			samples[j] = r.Float64() * 5000
		}
		got := Aggregate(samples)
		require.NotNil(t, got)
		assert.Contains(t, samples, got.P95)
	}
}

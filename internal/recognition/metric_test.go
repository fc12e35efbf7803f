package recognition

import (
	"errors"
	"math"
	"testing"

	"github.com/markme/facecheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical vectors", a: []float64{1, 0, 0}, b: []float64{1, 0, 0}, want: 1},
		{name: "scaled vectors", a: []float64{1, 2, 3}, b: []float64{2, 4, 6}, want: 1},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "zero vector", a: []float64{0, 0, 0}, b: []float64{1, 2, 3}, want: 0},
		{name: "both zero", a: []float64{0, 0}, b: []float64{0, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSimilarity_ZeroVectorIsExactlyZero(t *testing.T) {
	got, err := CosineSimilarity([]float64{0, 0, 0}, []float64{0.3, -0.1, 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCosineSimilarity_TinyVectorIsStillItself(t *testing.T) {
	a := []float64{1e-12, 0, 0}

	self, err := CosineSimilarity(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-9)

	dist, err := CosineDistance(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, dist, 1e-9)
}

func TestCosineSimilarity_UnderflowCountsAsZero(t *testing.T) {
	// squares underflow to 0, so the norm is zero
	a := []float64{1e-200, 0}

	got, err := CosineSimilarity(a, []float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	dist, err := CosineDistance(a, []float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, dist)
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical vectors", a: []float64{0.2, 0.4}, b: []float64{0.2, 0.4}, want: 0},
		{name: "orthogonal vectors", a: []float64{1, 0}, b: []float64{0, 1}, want: 1},
		{name: "opposite vectors", a: []float64{1, 0}, b: []float64{-1, 0}, want: 2},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 1}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineDistance(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.False(t, math.IsNaN(got))
			assert.False(t, math.IsInf(got, 0))
		})
	}
}

func TestMetrics_Properties(t *testing.T) {
	vectors := [][]float64{
		{0.1, 0.2, 0.3, 0.4},
		{-0.5, 0.25, 0.0, 1.0},
		{3, -1, 2, 7},
		{0, 0, 0, 0},
		{1e-9, 0, 0, 0},
		{-2, -2, -2, -2},
	}

	for i, a := range vectors {
		for j, b := range vectors {
			ab, err := CosineSimilarity(a, b)
			require.NoError(t, err)
			ba, err := CosineSimilarity(b, a)
			require.NoError(t, err)
			dist, err := CosineDistance(a, b)
			require.NoError(t, err)

			assert.Equal(t, ab, ba, "symmetry %d/%d", i, j)
			assert.GreaterOrEqual(t, ab, -1.0)
			assert.LessOrEqual(t, ab, 1.0)
			assert.InDelta(t, 1.0, dist+ab, 1e-12, "complement %d/%d", i, j)
		}
	}

	for _, a := range append(vectors[:3:3], vectors[4], vectors[5]) {
		self, err := CosineSimilarity(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self, 1e-9)
	}
}

func TestMetrics_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	_, err = CosineDistance(nil, nil)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestNormalizeEmbedding(t *testing.T) {
	got := NormalizeEmbedding([]float64{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-9)
	assert.InDelta(t, 0.8, got[1], 1e-9)

	zero := []float64{0, 0}
	assert.Equal(t, zero, NormalizeEmbedding(zero))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Distance ")
	require.NoError(t, err)
	assert.Equal(t, MetricDistance, m)

	m, err = ParseMetric("similarity")
	require.NoError(t, err)
	assert.Equal(t, MetricSimilarity, m)

	_, err = ParseMetric("euclidean")
	assert.Error(t, err)
}

func TestPolicy_AcceptsIsStrict(t *testing.T) {
	dist := DistancePolicy(0.55)
	assert.True(t, dist.Accepts(0.54))
	assert.False(t, dist.Accepts(0.55))
	assert.False(t, dist.Accepts(0.9))

	sim := SimilarityPolicy(0.45)
	assert.True(t, sim.Accepts(0.46))
	assert.False(t, sim.Accepts(0.45))
	assert.False(t, sim.Accepts(0.1))
}

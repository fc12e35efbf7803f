package recognition

import (
	"fmt"
	"math"

	"github.com/markme/facecheck/internal/domain"
)

// CosineSimilarity returns dot(a,b)/(|a||b|) clamped to [-1, 1]. It is 0 when
// either vector has zero norm.
func CosineSimilarity(a, b []float64) (float64, error) {
	return cosine(a, b)
}

// CosineDistance returns 1 - CosineSimilarity(a, b), so a zero vector sits at
// distance 1 from everything.
func CosineDistance(a, b []float64) (float64, error) {
	sim, err := cosine(a, b)
	if err != nil {
		return 0, err
	}
	return 1.0 - sim, nil
}

// NormalizeEmbedding scales an embedding to unit length. Zero vectors are
// returned unchanged.
func NormalizeEmbedding(embedding []float64) []float64 {
	var norm float64
	for _, v := range embedding {
		norm += v * v
	}

	if norm == 0 {
		return embedding
	}

	norm = math.Sqrt(norm)
	normalized := make([]float64, len(embedding))
	for i, v := range embedding {
		normalized[i] = v / norm
	}

	return normalized
}

func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("len %d vs %d", len(a), len(b)),
		)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	return clamp(sim, -1, 1), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

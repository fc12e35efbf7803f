package recognition

import (
	"fmt"
	"math"
	"strings"
)

// Metric selects how embeddings are compared.
type Metric string

const (
	// MetricDistance compares by cosine distance; lower is closer.
	MetricDistance Metric = "distance"
	// MetricSimilarity compares by cosine similarity; higher is closer.
	MetricSimilarity Metric = "similarity"
)

// ParseMetric accepts "distance" or "similarity" in any case.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricDistance:
		return MetricDistance, nil
	case MetricSimilarity:
		return MetricSimilarity, nil
	default:
		return "", fmt.Errorf("unknown metric %q (supported: %s, %s)", s, MetricDistance, MetricSimilarity)
	}
}

// Policy is a metric plus the strict threshold a score has to beat.
type Policy struct {
	Metric    Metric
	Threshold float64
}

// DistancePolicy accepts a match when distance < threshold.
func DistancePolicy(threshold float64) Policy {
	return Policy{Metric: MetricDistance, Threshold: threshold}
}

// SimilarityPolicy accepts a match when similarity > threshold.
func SimilarityPolicy(threshold float64) Policy {
	return Policy{Metric: MetricSimilarity, Threshold: threshold}
}

// Score compares two embeddings under the policy's metric.
func (p Policy) Score(a, b []float64) (float64, error) {
	if p.Metric == MetricSimilarity {
		return CosineSimilarity(a, b)
	}
	return CosineDistance(a, b)
}

// Accepts reports whether score is strictly on the matching side of the
// threshold.
func (p Policy) Accepts(score float64) bool {
	if p.Metric == MetricSimilarity {
		return score > p.Threshold
	}
	return score < p.Threshold
}

// better reports whether score strictly improves on best. Ties keep the
// earlier candidate.
func (p Policy) better(score, best float64) bool {
	if p.Metric == MetricSimilarity {
		return score > best
	}
	return score < best
}

func (p Policy) worst() float64 {
	if p.Metric == MetricSimilarity {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

package recognition

import (
	"sync"
	"testing"

	"github.com/markme/facecheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refs() []domain.ReferenceEntry {
	return []domain.ReferenceEntry{
		{StudentID: "S1", Name: "Ana", Embedding: []float64{1, 0, 0}},
		{StudentID: "S2", Name: "Bruno", Embedding: []float64{0, 1, 0}},
	}
}

func TestMatchFaces_Distance(t *testing.T) {
	policy := DistancePolicy(0.55)

	probes := []ProbeFace{
		{Index: 0, Embedding: []float64{0.9, 0.1, 0}},
		{Index: 1, Embedding: []float64{0.1, 0.95, 0}},
		{Index: 2, Embedding: []float64{0, 0, 1}},
	}

	results, scores := MatchFaces(policy, probes, refs())
	require.Len(t, results, 3)

	assert.True(t, results[0].Matched)
	assert.Equal(t, "S1", results[0].StudentID)
	assert.Equal(t, "Ana", results[0].Name)

	assert.True(t, results[1].Matched)
	assert.Equal(t, "S2", results[1].StudentID)

	assert.False(t, results[2].Matched)
	assert.Equal(t, domain.UnknownStudent, results[2].StudentID)
	assert.Equal(t, domain.UnknownStudent, results[2].Name)
	require.NotNil(t, results[2].Score)
	assert.InDelta(t, 1.0, *results[2].Score, 1e-9)

	// every face against every candidate is kept
	assert.Len(t, scores, 6)
	assert.Equal(t, 2, scores[4].Face)
	assert.Equal(t, "S1", scores[4].StudentID)
}

func TestMatchFaces_Similarity(t *testing.T) {
	policy := SimilarityPolicy(0.45)

	results, _ := MatchFaces(policy, []ProbeFace{
		{Index: 0, Embedding: []float64{0.1, 0.9, 0}},
		{Index: 1, Embedding: []float64{0, 0, 1}},
	}, refs())

	assert.Equal(t, "S2", results[0].StudentID)
	assert.False(t, results[1].Matched)
}

func TestMatchFace_ThresholdIsStrict(t *testing.T) {
	ref := []domain.ReferenceEntry{{StudentID: "S1", Name: "Ana", Embedding: []float64{1, 0}}}
	probe := ProbeFace{Embedding: []float64{0, 1}}

	result, _ := MatchFace(DistancePolicy(1.0), probe, ref)
	assert.False(t, result.Matched, "distance equal to threshold must not match")
}

func TestMatchFace_TiesKeepFirst(t *testing.T) {
	twins := []domain.ReferenceEntry{
		{StudentID: "S1", Name: "First", Embedding: []float64{1, 0}},
		{StudentID: "S2", Name: "Second", Embedding: []float64{1, 0}},
	}

	result, _ := MatchFace(DistancePolicy(0.5), ProbeFace{Embedding: []float64{1, 0}}, twins)
	assert.Equal(t, "S1", result.StudentID)
}

func TestMatchFaces_FailedProbeIsUnknown(t *testing.T) {
	probes := []ProbeFace{
		{Index: 0, Embedding: nil},
		{Index: 1, Embedding: []float64{1, 0, 0}},
	}

	results, scores := MatchFaces(DistancePolicy(0.55), probes, refs())
	require.Len(t, results, 2)

	assert.Equal(t, domain.UnknownStudent, results[0].StudentID)
	assert.Nil(t, results[0].Score)
	assert.True(t, results[1].Matched)

	for _, s := range scores {
		assert.Equal(t, 1, s.Face)
	}
}

func TestMatchFace_SkipsMismatchedReferences(t *testing.T) {
	mixed := []domain.ReferenceEntry{
		{StudentID: "S0", Name: "Short", Embedding: []float64{1}},
		{StudentID: "S1", Name: "Ana", Embedding: []float64{1, 0}},
	}

	result, scores := MatchFace(DistancePolicy(0.5), ProbeFace{Embedding: []float64{1, 0}}, mixed)
	assert.Equal(t, "S1", result.StudentID)
	assert.Len(t, scores, 1)
}

func TestMatchFace_NoReferences(t *testing.T) {
	result, scores := MatchFace(DistancePolicy(0.5), ProbeFace{Embedding: []float64{1, 0}}, nil)
	assert.False(t, result.Matched)
	assert.Nil(t, result.Score)
	assert.Empty(t, scores)
}

func TestPresence(t *testing.T) {
	known := map[string][]float64{
		"S1": {1, 0, 0},
		"S2": {0, 1, 0},
	}

	p := NewPresence(SimilarityPolicy(0.45))

	added := p.Observe([][]float64{{0.9, 0.1, 0}}, known)
	assert.Equal(t, 1, added)

	// same student again is a no-op
	added = p.Observe([][]float64{{1, 0, 0}, {0, 0, 1}}, known)
	assert.Equal(t, 0, added)

	// no negative evidence: a miss never removes anyone
	p.Observe([][]float64{{0, 0, 1}}, known)

	assert.Equal(t, []string{"S1"}, p.IDs())
	assert.Equal(t, 1, p.Len())
}

func TestPresence_ConcurrentObserve(t *testing.T) {
	known := map[string][]float64{
		"S1": {1, 0, 0},
		"S2": {0, 1, 0},
		"S3": {0, 0, 1},
	}
	p := NewPresence(SimilarityPolicy(0.45))

	var wg sync.WaitGroup
	for _, probe := range [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 0}} {
		wg.Add(1)
		go func(probe []float64) {
			defer wg.Done()
			p.Observe([][]float64{probe}, known)
		}(probe)
	}
	wg.Wait()

	assert.Equal(t, []string{"S1", "S2", "S3"}, p.IDs())
}

func TestPresence_IgnoresMismatchedProbe(t *testing.T) {
	p := NewPresence(SimilarityPolicy(0.45))
	p.Observe([][]float64{{1, 0}}, map[string][]float64{"S1": {1, 0, 0}})
	assert.Empty(t, p.IDs())
}

package recognition

import (
	"github.com/markme/facecheck/internal/domain"
)

// ProbeFace is one face detected in an incoming image. A nil Embedding means
// extraction failed for this face and it is reported as unknown.
type ProbeFace struct {
	Index     int
	Region    domain.FaceRegion
	Embedding []float64
}

// CandidateScore is the raw score of one probe face against one reference.
type CandidateScore struct {
	Face      int     `json:"face"`
	StudentID string  `json:"student_id"`
	Candidate string  `json:"candidate"`
	Score     float64 `json:"score"`
}

// MatchResult is the decision for one probe face. Score holds the best score
// seen, even when it did not pass the threshold, and is nil when nothing was
// compared.
type MatchResult struct {
	Face          int               `json:"face"`
	Region        domain.FaceRegion `json:"region"`
	StudentID     string            `json:"student_id"`
	Name          string            `json:"name"`
	BestCandidate string            `json:"best_candidate,omitempty"`
	Score         *float64          `json:"score,omitempty"`
	Matched       bool              `json:"matched"`
}

// MatchFace scans refs linearly and returns the decision for probe plus every
// score computed. References whose dimension differs from the probe are
// skipped.
func MatchFace(policy Policy, probe ProbeFace, refs []domain.ReferenceEntry) (MatchResult, []CandidateScore) {
	result := MatchResult{
		Face:      probe.Index,
		Region:    probe.Region,
		StudentID: domain.UnknownStudent,
		Name:      domain.UnknownStudent,
	}

	if probe.Embedding == nil {
		return result, nil
	}

	scores := make([]CandidateScore, 0, len(refs))
	best := policy.worst()
	bestIdx := -1

	for i, ref := range refs {
		score, err := policy.Score(probe.Embedding, ref.Embedding)
		if err != nil {
			continue
		}

		scores = append(scores, CandidateScore{
			Face:      probe.Index,
			StudentID: ref.StudentID,
			Candidate: ref.Name,
			Score:     score,
		})

		if policy.better(score, best) {
			best = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return result, scores
	}

	result.BestCandidate = refs[bestIdx].Name
	result.Score = &best

	if policy.Accepts(best) {
		result.StudentID = refs[bestIdx].StudentID
		result.Name = refs[bestIdx].Name
		result.Matched = true
	}

	return result, scores
}

// MatchFaces runs MatchFace for every probe in order. A failed probe never
// affects the others.
func MatchFaces(policy Policy, probes []ProbeFace, refs []domain.ReferenceEntry) ([]MatchResult, []CandidateScore) {
	results := make([]MatchResult, 0, len(probes))
	var scores []CandidateScore

	for _, probe := range probes {
		result, faceScores := MatchFace(policy, probe, refs)
		results = append(results, result)
		scores = append(scores, faceScores...)
	}

	return results, scores
}

package recognition

import (
	"sort"
	"sync"
)

// Presence accumulates the students seen across a batch of images. A student
// is present once any probe is accepted against their stored embedding, and
// is never removed afterwards. Safe for concurrent use.
type Presence struct {
	policy Policy

	mu      sync.Mutex
	present map[string]struct{}
}

func NewPresence(policy Policy) *Presence {
	return &Presence{
		policy:  policy,
		present: make(map[string]struct{}),
	}
}

// Observe compares every probe against every known embedding and marks the
// accepted students present. It returns the number of newly added students.
// Probes with a mismatched dimension are ignored.
func (p *Presence) Observe(probes [][]float64, known map[string][]float64) int {
	var hits []string

	for studentID, embedding := range known {
		for _, probe := range probes {
			score, err := p.policy.Score(probe, embedding)
			if err != nil {
				continue
			}
			if p.policy.Accepts(score) {
				hits = append(hits, studentID)
				break
			}
		}
	}

	if len(hits) == 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for _, id := range hits {
		if _, ok := p.present[id]; ok {
			continue
		}
		p.present[id] = struct{}{}
		added++
	}

	return added
}

// IDs returns the present student ids sorted ascending.
func (p *Presence) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.present))
	for id := range p.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

func (p *Presence) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.present)
}

package ranking

import "sort"

// DefaultLambda balances relevance against redundancy in MMR selection.
const DefaultLambda = 0.6

// DiversityStats describes the variety of a selection.
type DiversityStats struct {
	UniqueDomains   int `json:"unique_domains"`
	UniqueDecisions int `json:"unique_decisions"`
}

// SelectMMR performs Maximal Marginal Relevance selection: seed with the
// top-scoring candidate, then greedily pick the candidate maximizing
// λ×score − (1−λ)×max(similarity to already selected) until k are chosen or
// the pool is exhausted. Selected candidates without a usable embedding
// contribute 0 to the similarity penalty.
func SelectMMR(candidates []Candidate, lambda float64, k int) ([]Candidate, DiversityStats) {
	if len(candidates) == 0 {
		return nil, DiversityStats{}
	}

	remaining := make([]Candidate, len(candidates))
	copy(remaining, candidates)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Score > remaining[j].Score
	})

	domains := make(map[string]struct{})
	decisions := make(map[string]struct{})

	selected := make([]Candidate, 0, k)
	first := remaining[0]
	remaining = remaining[1:]
	selected = append(selected, first)
	domains[first.Metadata.Domain] = struct{}{}
	decisions[first.Metadata.Decision] = struct{}{}

	for len(remaining) > 0 && len(selected) < k {
		bestIdx := -1
		bestScore := -1.0
		for i, c := range remaining {
			penalty := 0.0
			if len(c.Embedding) > 0 {
				maxSim := 0.0
				for _, s := range selected {
					if sim := CosineSimilarity(c.Embedding, s.Embedding); sim > maxSim {
						maxSim = sim
					}
				}
				penalty = (1.0 - lambda) * maxSim
			}
			if mmr := lambda*c.Score - penalty; mmr > bestScore {
				bestScore = mmr
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		chosen := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		selected = append(selected, chosen)
		domains[chosen.Metadata.Domain] = struct{}{}
		decisions[chosen.Metadata.Decision] = struct{}{}
	}

	return selected, DiversityStats{
		UniqueDomains:   len(domains),
		UniqueDecisions: len(decisions),
	}
}

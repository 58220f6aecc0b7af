package index

import (
	"math"

	"github.com/RSinthu/QuizGenerator/internal/embeddings"
)

// QueryMMR selects k hits by maximal marginal relevance among the fetchK
// entries most similar to vector. lambda weighs relevance against novelty:
// 1 is plain similarity ranking, 0 only rewards distance from what is
// already selected. Hit scores are the plain query similarities.
func (idx *Index) QueryMMR(vector embeddings.Vector, k, fetchK int, lambda float64) ([]Hit, error) {
	if err := idx.checkQuery(vector); err != nil {
		return nil, err
	}
	if k <= 0 || len(idx.entries) == 0 {
		return []Hit{}, nil
	}
	if fetchK < k {
		fetchK = k
	}
	if fetchK > len(idx.entries) {
		fetchK = len(idx.entries)
	}
	if k > fetchK {
		k = fetchK
	}
	lambda = math.Max(0, math.Min(1, lambda))

	candidates := idx.rank(vector)[:fetchK]
	selected := make([]scored, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		best, bestScore := -1, math.Inf(-1)
		for i, c := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for j, s := range selected {
				sim := embeddings.Dot(idx.entries[c.pos].Vector, idx.entries[s.pos].Vector)
				if j == 0 || sim > redundancy {
					redundancy = sim
				}
			}
			mmr := lambda*c.score - (1-lambda)*redundancy
			if mmr > bestScore {
				best, bestScore = i, mmr
			}
		}
		used[best] = true
		selected = append(selected, candidates[best])
	}

	hits := make([]Hit, len(selected))
	for i, s := range selected {
		hits[i] = Hit{Chunk: idx.entries[s.pos].Chunk, Score: s.score}
	}
	return hits, nil
}

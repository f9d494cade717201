package usecase

import (
	"math"
	"sort"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// scoreEpsilon bounds float comparison during candidate ordering; fused
// scores are sums of small reciprocals and must never be compared with ==.
const scoreEpsilon = 1e-12

// FuseRankings merges a vector and a lexical ranking with reciprocal rank
// fusion: each candidate earns 1/(k+rank) per list it appears in, ranks
// being 1-based. Either list may be empty, in which case fusion reduces to
// the surviving ranking.
func FuseRankings(vector, lexical []domain.ScoredChunk, rrfK int) []domain.Candidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*domain.Candidate, len(vector)+len(lexical))
	order := make([]string, 0, len(vector)+len(lexical))

	get := func(id string) *domain.Candidate {
		if c, ok := acc[id]; ok {
			return c
		}
		c := &domain.Candidate{ChunkID: id}
		acc[id] = c
		order = append(order, id)
		return c
	}

	for i, sc := range vector {
		c := get(sc.ChunkID)
		c.VectorRank = i + 1
		c.VectorScore = sc.Score
		c.FusedScore += 1.0 / float64(rrfK+i+1)
	}
	for i, sc := range lexical {
		c := get(sc.ChunkID)
		c.LexicalRank = i + 1
		c.LexicalScore = sc.Score
		c.FusedScore += 1.0 / float64(rrfK+i+1)
	}

	out := make([]domain.Candidate, 0, len(order))
	for _, id := range order {
		c := acc[id]
		c.FinalScore = c.FusedScore
		out = append(out, *c)
	}
	sortCandidates(out, func(c *domain.Candidate) float64 { return c.FusedScore })
	return out
}

// sortCandidates orders candidates by descending score with the shared
// tie-break chain: presence in both source lists wins, then the lower
// rank sum, then original insertion order (the sort is stable).
func sortCandidates(candidates []domain.Candidate, score func(*domain.Candidate) float64) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := score(&candidates[i]), score(&candidates[j])
		if math.Abs(si-sj) > scoreEpsilon {
			return si > sj
		}
		bi, bj := candidates[i].InBothLists(), candidates[j].InBothLists()
		if bi != bj {
			return bi
		}
		ri, rj := candidates[i].RankSum(), candidates[j].RankSum()
		if ri != rj {
			return ri < rj
		}
		return false
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
}

func trimCandidates(candidates []domain.Candidate, limit int) []domain.Candidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}

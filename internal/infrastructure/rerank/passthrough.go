package rerank

import (
	"context"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Passthrough keeps the incoming candidate order and scores. Deployed when
// no cross-encoder endpoint is configured.
type Passthrough struct{}

func NewPassthrough() *Passthrough { return &Passthrough{} }

func (Passthrough) Rerank(_ context.Context, _ string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	out := make([]domain.RerankResult, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RerankResult{ChunkID: c.ChunkID, Score: c.Score}
	}
	return out, nil
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
)

// Stage names reported in RetrievalResult.DegradedStages.
const (
	StageVector   = "vector"
	StageLexical  = "lexical"
	StageReranker = "reranker"
)

// RetrieverConfig carries the retrieval tunables. Zero values fall back to
// the defaults the pipeline was calibrated with.
type RetrieverConfig struct {
	BaseTopK            int
	TopKVector          int
	TopKLexical         int
	TopKFused           int
	TopKRerank          int
	TopKCeiling         int
	RRFK                int
	ConfidenceThreshold float64
	EmbedTimeout        time.Duration
	RerankTimeout       time.Duration
}

func (c RetrieverConfig) normalize() RetrieverConfig {
	if c.BaseTopK <= 0 {
		c.BaseTopK = 5
	}
	if c.TopKVector <= 0 {
		c.TopKVector = 50
	}
	if c.TopKLexical <= 0 {
		c.TopKLexical = 50
	}
	if c.TopKFused <= 0 {
		c.TopKFused = 25
	}
	if c.TopKRerank <= 0 {
		c.TopKRerank = 10
	}
	if c.TopKCeiling <= 0 {
		c.TopKCeiling = 10
	}
	if c.RRFK <= 0 {
		c.RRFK = 60
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 5 * time.Second
	}
	if c.RerankTimeout <= 0 {
		c.RerankTimeout = 10 * time.Second
	}
	return c
}

// RetrieveUseCase orchestrates the hybrid pipeline: expand, search both
// indexes concurrently, fuse, boost, optionally rerank, assemble passages.
// Every stage except input validation degrades instead of failing the
// whole request.
type RetrieveUseCase struct {
	cfg       RetrieverConfig
	tokenizer *Tokenizer
	expander  *Expander
	booster   *Booster
	embedder  ports.Embedder
	vector    ports.VectorIndex
	lexical   ports.LexicalIndex
	reranker  ports.Reranker
	resolver  ports.ChunkResolver
}

func NewRetrieveUseCase(
	cfg RetrieverConfig,
	tokenizer *Tokenizer,
	expander *Expander,
	booster *Booster,
	embedder ports.Embedder,
	vector ports.VectorIndex,
	lexical ports.LexicalIndex,
	reranker ports.Reranker,
	resolver ports.ChunkResolver,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		cfg:       cfg.normalize(),
		tokenizer: tokenizer,
		expander:  expander,
		booster:   booster,
		embedder:  embedder,
		vector:    vector,
		lexical:   lexical,
		reranker:  reranker,
		resolver:  resolver,
	}
}

type stageOutcome struct {
	results []domain.ScoredChunk
	err     error
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query string, baseTopK int) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query"))
	}
	if baseTopK <= 0 {
		baseTopK = uc.cfg.BaseTopK
	}

	expanded := uc.expander.Expand(query)
	terms := uc.tokenizer.Tokenize(expanded)
	topK := uc.adaptTopK(baseTopK, terms)

	vectorCh := make(chan stageOutcome, 1)
	lexicalCh := make(chan stageOutcome, 1)

	go func() {
		vectorCh <- uc.searchVector(ctx, expanded)
	}()
	go func() {
		results := uc.lexical.Search(terms, uc.cfg.TopKLexical)
		lexicalCh <- stageOutcome{results: results}
	}()

	vectorOut := <-vectorCh
	lexicalOut := <-lexicalCh

	var degraded []string
	if vectorOut.err != nil {
		degraded = append(degraded, StageVector)
	}
	if uc.lexical.Len() == 0 {
		degraded = append(degraded, StageLexical)
	}

	if len(vectorOut.results) == 0 && len(lexicalOut.results) == 0 {
		if vectorOut.err != nil && uc.lexical.Len() == 0 {
			return nil, domain.WrapError(domain.ErrStageUnavailable, "retrieve", vectorOut.err)
		}
		return &domain.RetrievalResult{
			Query:          query,
			LowConfidence:  true,
			DegradedStages: degraded,
		}, nil
	}

	candidates := FuseRankings(dedupeScored(vectorOut.results), dedupeScored(lexicalOut.results), uc.cfg.RRFK)
	candidates = trimCandidates(candidates, uc.cfg.TopKFused)

	intent := uc.booster.DetectIntent(expanded)
	candidates = uc.booster.Apply(intent, candidates, uc.resolver)

	candidates, rerankDegraded := uc.rerank(ctx, expanded, candidates)
	if rerankDegraded {
		degraded = append(degraded, StageReranker)
	}

	result := uc.assemble(query, candidates, topK)
	result.DegradedStages = degraded
	return result, nil
}

// adaptTopK widens the passage budget for queries with many distinct
// terms: one extra passage per three terms past the sixth, never past the
// ceiling. Monotonic in the distinct-term count.
func (uc *RetrieveUseCase) adaptTopK(base int, terms []string) int {
	distinct := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		distinct[t] = struct{}{}
	}

	k := base
	if extra := len(distinct) - 6; extra > 0 {
		k += (extra + 2) / 3
	}
	if k > uc.cfg.TopKCeiling {
		k = uc.cfg.TopKCeiling
	}
	if k < 1 {
		k = 1
	}
	return k
}

func (uc *RetrieveUseCase) searchVector(ctx context.Context, query string) stageOutcome {
	embedCtx, cancel := context.WithTimeout(ctx, uc.cfg.EmbedTimeout)
	defer cancel()

	vec, err := uc.embedder.EmbedQuery(embedCtx, query)
	if err != nil {
		return stageOutcome{err: domain.WrapError(domain.ErrStageUnavailable, "embed query", err)}
	}

	results, err := uc.vector.Search(ctx, vec, uc.cfg.TopKVector)
	if err != nil {
		return stageOutcome{err: domain.WrapError(domain.ErrStageUnavailable, "vector search", err)}
	}
	return stageOutcome{results: results}
}

// rerank jointly scores the candidate head against the query. Any failure
// or deadline leaves the incoming order untouched.
func (uc *RetrieveUseCase) rerank(ctx context.Context, query string, candidates []domain.Candidate) ([]domain.Candidate, bool) {
	if uc.reranker == nil || len(candidates) == 0 {
		return candidates, false
	}

	topN := uc.cfg.TopKRerank
	if topN > len(candidates) {
		topN = len(candidates)
	}

	input := make([]domain.RerankCandidate, 0, topN)
	for _, c := range candidates[:topN] {
		chunk, ok := uc.resolver.Resolve(c.ChunkID)
		if !ok {
			continue
		}
		input = append(input, domain.RerankCandidate{
			ChunkID: c.ChunkID,
			Content: chunk.Content,
			Score:   c.FinalScore,
		})
	}
	if len(input) == 0 {
		return candidates, false
	}

	rerankCtx, cancel := context.WithTimeout(ctx, uc.cfg.RerankTimeout)
	defer cancel()

	results, err := uc.reranker.Rerank(rerankCtx, query, input)
	if err != nil {
		return candidates, true
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ChunkID] = r.Score
	}

	head := make([]domain.Candidate, topN)
	copy(head, candidates[:topN])
	for i := range head {
		if score, ok := scores[head[i].ChunkID]; ok {
			head[i].RerankScore = score
			head[i].FinalScore = score
		}
	}
	sortCandidates(head, func(c *domain.Candidate) float64 { return c.FinalScore })

	out := make([]domain.Candidate, 0, len(candidates))
	out = append(out, head...)
	out = append(out, candidates[topN:]...)
	return out, false
}

func (uc *RetrieveUseCase) assemble(query string, candidates []domain.Candidate, topK int) *domain.RetrievalResult {
	result := &domain.RetrievalResult{Query: query}

	seen := make(map[string]struct{}, topK)
	for _, c := range candidates {
		if len(result.Passages) >= topK {
			break
		}
		if _, dup := seen[c.ChunkID]; dup {
			continue
		}
		seen[c.ChunkID] = struct{}{}

		chunk, ok := uc.resolver.Resolve(c.ChunkID)
		if !ok {
			continue
		}
		rank := len(result.Passages) + 1
		result.Passages = append(result.Passages, domain.Passage{
			ChunkID:       chunk.ID,
			Title:         chunk.Title,
			Content:       chunk.Content,
			URL:           chunk.URL,
			SourceSection: chunk.SourceSection,
			Category:      chunk.Category,
			Tags:          chunk.Tags,
			HasCode:       chunk.HasCode,
			Score:         c.FinalScore,
			Rank:          rank,
		})
		result.Sources = append(result.Sources, domain.Source{
			Title:         chunk.Title,
			URL:           chunk.URL,
			SourceSection: chunk.SourceSection,
			Score:         c.FinalScore,
			HasCode:       chunk.HasCode,
		})
	}

	if len(result.Passages) > 0 {
		result.BestScore = result.Passages[0].Score
		for _, p := range result.Passages[1:] {
			if p.Score > result.BestScore {
				result.BestScore = p.Score
			}
		}
	}
	result.LowConfidence = len(result.Passages) == 0 || result.BestScore < uc.cfg.ConfidenceThreshold
	return result
}

// dedupeScored drops repeated chunk ids, keeping the first (best-ranked)
// occurrence so downstream ranks stay 1-based and gapless.
func dedupeScored(in []domain.ScoredChunk) []domain.ScoredChunk {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, sc := range in {
		if _, dup := seen[sc.ChunkID]; dup {
			continue
		}
		seen[sc.ChunkID] = struct{}{}
		out = append(out, sc)
	}
	return out
}

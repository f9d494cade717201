package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	delay  time.Duration
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeVectorIndex struct {
	results []domain.ScoredChunk
	err     error
}

func (f *fakeVectorIndex) Search(ctx context.Context, queryVector []float32, n int) ([]domain.ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.results) {
		return f.results[:n], nil
	}
	return f.results, nil
}

type fakeLexicalIndex struct {
	results []domain.ScoredChunk
	size    int
}

func (f *fakeLexicalIndex) Search(terms []string, n int) []domain.ScoredChunk {
	if n < len(f.results) {
		return f.results[:n]
	}
	return f.results
}

func (f *fakeLexicalIndex) Len() int { return f.size }

type fakeReranker struct {
	results []domain.RerankResult
	err     error
	calls   int
	got     []domain.RerankCandidate
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	f.calls++
	f.got = candidates
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func testCorpus() mapResolver {
	return mapResolver{
		"c1": {ID: "c1", Title: "ACL basics", Content: "acl matching", URL: "https://docs/acl", SourceSection: "7.1", Category: domain.CategoryACL},
		"c2": {ID: "c2", Title: "Backend setup", Content: "use_backend rules", URL: "https://docs/backend", Category: domain.CategoryBackend},
		"c3": {ID: "c3", Title: "SSL offloading", Content: "bind ssl crt", URL: "https://docs/ssl", Category: domain.CategorySSL},
		"c4": {ID: "c4", Title: "Timeouts", Content: "timeout connect", URL: "https://docs/timeout", Category: domain.CategoryTimeout},
	}
}

func newTestRetriever(embedder *fakeEmbedder, vector *fakeVectorIndex, lexical *fakeLexicalIndex, reranker *fakeReranker) *RetrieveUseCase {
	tok := NewTokenizer(DefaultStopwords())
	uc := NewRetrieveUseCase(
		RetrieverConfig{EmbedTimeout: 200 * time.Millisecond, RerankTimeout: 200 * time.Millisecond},
		tok,
		NewExpander(testVocabulary(), tok),
		NewBooster(BoostParams{}, testVocabulary(), tok),
		embedder,
		vector,
		lexical,
		nil,
		testCorpus(),
	)
	if reranker != nil {
		uc.reranker = reranker
	}
	return uc
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	uc := newTestRetriever(&fakeEmbedder{}, &fakeVectorIndex{}, &fakeLexicalIndex{}, nil)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := uc.Retrieve(context.Background(), q, 5)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("query %q: expected invalid input error, got %v", q, err)
		}
	}
}

func TestRetrieveHybridHappyPath(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	vector := &fakeVectorIndex{results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 0.9},
		{ChunkID: "c2", Score: 0.8},
	}}
	lexical := &fakeLexicalIndex{size: 4, results: []domain.ScoredChunk{
		{ChunkID: "c2", Score: 6.0},
		{ChunkID: "c3", Score: 4.0},
	}}

	uc := newTestRetriever(embedder, vector, lexical, nil)
	result, err := uc.Retrieve(context.Background(), "backend routing", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Passages) != 3 {
		t.Fatalf("expected 3 passages, got %d", len(result.Passages))
	}
	if result.Passages[0].ChunkID != "c2" {
		t.Fatalf("dual-list candidate should rank first, got %s", result.Passages[0].ChunkID)
	}
	if len(result.DegradedStages) != 0 {
		t.Fatalf("no stage should degrade, got %v", result.DegradedStages)
	}
	if len(result.Sources) != len(result.Passages) {
		t.Fatalf("sources and passages out of sync: %d vs %d", len(result.Sources), len(result.Passages))
	}
	for i, p := range result.Passages {
		if p.Rank != i+1 {
			t.Fatalf("passage %d has rank %d", i, p.Rank)
		}
	}
}

func TestRetrieveDegradesWhenEmbeddingFails(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("embedding service down")}
	lexical := &fakeLexicalIndex{size: 4, results: []domain.ScoredChunk{
		{ChunkID: "c4", Score: 5.0},
		{ChunkID: "c1", Score: 3.0},
	}}

	uc := newTestRetriever(embedder, &fakeVectorIndex{}, lexical, nil)
	result, err := uc.Retrieve(context.Background(), "timeout connect", 5)
	if err != nil {
		t.Fatalf("lexical fallback must not error: %v", err)
	}

	if len(result.Passages) != 2 {
		t.Fatalf("expected lexical-only passages, got %d", len(result.Passages))
	}
	if len(result.DegradedStages) != 1 || result.DegradedStages[0] != StageVector {
		t.Fatalf("expected degraded vector stage, got %v", result.DegradedStages)
	}
}

func TestRetrieveDegradesWhenEmbeddingTimesOut(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}, delay: time.Second}
	lexical := &fakeLexicalIndex{size: 4, results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 2.0},
	}}

	uc := newTestRetriever(embedder, &fakeVectorIndex{}, lexical, nil)
	result, err := uc.Retrieve(context.Background(), "acl matching", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.DegradedStages) != 1 || result.DegradedStages[0] != StageVector {
		t.Fatalf("expected vector degradation on timeout, got %v", result.DegradedStages)
	}
}

func TestRetrieveVectorOnlyWhenIndexEmpty(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.5}}
	vector := &fakeVectorIndex{results: []domain.ScoredChunk{
		{ChunkID: "c3", Score: 0.7},
	}}
	lexical := &fakeLexicalIndex{size: 0}

	uc := newTestRetriever(embedder, vector, lexical, nil)
	result, err := uc.Retrieve(context.Background(), "ssl certificates", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Passages) != 1 || result.Passages[0].ChunkID != "c3" {
		t.Fatalf("expected vector-only passage c3, got %+v", result.Passages)
	}
	if len(result.DegradedStages) != 1 || result.DegradedStages[0] != StageLexical {
		t.Fatalf("expected degraded lexical stage, got %v", result.DegradedStages)
	}
}

func TestRetrieveErrsWhenBothStagesUnavailable(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("down")}
	lexical := &fakeLexicalIndex{size: 0}

	uc := newTestRetriever(embedder, &fakeVectorIndex{}, lexical, nil)
	_, err := uc.Retrieve(context.Background(), "anything useful", 5)
	if !domain.IsKind(err, domain.ErrStageUnavailable) {
		t.Fatalf("expected stage unavailable error, got %v", err)
	}
}

func TestRetrieveEmptyResultsLowConfidence(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.5}}
	lexical := &fakeLexicalIndex{size: 4}

	uc := newTestRetriever(embedder, &fakeVectorIndex{}, lexical, nil)
	result, err := uc.Retrieve(context.Background(), "nothing matches this", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.LowConfidence {
		t.Fatal("empty result set must flag low confidence")
	}
	if len(result.Passages) != 0 {
		t.Fatalf("expected no passages, got %d", len(result.Passages))
	}
}

func TestRetrieveRerankerErrorPassesThrough(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	vector := &fakeVectorIndex{results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 0.9},
		{ChunkID: "c2", Score: 0.8},
	}}
	lexical := &fakeLexicalIndex{size: 4, results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 3.0},
	}}
	reranker := &fakeReranker{err: errors.New("cross-encoder unavailable")}

	uc := newTestRetriever(embedder, vector, lexical, reranker)
	result, err := uc.Retrieve(context.Background(), "acl basics", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reranker.calls != 1 {
		t.Fatalf("reranker should be attempted once, got %d", reranker.calls)
	}
	if result.Passages[0].ChunkID != "c1" {
		t.Fatalf("pass-through must keep fused order, got %s first", result.Passages[0].ChunkID)
	}
	found := false
	for _, stage := range result.DegradedStages {
		if stage == StageReranker {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reranker in degraded stages, got %v", result.DegradedStages)
	}
}

func TestRetrieveRerankerReordersHead(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	vector := &fakeVectorIndex{results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 0.9},
		{ChunkID: "c2", Score: 0.8},
	}}
	lexical := &fakeLexicalIndex{size: 4, results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 3.0},
		{ChunkID: "c3", Score: 2.0},
	}}
	reranker := &fakeReranker{results: []domain.RerankResult{
		{ChunkID: "c3", Score: 0.95},
		{ChunkID: "c1", Score: 0.40},
		{ChunkID: "c2", Score: 0.10},
	}}

	uc := newTestRetriever(embedder, vector, lexical, reranker)
	result, err := uc.Retrieve(context.Background(), "ssl termination details", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Passages[0].ChunkID != "c3" {
		t.Fatalf("reranker top pick should lead, got %s", result.Passages[0].ChunkID)
	}
	if len(result.DegradedStages) != 0 {
		t.Fatalf("nothing should degrade, got %v", result.DegradedStages)
	}
}

func TestRetrieveDeduplicatesChunks(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	vector := &fakeVectorIndex{results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 0.9},
		{ChunkID: "c1", Score: 0.9},
		{ChunkID: "c2", Score: 0.8},
	}}
	lexical := &fakeLexicalIndex{size: 4, results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 3.0},
	}}

	uc := newTestRetriever(embedder, vector, lexical, nil)
	result, err := uc.Retrieve(context.Background(), "backend weights", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[string]int{}
	for _, p := range result.Passages {
		seen[p.ChunkID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Fatalf("chunk %s appears %d times", id, n)
		}
	}
}

func TestAdaptTopKMonotonicWithCeiling(t *testing.T) {
	uc := newTestRetriever(&fakeEmbedder{}, &fakeVectorIndex{}, &fakeLexicalIndex{}, nil)

	terms := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta",
		"eta", "theta", "iota", "kappa", "lambda", "muu", "nuu", "xii",
		"omicron", "pii", "rho", "sigma", "tau", "upsilon"}

	prev := 0
	for n := 0; n <= len(terms); n++ {
		k := uc.adaptTopK(5, terms[:n])
		if k < prev {
			t.Fatalf("top-k decreased from %d to %d at %d terms", prev, k, n)
		}
		if k > 10 {
			t.Fatalf("top-k %d exceeds ceiling at %d terms", k, n)
		}
		prev = k
	}
	if k := uc.adaptTopK(5, terms); k != 10 {
		t.Fatalf("expected ceiling 10 for %d terms, got %d", len(terms), k)
	}
	if k := uc.adaptTopK(5, terms[:3]); k != 5 {
		t.Fatalf("short query must keep base, got %d", k)
	}
}

func TestRetrieveLowConfidenceThreshold(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	vector := &fakeVectorIndex{results: []domain.ScoredChunk{
		{ChunkID: "c1", Score: 0.9},
	}}
	lexical := &fakeLexicalIndex{size: 4}

	tok := NewTokenizer(DefaultStopwords())
	uc := NewRetrieveUseCase(
		RetrieverConfig{ConfidenceThreshold: 10.0},
		tok,
		NewExpander(testVocabulary(), tok),
		NewBooster(BoostParams{}, testVocabulary(), tok),
		embedder,
		vector,
		lexical,
		nil,
		testCorpus(),
	)

	result, err := uc.Retrieve(context.Background(), "acl example", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.LowConfidence {
		t.Fatalf("best score %.4f below threshold must flag low confidence", result.BestScore)
	}
}

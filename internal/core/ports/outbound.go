package ports

import (
	"context"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Embedder turns text into dense vectors via the external embedding service.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs nearest-neighbor search over chunk embeddings.
// Scores are cosine similarities, higher is better.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, n int) ([]domain.ScoredChunk, error)
}

// VectorIndexWriter is the rebuild-side surface of the vector index.
type VectorIndexWriter interface {
	UpsertChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// LexicalIndex scores tokenized queries against the sparse index. An empty
// or unbuilt index returns no results rather than erroring: retrieval
// degrades, it does not crash.
type LexicalIndex interface {
	Search(terms []string, n int) []domain.ScoredChunk
	Len() int
}

// Reranker jointly scores (query, passage) pairs. Implementations must be
// safe to call unconditionally: when reranking is disabled a pass-through
// variant preserves the incoming order and scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error)
}

// ChunkStore is the corpus of record, loaded once at startup and re-read
// during index rebuilds.
type ChunkStore interface {
	EnsureSchema(ctx context.Context) error
	ListAll(ctx context.Context) ([]domain.Chunk, error)
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error
	Count(ctx context.Context) (int, error)
}

// MessageQueue publishes/consumes index rebuild events.
type MessageQueue interface {
	PublishRebuildRequested(ctx context.Context, reason string) error
	SubscribeRebuildRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ChunkResolver maps chunk ids back to full chunks when assembling passages.
type ChunkResolver interface {
	Resolve(id string) (domain.Chunk, bool)
}

// CorpusPublisher atomically swaps in a freshly built corpus snapshot.
// Readers keep the old snapshot until the swap completes.
type CorpusPublisher interface {
	PublishCorpus(chunks []domain.Chunk)
}

// ResultCache memoizes retrieval results for identical queries.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.RetrievalResult, bool, error)
	Set(ctx context.Context, key string, result *domain.RetrievalResult) error
}

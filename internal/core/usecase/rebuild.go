package usecase

import (
	"context"
	"fmt"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
)

const defaultEmbedBatchSize = 32

// RebuildIndexUseCase re-reads the corpus of record, re-embeds every chunk
// and republishes both indexes. The previous snapshot keeps serving reads
// until the final publish.
type RebuildIndexUseCase struct {
	store     ports.ChunkStore
	embedder  ports.Embedder
	writer    ports.VectorIndexWriter
	publisher ports.CorpusPublisher
	batchSize int
}

func NewRebuildIndexUseCase(
	store ports.ChunkStore,
	embedder ports.Embedder,
	writer ports.VectorIndexWriter,
	publisher ports.CorpusPublisher,
	batchSize int,
) *RebuildIndexUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &RebuildIndexUseCase{
		store:     store,
		embedder:  embedder,
		writer:    writer,
		publisher: publisher,
		batchSize: batchSize,
	}
}

// Rebuild returns the number of chunks indexed.
func (uc *RebuildIndexUseCase) Rebuild(ctx context.Context) (int, error) {
	chunks, err := uc.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrIndexNotBuilt, "rebuild", fmt.Errorf("corpus is empty"))
	}

	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.EmbeddingInput()
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embed batch at %d: got %d vectors for %d chunks", start, len(vectors), len(batch))
		}

		if err := uc.writer.UpsertChunks(ctx, batch, vectors); err != nil {
			return 0, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
	}

	uc.publisher.PublishCorpus(chunks)
	return len(chunks), nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

type fakeChunkStore struct {
	chunks []domain.Chunk
	err    error
}

func (f *fakeChunkStore) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeChunkStore) ListAll(ctx context.Context) ([]domain.Chunk, error) {
	return f.chunks, f.err
}

func (f *fakeChunkStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeChunkStore) Count(ctx context.Context) (int, error) {
	return len(f.chunks), nil
}

type fakeVectorWriter struct {
	batches [][]domain.Chunk
	err     error
}

func (f *fakeVectorWriter) UpsertChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if f.err != nil {
		return f.err
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	f.batches = append(f.batches, chunks)
	return nil
}

type fakePublisher struct {
	published []domain.Chunk
	calls     int
}

func (f *fakePublisher) PublishCorpus(chunks []domain.Chunk) {
	f.published = chunks
	f.calls++
}

func makeChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:      fmt.Sprintf("chunk-%03d", i),
			Title:   fmt.Sprintf("Section %d", i),
			Content: "timeout connect 5s",
		}
	}
	return chunks
}

func TestRebuildBatchesAndPublishes(t *testing.T) {
	store := &fakeChunkStore{chunks: makeChunks(70)}
	writer := &fakeVectorWriter{}
	publisher := &fakePublisher{}
	uc := NewRebuildIndexUseCase(store, &fakeEmbedder{vector: []float32{0.1}}, writer, publisher, 32)

	n, err := uc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 70 {
		t.Fatalf("expected 70 chunks indexed, got %d", n)
	}
	if len(writer.batches) != 3 {
		t.Fatalf("expected 3 upsert batches, got %d", len(writer.batches))
	}
	if got := len(writer.batches[2]); got != 6 {
		t.Fatalf("expected final batch of 6, got %d", got)
	}
	if publisher.calls != 1 || len(publisher.published) != 70 {
		t.Fatalf("expected one publish of the full corpus, got calls=%d chunks=%d", publisher.calls, len(publisher.published))
	}
}

func TestRebuildEmptyCorpus(t *testing.T) {
	uc := NewRebuildIndexUseCase(&fakeChunkStore{}, &fakeEmbedder{}, &fakeVectorWriter{}, &fakePublisher{}, 0)

	_, err := uc.Rebuild(context.Background())
	if !domain.IsKind(err, domain.ErrIndexNotBuilt) {
		t.Fatalf("expected index-not-built error, got %v", err)
	}
}

func TestRebuildDoesNotPublishOnEmbedFailure(t *testing.T) {
	store := &fakeChunkStore{chunks: makeChunks(5)}
	publisher := &fakePublisher{}
	uc := NewRebuildIndexUseCase(store, &fakeEmbedder{err: errors.New("embedder down")}, &fakeVectorWriter{}, publisher, 32)

	if _, err := uc.Rebuild(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if publisher.calls != 0 {
		t.Fatalf("failed rebuild must not publish, got %d publishes", publisher.calls)
	}
}

func TestRebuildDoesNotPublishOnUpsertFailure(t *testing.T) {
	store := &fakeChunkStore{chunks: makeChunks(5)}
	publisher := &fakePublisher{}
	writer := &fakeVectorWriter{err: errors.New("vector store down")}
	uc := NewRebuildIndexUseCase(store, &fakeEmbedder{vector: []float32{0.1}}, writer, publisher, 32)

	if _, err := uc.Rebuild(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if publisher.calls != 0 {
		t.Fatalf("failed rebuild must not publish, got %d publishes", publisher.calls)
	}
}

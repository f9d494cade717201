package ports

import (
	"context"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Retriever is the inbound surface of the hybrid retrieval pipeline.
// A baseTopK of zero or less asks for the configured default.
type Retriever interface {
	Retrieve(ctx context.Context, query string, baseTopK int) (*domain.RetrievalResult, error)
}

// IndexRebuilder re-embeds the corpus of record and republishes the
// indexes, returning the number of chunks indexed.
type IndexRebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

package lexical

import (
	"sync/atomic"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Holder publishes index snapshots to concurrent readers. Searches served
// from the old snapshot finish against that snapshot; there is no partially
// built state visible.
type Holder struct {
	tokenize Tokenize
	params   Params
	current  atomic.Pointer[Index]
}

func NewHolder(tokenize Tokenize, params Params) *Holder {
	h := &Holder{tokenize: tokenize, params: params}
	h.current.Store(Build(nil, tokenize, params))
	return h
}

// PublishCorpus builds a fresh index from the chunks and swaps it in.
func (h *Holder) PublishCorpus(chunks []domain.Chunk) {
	h.current.Store(Build(chunks, h.tokenize, h.params))
}

func (h *Holder) Search(terms []string, n int) []domain.ScoredChunk {
	return h.current.Load().Search(terms, n)
}

func (h *Holder) Len() int {
	return h.current.Load().Len()
}

package corpus

import (
	"sync/atomic"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Catalog resolves chunk ids against the latest published corpus snapshot.
// Snapshots swap atomically, readers never see a partially loaded corpus.
type Catalog struct {
	current atomic.Pointer[map[string]domain.Chunk]
}

func NewCatalog() *Catalog {
	c := &Catalog{}
	empty := make(map[string]domain.Chunk)
	c.current.Store(&empty)
	return c
}

func (c *Catalog) PublishCorpus(chunks []domain.Chunk) {
	snapshot := make(map[string]domain.Chunk, len(chunks))
	for _, chunk := range chunks {
		snapshot[chunk.ID] = chunk
	}
	c.current.Store(&snapshot)
}

func (c *Catalog) Resolve(id string) (domain.Chunk, bool) {
	chunk, ok := (*c.current.Load())[id]
	return chunk, ok
}

func (c *Catalog) Len() int {
	return len(*c.current.Load())
}

// Publisher fans a corpus snapshot out to every index that serves reads.
type Publisher struct {
	targets []interface{ PublishCorpus([]domain.Chunk) }
}

func NewPublisher(targets ...interface{ PublishCorpus([]domain.Chunk) }) *Publisher {
	return &Publisher{targets: targets}
}

func (p *Publisher) PublishCorpus(chunks []domain.Chunk) {
	for _, t := range p.targets {
		t.PublishCorpus(chunks)
	}
}

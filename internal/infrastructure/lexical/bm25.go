package lexical

import (
	"math"
	"sort"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Params are the BM25 saturation and length-normalization constants.
type Params struct {
	K1 float64
	B  float64
}

func (p Params) normalize() Params {
	if p.K1 <= 0 {
		p.K1 = 1.2
	}
	if p.B <= 0 {
		p.B = 0.75
	}
	return p
}

type posting struct {
	doc  int
	freq int
}

// Index is an immutable BM25 index over a corpus snapshot. Build once,
// search from any goroutine; rebuilds produce a new Index that the Holder
// swaps in atomically.
type Index struct {
	params   Params
	ids      []string
	lengths  []int
	avgLen   float64
	postings map[string][]posting
	idf      map[string]float64
}

// Tokenize turns chunk text into index terms. The same function must be
// used for queries or scores are meaningless.
type Tokenize func(text string) []string

// Build indexes the given chunks over their searchable text. Document
// order fixes the tie-break order at search time.
func Build(chunks []domain.Chunk, tokenize Tokenize, params Params) *Index {
	idx := &Index{
		params:   params.normalize(),
		ids:      make([]string, len(chunks)),
		lengths:  make([]int, len(chunks)),
		postings: make(map[string][]posting),
		idf:      make(map[string]float64),
	}

	totalLen := 0
	for i, chunk := range chunks {
		idx.ids[i] = chunk.ID
		terms := tokenize(chunk.EmbeddingInput())
		idx.lengths[i] = len(terms)
		totalLen += len(terms)

		tf := make(map[string]int, len(terms))
		for _, term := range terms {
			tf[term]++
		}
		for term, freq := range tf {
			idx.postings[term] = append(idx.postings[term], posting{doc: i, freq: freq})
		}
	}

	n := float64(len(chunks))
	if n > 0 {
		idx.avgLen = float64(totalLen) / n
	}
	for term, list := range idx.postings {
		df := float64(len(list))
		idx.idf[term] = math.Log(1 + (n-df+0.5)/(df+0.5))
	}

	return idx
}

// Search scores the query terms against the corpus and returns up to n
// results in descending score order. Documents scoring zero are omitted.
// Ties break on document insertion order, so results are deterministic.
func (idx *Index) Search(terms []string, n int) []domain.ScoredChunk {
	if idx == nil || len(idx.ids) == 0 || len(terms) == 0 || n <= 0 {
		return nil
	}

	// Query-side term frequency saturates repeated terms the same way the
	// document side does.
	qtf := make(map[string]int, len(terms))
	for _, term := range terms {
		qtf[term]++
	}

	scores := make(map[int]float64, 64)
	for term, qfreq := range qtf {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for _, p := range idx.postings[term] {
			tf := float64(p.freq)
			norm := 1 - idx.params.B + idx.params.B*float64(idx.lengths[p.doc])/idx.avgLen
			score := idf * (tf * (idx.params.K1 + 1)) / (tf + idx.params.K1*norm)
			scores[p.doc] += score * float64(qfreq)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	docs := make([]int, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		si, sj := scores[docs[i]], scores[docs[j]]
		if si != sj {
			return si > sj
		}
		return docs[i] < docs[j]
	})
	if len(docs) > n {
		docs = docs[:n]
	}

	out := make([]domain.ScoredChunk, len(docs))
	for i, doc := range docs {
		out[i] = domain.ScoredChunk{ChunkID: idx.ids[doc], Score: scores[doc]}
	}
	return out
}

// Len reports the number of indexed documents.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.ids)
}

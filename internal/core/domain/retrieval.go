package domain

// ScoredChunk is a single entry of a method-local ranking: the raw output
// of the vector or the lexical index before fusion.
type ScoredChunk struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Candidate is an ephemeral per-query scored reference to a chunk. It is
// created during fusion and discarded once the query completes.
type Candidate struct {
	ChunkID string `json:"chunk_id"`

	// 1-based ranks in the method-local lists; 0 means the method did
	// not return this chunk.
	VectorRank  int `json:"vector_rank,omitempty"`
	LexicalRank int `json:"lexical_rank,omitempty"`

	VectorScore  float64 `json:"vector_score,omitempty"`
	LexicalScore float64 `json:"lexical_score,omitempty"`

	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score"`
	FinalScore  float64 `json:"final_score"`

	Rank int `json:"rank"`
}

// InBothLists reports whether both retrieval methods returned the chunk.
func (c Candidate) InBothLists() bool {
	return c.VectorRank > 0 && c.LexicalRank > 0
}

// RankSum is the combined raw rank across methods; absent methods count as
// rank 0 and are handled by the both-lists tie-break before this one.
func (c Candidate) RankSum() int {
	return c.VectorRank + c.LexicalRank
}

// RerankCandidate is the (id, passage) pair handed to a reranker.
type RerankCandidate struct {
	ChunkID string
	Content string
	Score   float64
}

// RerankResult carries the reranker's joint (query, passage) score back,
// keyed by chunk id.
type RerankResult struct {
	ChunkID string
	Score   float64
}

// Passage is one externally visible retrieval hit.
type Passage struct {
	ChunkID       string   `json:"chunk_id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	URL           string   `json:"url"`
	SourceSection string   `json:"source_section"`
	Category      Category `json:"category"`
	Tags          []string `json:"tags,omitempty"`
	HasCode       bool     `json:"has_code"`
	Score         float64  `json:"score"`
	Rank          int      `json:"rank"`
}

// Source is a deduplicated provenance pointer for citation.
type Source struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	SourceSection string  `json:"source_section"`
	Score         float64 `json:"score"`
	HasCode       bool    `json:"has_code"`
}

// RetrievalResult is the output of one retrieve() call.
type RetrievalResult struct {
	Query    string    `json:"query"`
	Passages []Passage `json:"passages"`
	Sources  []Source  `json:"sources"`

	// BestScore is the top final score, used by the confidence gate and
	// surfaced for observability.
	BestScore float64 `json:"best_score"`

	// LowConfidence signals the caller should prefer a "not found in the
	// documentation" style answer over generation.
	LowConfidence bool `json:"low_confidence"`

	// DegradedStages names pipeline stages that were skipped or failed
	// (e.g. "vector", "reranker"). Empty on a fully healthy run.
	DegradedStages []string `json:"degraded_stages,omitempty"`
}

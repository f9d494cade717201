package domain

// Category is the fixed taxonomy assigned to every chunk during the
// offline enrichment pass.
type Category string

const (
	CategoryBackend       Category = "backend"
	CategoryFrontend      Category = "frontend"
	CategoryACL           Category = "acl"
	CategorySSL           Category = "ssl"
	CategoryTimeout       Category = "timeout"
	CategoryHealthcheck   Category = "healthcheck"
	CategoryStickTable    Category = "stick-table"
	CategoryLogs          Category = "logs"
	CategoryStats         Category = "stats"
	CategoryGeneral       Category = "general"
	CategoryLoadBalancing Category = "loadbalancing"
)

var knownCategories = map[Category]struct{}{
	CategoryBackend:       {},
	CategoryFrontend:      {},
	CategoryACL:           {},
	CategorySSL:           {},
	CategoryTimeout:       {},
	CategoryHealthcheck:   {},
	CategoryStickTable:    {},
	CategoryLogs:          {},
	CategoryStats:         {},
	CategoryGeneral:       {},
	CategoryLoadBalancing: {},
}

// NormalizeCategory maps unknown or empty categories to general so the
// booster never has to special-case missing metadata.
func NormalizeCategory(raw string) Category {
	c := Category(raw)
	if _, ok := knownCategories[c]; ok {
		return c
	}
	return CategoryGeneral
}

// Chunk is an immutable unit of indexed documentation text. Chunks are
// produced once by the offline scraping/enrichment pipeline and are never
// mutated by retrieval.
type Chunk struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	EmbedText     string   `json:"embed_text,omitempty"`
	URL           string   `json:"url"`
	SourceSection string   `json:"source_section"`
	Tags          []string `json:"tags,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Category      Category `json:"category"`
	Synonyms      []string `json:"synonyms,omitempty"`
	HasCode       bool     `json:"has_code"`
}

// EmbeddingInput returns the text sent to the embedding model. Enrichment
// may have prepared a title-prefixed variant; fall back to raw content.
func (c Chunk) EmbeddingInput() string {
	if c.EmbedText != "" {
		return c.EmbedText
	}
	return c.Content
}

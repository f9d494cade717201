package usecase

import (
	"sort"
	"strings"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// Expander rewrites queries with domain vocabulary before retrieval.
// Expansion is additive: the original query text always comes first and
// appended terms follow in deterministic order.
type Expander struct {
	expansions map[string][]string
	tokenizer  *Tokenizer
}

func NewExpander(vocab *domain.Vocabulary, tokenizer *Tokenizer) *Expander {
	expansions := make(map[string][]string, len(vocab.Expansions))
	for trigger, terms := range vocab.Expansions {
		expansions[strings.ToLower(trigger)] = terms
	}
	return &Expander{expansions: expansions, tokenizer: tokenizer}
}

// Expand returns the query with matched expansion terms appended. Triggers
// match on distinct query tokens; multi-word triggers match as substrings
// of the lowercased query. Terms already present in the query and
// duplicates across triggers are skipped.
func (e *Expander) Expand(query string) string {
	if query == "" {
		return query
	}

	lowered := strings.ToLower(query)
	tokens := e.tokenizer.TokenSet(query)

	matched := make([]string, 0, 4)
	for trigger := range e.expansions {
		if strings.Contains(trigger, " ") {
			if strings.Contains(lowered, trigger) {
				matched = append(matched, trigger)
			}
			continue
		}
		if _, ok := tokens[trigger]; ok {
			matched = append(matched, trigger)
		}
	}
	if len(matched) == 0 {
		return query
	}
	sort.Strings(matched)

	seen := make(map[string]struct{}, len(tokens))
	for token := range tokens {
		seen[token] = struct{}{}
	}

	var b strings.Builder
	b.WriteString(query)
	for _, trigger := range matched {
		for _, term := range e.expansions[trigger] {
			key := strings.ToLower(term)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			b.WriteByte(' ')
			b.WriteString(term)
		}
	}
	return b.String()
}

package usecase

import (
	"sort"
	"strings"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
)

// BoostParams tunes metadata boosting. Zero values fall back to the
// defaults used by the documentation pipeline.
type BoostParams struct {
	CategoryFactor float64
	KeywordWeight  float64
	SectionBonus   float64
}

func (p BoostParams) normalize() BoostParams {
	if p.CategoryFactor <= 0 {
		p.CategoryFactor = 1.5
	}
	if p.KeywordWeight <= 0 {
		p.KeywordWeight = 0.3
	}
	if p.SectionBonus <= 0 {
		p.SectionBonus = 0.15
	}
	return p
}

// QueryIntent is what the booster inferred from the query text before
// scoring candidates against chunk metadata.
type QueryIntent struct {
	Tokens       map[string]struct{}
	Categories   map[domain.Category]struct{}
	SectionHints []string
}

// Booster adjusts candidate scores using chunk metadata: category intent,
// keyword and synonym overlap, and section hints. It never removes or adds
// candidates and is deterministic for a given input.
type Booster struct {
	params    BoostParams
	intents   map[string][]domain.Category
	hints     map[string][]string
	tokenizer *Tokenizer
}

func NewBooster(params BoostParams, vocab *domain.Vocabulary, tokenizer *Tokenizer) *Booster {
	intents := make(map[string][]domain.Category, len(vocab.CategoryIntents))
	for trigger, cats := range vocab.CategoryIntents {
		intents[strings.ToLower(trigger)] = cats
	}
	hints := make(map[string][]string, len(vocab.SectionHints))
	for trigger, sections := range vocab.SectionHints {
		hints[strings.ToLower(trigger)] = sections
	}
	return &Booster{
		params:    params.normalize(),
		intents:   intents,
		hints:     hints,
		tokenizer: tokenizer,
	}
}

// DetectIntent extracts the query token set, the categories the query
// seems to target and any documentation sections hinted at.
func (b *Booster) DetectIntent(query string) QueryIntent {
	lowered := strings.ToLower(query)
	intent := QueryIntent{
		Tokens:     b.tokenizer.TokenSet(query),
		Categories: make(map[domain.Category]struct{}),
	}

	match := func(trigger string) bool {
		if strings.Contains(trigger, " ") {
			return strings.Contains(lowered, trigger)
		}
		_, ok := intent.Tokens[trigger]
		return ok
	}

	triggers := make([]string, 0, len(b.intents))
	for trigger := range b.intents {
		triggers = append(triggers, trigger)
	}
	sort.Strings(triggers)
	for _, trigger := range triggers {
		if match(trigger) {
			for _, cat := range b.intents[trigger] {
				intent.Categories[cat] = struct{}{}
			}
		}
	}

	hintTriggers := make([]string, 0, len(b.hints))
	for trigger := range b.hints {
		hintTriggers = append(hintTriggers, trigger)
	}
	sort.Strings(hintTriggers)
	seen := make(map[string]struct{})
	for _, trigger := range hintTriggers {
		if !match(trigger) {
			continue
		}
		for _, section := range b.hints[trigger] {
			if _, ok := seen[section]; ok {
				continue
			}
			seen[section] = struct{}{}
			intent.SectionHints = append(intent.SectionHints, section)
		}
	}

	return intent
}

// Apply boosts candidate final scores in place and re-sorts them. Boosts
// stack in a fixed order: category multiplier, keyword overlap multiplier,
// section hint bonus. Candidates whose chunk cannot be resolved keep their
// incoming score.
func (b *Booster) Apply(intent QueryIntent, candidates []domain.Candidate, resolver ports.ChunkResolver) []domain.Candidate {
	for i := range candidates {
		chunk, ok := resolver.Resolve(candidates[i].ChunkID)
		if !ok {
			continue
		}
		score := candidates[i].FinalScore

		if _, ok := intent.Categories[chunk.Category]; ok {
			score *= b.params.CategoryFactor
		}

		if ratio := metadataOverlap(intent.Tokens, chunk); ratio > 0 {
			score *= 1 + b.params.KeywordWeight*ratio
		}

		if sectionHintMatches(intent.SectionHints, chunk.SourceSection) {
			score += b.params.SectionBonus
		}

		candidates[i].FinalScore = score
	}

	sortCandidates(candidates, func(c *domain.Candidate) float64 { return c.FinalScore })
	return candidates
}

// metadataOverlap is the fraction of query tokens found among the chunk's
// keywords, synonyms and tags.
func metadataOverlap(queryTokens map[string]struct{}, chunk domain.Chunk) float64 {
	if len(queryTokens) == 0 {
		return 0
	}

	meta := make(map[string]struct{}, len(chunk.Keywords)+len(chunk.Synonyms)+len(chunk.Tags))
	add := func(values []string) {
		for _, v := range values {
			meta[strings.ToLower(v)] = struct{}{}
		}
	}
	add(chunk.Keywords)
	add(chunk.Synonyms)
	add(chunk.Tags)
	if len(meta) == 0 {
		return 0
	}

	matches := 0
	for token := range queryTokens {
		if _, ok := meta[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTokens))
}

func sectionHintMatches(hints []string, section string) bool {
	if section == "" {
		return false
	}
	section = strings.ToLower(section)
	for _, hint := range hints {
		if strings.HasPrefix(section, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

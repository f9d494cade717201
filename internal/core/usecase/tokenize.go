package usecase

import (
	"strings"
	"unicode"
)

// minTokenLen drops tokens too short to carry lexical signal; directives
// like "acl", "ssl" or "crt" survive, bare prepositions do not.
const minTokenLen = 3

// Tokenizer implements the shared tokenization rules used by the query
// expander, the metadata booster and the lexical index: lowercase, keep
// '-' and '.' only inside alphanumeric runs, drop stop words and tokens
// shorter than three characters.
type Tokenizer struct {
	stop map[string]struct{}
}

func NewTokenizer(stopwords []string) *Tokenizer {
	stop := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Tokenizer{stop: stop}
}

// Tokenize splits text into normalized terms, preserving duplicates so
// BM25 term frequency stays meaningful.
func (t *Tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(strings.ToLower(text))
	tokens := make([]string, 0, 16)
	var b strings.Builder

	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := strings.Trim(b.String(), "-.")
		b.Reset()
		if len(token) < minTokenLen {
			return
		}
		if _, ok := t.stop[token]; ok {
			return
		}
		tokens = append(tokens, token)
	}

	for i, r := range runes {
		switch {
		case isAlphaNum(r):
			b.WriteRune(r)
		case (r == '-' || r == '.') && b.Len() > 0 && i+1 < len(runes) && isAlphaNum(runes[i+1]):
			// Keep connectors inside runs: "stick-table", "5.2".
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// TokenSet returns the distinct tokens of text.
func (t *Tokenizer) TokenSet(text string) map[string]struct{} {
	tokens := t.Tokenize(text)
	out := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		out[tok] = struct{}{}
	}
	return out
}

func isAlphaNum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// DefaultStopwords covers the bilingual documentation/question corpus.
func DefaultStopwords() []string {
	return []string{
		"le", "la", "les", "des", "une", "et", "ou",
		"aux", "the", "is", "are", "for", "in", "on",
		"at", "to", "of", "with", "by", "from", "this", "that",
		"comment", "how", "do", "does", "can", "what", "quelle", "quel",
	}
}

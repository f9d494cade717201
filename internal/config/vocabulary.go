package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// LoadVocabulary reads the expansion/boosting tables from path, falling
// back to the embedded defaults when path is empty.
func LoadVocabulary(path string) (*domain.Vocabulary, error) {
	raw := defaultVocabulary
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read vocabulary: %w", err)
		}
	}

	var vocab domain.Vocabulary
	if err := yaml.Unmarshal(raw, &vocab); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(vocab.Expansions) == 0 {
		return nil, fmt.Errorf("vocabulary has no expansions")
	}

	for trigger, cats := range vocab.CategoryIntents {
		for i, cat := range cats {
			vocab.CategoryIntents[trigger][i] = domain.NormalizeCategory(string(cat))
		}
	}
	return &vocab, nil
}

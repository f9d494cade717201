package domain

// Vocabulary bundles the static domain lookup tables driving query
// expansion, intent detection and section-hint boosting. Tables are loaded
// once at startup and injected into the components that need them; the
// retrieval pipeline never mutates them.
type Vocabulary struct {
	// Expansions maps a known technical phrase (matched case-insensitively
	// as a substring of the raw query) to the lexical terms it implies.
	Expansions map[string][]string `yaml:"expansions"`

	// CategoryIntents maps an intent keyword to the chunk categories
	// considered relevant when the keyword appears in the query.
	CategoryIntents map[string][]Category `yaml:"category_intents"`

	// SectionHints maps a query topic keyword to the manual section-number
	// prefixes where answers usually live.
	SectionHints map[string][]string `yaml:"section_hints"`

	// Stopwords is the bilingual (EN/FR) list dropped during tokenization.
	Stopwords []string `yaml:"stopwords"`
}

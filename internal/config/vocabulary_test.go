package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

func TestLoadVocabularyEmbeddedDefaults(t *testing.T) {
	vocab, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if len(vocab.Expansions) == 0 {
		t.Fatal("expected embedded expansions")
	}
	if _, ok := vocab.Expansions["acl"]; !ok {
		t.Fatal("embedded vocabulary missing acl expansion")
	}
	if len(vocab.Stopwords) == 0 {
		t.Fatal("expected embedded stopwords")
	}
	cats, ok := vocab.CategoryIntents["ssl"]
	if !ok || len(cats) == 0 || cats[0] != domain.CategorySSL {
		t.Fatalf("unexpected ssl intent: %v", cats)
	}
}

func TestLoadVocabularyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := `
expansions:
  lenteur: [performance, latency]
category_intents:
  lenteur: [timeout, bogus]
section_hints:
  lenteur: ["4."]
stopwords: [le, the]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp vocabulary: %v", err)
	}

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary() error = %v", err)
	}
	if len(vocab.Expansions["lenteur"]) != 2 {
		t.Fatalf("unexpected expansions: %v", vocab.Expansions)
	}
	cats := vocab.CategoryIntents["lenteur"]
	if len(cats) != 2 || cats[0] != domain.CategoryTimeout || cats[1] != domain.CategoryGeneral {
		t.Fatalf("unknown categories must normalize to general, got %v", cats)
	}
}

func TestLoadVocabularyRejectsEmptyTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	if err := os.WriteFile(path, []byte("stopwords: [le]"), 0o644); err != nil {
		t.Fatalf("write temp vocabulary: %v", err)
	}
	if _, err := LoadVocabulary(path); err == nil {
		t.Fatal("expected error for vocabulary without expansions")
	}
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	if _, err := LoadVocabulary("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

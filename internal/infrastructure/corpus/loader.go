package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// maxLineBytes bounds a single JSONL record; documentation chunks are a
// few kilobytes, anything near this limit is a malformed file.
const maxLineBytes = 4 << 20

// LoadJSONL reads one chunk per line from the enrichment pipeline's export.
// Blank lines are skipped; any malformed record aborts the load with its
// line number.
func LoadJSONL(r io.Reader) ([]domain.Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var out []domain.Chunk
	seen := make(map[string]int)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if !utf8.ValidString(raw) {
			return nil, fmt.Errorf("line %d: invalid utf-8", line)
		}

		var chunk domain.Chunk
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if chunk.ID == "" {
			return nil, fmt.Errorf("line %d: missing chunk id", line)
		}
		if strings.TrimSpace(chunk.Content) == "" {
			return nil, fmt.Errorf("line %d: chunk %s has no content", line, chunk.ID)
		}
		if prev, dup := seen[chunk.ID]; dup {
			return nil, fmt.Errorf("line %d: duplicate chunk id %s (first seen line %d)", line, chunk.ID, prev)
		}
		seen[chunk.ID] = line

		chunk.Category = domain.NormalizeCategory(string(chunk.Category))
		out = append(out, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return out, nil
}

func LoadJSONLFile(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	chunks, err := LoadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chunks, nil
}

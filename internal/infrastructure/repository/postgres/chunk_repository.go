package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

// ChunkRepository is the corpus of record. The retrieval path never writes
// here; only the loader and the rebuild worker do.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	embed_text TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	source_section TEXT NOT NULL DEFAULT '',
	tags JSONB NOT NULL DEFAULT '[]'::jsonb,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	category TEXT NOT NULL DEFAULT 'general',
	synonyms JSONB NOT NULL DEFAULT '[]'::jsonb,
	has_code BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_chunks_category ON chunks(category);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO chunks (
	id, title, content, embed_text, url, source_section, tags, keywords, category, synonyms, has_code
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	content = EXCLUDED.content,
	embed_text = EXCLUDED.embed_text,
	url = EXCLUDED.url,
	source_section = EXCLUDED.source_section,
	tags = EXCLUDED.tags,
	keywords = EXCLUDED.keywords,
	category = EXCLUDED.category,
	synonyms = EXCLUDED.synonyms,
	has_code = EXCLUDED.has_code
`
	for _, chunk := range chunks {
		tagsJSON, err := json.Marshal(orEmpty(chunk.Tags))
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", chunk.ID, err)
		}
		keywordsJSON, err := json.Marshal(orEmpty(chunk.Keywords))
		if err != nil {
			return fmt.Errorf("marshal keywords for %s: %w", chunk.ID, err)
		}
		synonymsJSON, err := json.Marshal(orEmpty(chunk.Synonyms))
		if err != nil {
			return fmt.Errorf("marshal synonyms for %s: %w", chunk.ID, err)
		}

		if _, err := tx.ExecContext(ctx, query,
			chunk.ID, chunk.Title, chunk.Content, chunk.EmbedText, chunk.URL, chunk.SourceSection,
			tagsJSON, keywordsJSON, string(chunk.Category), synonymsJSON, chunk.HasCode,
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) ListAll(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, content, embed_text, url, source_section, tags, keywords, category, synonyms, has_code
FROM chunks
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var category string
		var tagsRaw, keywordsRaw, synonymsRaw []byte

		if err := rows.Scan(
			&chunk.ID, &chunk.Title, &chunk.Content, &chunk.EmbedText, &chunk.URL, &chunk.SourceSection,
			&tagsRaw, &keywordsRaw, &category, &synonymsRaw, &chunk.HasCode,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(tagsRaw, &chunk.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", chunk.ID, err)
		}
		if err := json.Unmarshal(keywordsRaw, &chunk.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords for %s: %w", chunk.ID, err)
		}
		if err := json.Unmarshal(synonymsRaw, &chunk.Synonyms); err != nil {
			return nil, fmt.Errorf("unmarshal synonyms for %s: %w", chunk.ID, err)
		}
		chunk.Category = domain.NormalizeCategory(category)
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

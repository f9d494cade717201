package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/laurentvv/haproxy-docs-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ChunkRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChunkRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestListAllDecodesJSONBColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{
		"id", "title", "content", "embed_text", "url", "source_section",
		"tags", "keywords", "category", "synonyms", "has_code",
	}).AddRow(
		"c1", "ACL basics", "acl content", "", "https://docs/acl", "7.1",
		[]byte(`["routing"]`), []byte(`["acl","path_beg"]`), "acl", []byte(`["access list"]`), true,
	).AddRow(
		"c2", "Unknown cat", "text", "embed text", "", "",
		[]byte(`[]`), []byte(`[]`), "not-a-category", []byte(`[]`), false,
	)

	mock.ExpectQuery("SELECT id, title, content, embed_text").WillReturnRows(rows)

	chunks, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Category != domain.CategoryACL || len(chunks[0].Keywords) != 2 {
		t.Fatalf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].Category != domain.CategoryGeneral {
		t.Fatalf("unknown category must normalize to general, got %s", chunks[1].Category)
	}
	if chunks[1].EmbeddingInput() != "embed text" {
		t.Fatalf("embed_text should take precedence, got %q", chunks[1].EmbeddingInput())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertChunksUpsertsInOneTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO chunks").
		WithArgs("c1", "Title", "content", "", "https://docs", "7.1",
			[]byte(`["t"]`), []byte(`["k"]`), "acl", []byte(`[]`), false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InsertChunks(context.Background(), []domain.Chunk{{
		ID:            "c1",
		Title:         "Title",
		Content:       "content",
		URL:           "https://docs",
		SourceSection: "7.1",
		Tags:          []string{"t"},
		Keywords:      []string{"k"},
		Category:      domain.CategoryACL,
	}})
	if err != nil {
		t.Fatalf("InsertChunks() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertChunksRollsBackOnFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO chunks").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.InsertChunks(context.Background(), []domain.Chunk{{ID: "c1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertChunksNoopOnEmptyInput(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	if err := repo.InsertChunks(context.Background(), nil); err != nil {
		t.Fatalf("InsertChunks(nil) error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS chunks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCount(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

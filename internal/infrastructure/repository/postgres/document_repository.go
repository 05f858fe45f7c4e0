package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/finqa/investor-qa/internal/core/domain"
)

// corpusLockKey serializes whole-corpus mutations. The vector store takes
// the same advisory lock before touching chunk rows, so a reset never
// interleaves with an in-flight ingestion.
const corpusLockKey = int64(2026053002)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
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

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	confidential BOOLEAN NOT NULL DEFAULT FALSE,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	chunk_size INTEGER NOT NULL,
	chunk_overlap INTEGER NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	uploaded_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents(uploaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_confidential ON documents(confidential) WHERE confidential;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, storage_path, confidential, size_bytes, chunk_count, chunk_size, chunk_overlap, status, error_message, uploaded_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		doc.ID, doc.Filename, doc.StoragePath, doc.Confidential, doc.SizeBytes, doc.ChunkCount,
		doc.ChunkSize, doc.ChunkOverlap, string(doc.Status), doc.Error, doc.UploadedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `id, filename, storage_path, confidential, size_bytes, chunk_count, chunk_size, chunk_overlap, status, error_message, uploaded_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*domain.Document, error) {
	var doc domain.Document
	var status string
	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.StoragePath, &doc.Confidential, &doc.SizeBytes, &doc.ChunkCount,
		&doc.ChunkSize, &doc.ChunkOverlap, &status, &doc.Error, &doc.UploadedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
ORDER BY uploaded_at DESC, id
`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) ConfidentialIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM documents WHERE confidential`)
	if err != nil {
		return nil, fmt.Errorf("select confidential ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan confidential id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confidential ids: %w", err)
	}
	return ids, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRowHit(res, "update document status", id)
}

func (r *DocumentRepository) SetChunkCount(ctx context.Context, id string, count int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET chunk_count = $2, updated_at = $3
WHERE id = $1
`, id, count, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set chunk count: %w", err)
	}
	return requireRowHit(res, "set chunk count", id)
}

func requireRowHit(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}

// DeleteAll removes every document row and returns the storage paths of the
// removed originals so the caller can clean up the blobs. Chunk rows go with
// the documents via ON DELETE CASCADE.
func (r *DocumentRepository) DeleteAll(ctx context.Context) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Held until commit; keeps reset from racing concurrent ingestion.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, corpusLockKey); err != nil {
		return nil, fmt.Errorf("acquire corpus lock: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `DELETE FROM documents RETURNING storage_path`)
	if err != nil {
		return nil, fmt.Errorf("delete documents: %w", err)
	}

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan storage path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate storage paths: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete tx: %w", err)
	}
	return paths, nil
}

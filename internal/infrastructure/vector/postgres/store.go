package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/infrastructure/vector"
)

// corpusLockKey mirrors the document repository's advisory lock so chunk
// writes and whole-corpus resets serialize against each other.
const corpusLockKey = int64(2026053002)

// minSimilarity drops chunks with effectively no relation to the query
// before ranking.
const defaultMinSimilarity = 0.1

// Store keeps chunk text and embeddings in Postgres and ranks them with
// cosine similarity computed in-process. Corpora here are bounded (hundreds
// of documents), so a full scan per query stays cheap and keeps ordering
// fully deterministic.
type Store struct {
	db            *sql.DB
	minSimilarity float64
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, minSimilarity: defaultMinSimilarity}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053003)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	content TEXT NOT NULL,
	embedding JSONB NOT NULL,
	UNIQUE (document_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertChunks replaces the document's chunk set in one transaction. A
// reader never sees a mix of old and new chunks.
func (s *Store) UpsertChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, corpusLockKey); err != nil {
		return fmt.Errorf("acquire corpus lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}

	for _, chunk := range chunks {
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO chunks (id, document_id, ordinal, content, embedding)
VALUES ($1,$2,$3,$4,$5)
`, chunk.ID, chunk.DocumentID, chunk.Ordinal, chunk.Text, embedding); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

// SimilaritySearch ranks non-confidential chunks by cosine similarity against
// the query vector. Ties break on chunk ordinal, then document id, so the
// same corpus and query always produce the same ordering.
func (s *Store) SimilaritySearch(ctx context.Context, queryVector []float32, k int, excludeDocumentIDs []string) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT c.document_id, d.filename, c.ordinal, c.content, c.embedding
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE NOT d.confidential
`)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	excluded := make(map[string]struct{}, len(excludeDocumentIDs))
	for _, id := range excludeDocumentIDs {
		excluded[id] = struct{}{}
	}

	var scored []domain.RetrievedChunk
	for rows.Next() {
		var chunk domain.RetrievedChunk
		var embeddingRaw []byte
		if err := rows.Scan(&chunk.DocumentID, &chunk.Filename, &chunk.Ordinal, &chunk.Text, &embeddingRaw); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		if _, skip := excluded[chunk.DocumentID]; skip {
			continue
		}

		var embedding []float32
		if err := json.Unmarshal(embeddingRaw, &embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s/%d: %w", chunk.DocumentID, chunk.Ordinal, err)
		}

		score := vector.CosineSimilarity(queryVector, embedding)
		if score < s.minSimilarity {
			continue
		}
		chunk.Score = score
		scored = append(scored, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Ordinal != scored[j].Ordinal {
			return scored[i].Ordinal < scored[j].Ordinal
		}
		return scored[i].DocumentID < scored[j].DocumentID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	if scored == nil {
		scored = []domain.RetrievedChunk{}
	}
	return scored, nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, corpusLockKey); err != nil {
		return fmt.Errorf("acquire corpus lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}
	return nil
}

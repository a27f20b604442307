// Package postgres stores chunks in PostgreSQL with pgvector for similarity and a generated
// tsvector column for lexical matching.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const chunkColumns = `id, document_id, content, chunk_index, start_position, end_position, content_hash, chunk_type, metadata`

const upsertChunkSQL = `
INSERT INTO rag_chunks (id, document_id, content, chunk_index, start_position, end_position, content_hash, chunk_type, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    document_id = EXCLUDED.document_id,
    content = EXCLUDED.content,
    chunk_index = EXCLUDED.chunk_index,
    start_position = EXCLUDED.start_position,
    end_position = EXCLUDED.end_position,
    content_hash = EXCLUDED.content_hash,
    chunk_type = EXCLUDED.chunk_type,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding,
    updated_at = NOW()`

var _ vectorstore.Index = &Index{}

type Index struct {
	db       *pgxpool.Pool
	baseline float64
}

// NewIndex expects a pool whose connections have the pgvector types registered
func NewIndex(db *pgxpool.Pool, baseline float64) *Index {
	return &Index{
		db:       db,
		baseline: baseline,
	}
}

func (i *Index) Name() string { return "postgres" }

func (i *Index) Upsert(ctx context.Context, chunk entity.Chunk) error {
	if _, err := i.db.Exec(ctx, upsertChunkSQL, upsertArgs(chunk)...); err != nil {
		return classify("upsert chunk", err)
	}
	return nil
}

// UpsertBatch writes every chunk in one transaction
func (i *Index) UpsertBatch(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := i.db.Begin(ctx)
	if err != nil {
		return classify("begin batch", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(upsertChunkSQL, upsertArgs(c)...)
	}

	results := tx.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return classify(fmt.Sprintf("upsert chunk %s", c.ID), err)
		}
	}
	if err := results.Close(); err != nil {
		return classify("close batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("commit batch", err)
	}
	return nil
}

func (i *Index) Search(ctx context.Context, _ string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error) {
	args := []any{pgvector.NewVector(queryVector)}
	where := []string{"embedding IS NOT NULL"}
	where, args = appendFilters(where, args, filters)
	args = append(args, topK)

	query := fmt.Sprintf(`
SELECT %s, 2 - (embedding <=> $1) AS score
FROM rag_chunks
WHERE %s
ORDER BY embedding <=> $1 ASC, id
LIMIT $%d`, chunkColumns, strings.Join(where, " AND "), len(args))

	return i.query(ctx, "search", query, args...)
}

func (i *Index) HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error) {
	args := []any{pgvector.NewVector(queryVector), vectorstore.QueryTerms(queryText), i.baseline}
	where := []string{"TRUE"}
	where, args = appendFilters(where, args, filters)
	args = append(args, topK)

	// lexical is the fraction of query terms found in content_tsv
	query := fmt.Sprintf(`
WITH scored AS (
    SELECT %s,
        (SELECT count(*) FROM unnest($2::text[]) AS term
            WHERE content_tsv @@ plainto_tsquery('simple', term))::float8
            / greatest(cardinality($2::text[]), 1) AS lexical,
        CASE WHEN embedding IS NULL THEN NULL ELSE 1 - (embedding <=> $1) END AS similarity
    FROM rag_chunks
    WHERE %s
)
SELECT %s,
    lexical + (CASE WHEN similarity > $3 THEN similarity ELSE 0 END) AS score
FROM scored
WHERE lexical > 0 OR similarity > $3
ORDER BY score DESC, id
LIMIT $%d`, chunkColumns, strings.Join(where, " AND "), chunkColumns, len(args))

	return i.query(ctx, "hybrid search", query, args...)
}

func (i *Index) query(ctx context.Context, op, query string, args ...any) ([]entity.ScoredChunk, error) {
	rows, err := i.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	results := make([]entity.ScoredChunk, 0)
	for rows.Next() {
		var row chunkRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			return nil, fmt.Errorf("%s: scan chunk: %w", op, err)
		}
		results = append(results, toEntityScoredChunk(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}

	return results, nil
}

// appendFilters turns metadata predicates into a jsonb containment check.
// document_id is matched against its own column.
func appendFilters(where []string, args []any, filters vectorstore.Filters) ([]string, []any) {
	contained := make(map[string]any, len(filters))
	for key, value := range filters {
		if key == entity.MetaDocumentID {
			args = append(args, fmt.Sprint(value))
			where = append(where, fmt.Sprintf("document_id = $%d", len(args)))
			continue
		}
		contained[key] = value
	}

	if len(contained) > 0 {
		args = append(args, contained)
		where = append(where, fmt.Sprintf("metadata @> $%d", len(args)))
	}

	return where, args
}

func (i *Index) Delete(ctx context.Context, chunkID string) error {
	if _, err := i.db.Exec(ctx, `DELETE FROM rag_chunks WHERE id = $1`, chunkID); err != nil {
		return classify("delete chunk", err)
	}
	return nil
}

func (i *Index) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if _, err := i.db.Exec(ctx, `DELETE FROM rag_chunks WHERE document_id = $1`, documentID); err != nil {
		return classify("delete by document", err)
	}
	return nil
}

func (i *Index) Exists(ctx context.Context, chunkID string) (bool, error) {
	var exists bool
	err := i.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rag_chunks WHERE id = $1)`, chunkID).Scan(&exists)
	if err != nil {
		return false, classify("exists", err)
	}
	return exists, nil
}

func (i *Index) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := i.db.QueryRow(ctx, `SELECT COUNT(*) FROM rag_chunks`).Scan(&count); err != nil {
		return 0, classify("count", err)
	}
	return count, nil
}

// classify marks connection failures as index unavailability
func classify(op string, err error) error {
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, entity.ErrIndexUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"testing"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
	"github.com/erkion1127/ds-ai2/internal/vectorstore/indextest"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendFilters(t *testing.T) {
	where, args := appendFilters([]string{"embedding IS NOT NULL"}, []any{"vec"}, vectorstore.Filters{
		entity.MetaDocumentID: "doc-a",
		entity.MetaSource:     "a.md",
	})

	require.Len(t, where, 3)
	require.Len(t, args, 3)
	assert.Contains(t, where, "document_id = $2")
	assert.Contains(t, where, "metadata @> $3")
	assert.Equal(t, "doc-a", args[1])
	assert.Equal(t, map[string]any{entity.MetaSource: "a.md"}, args[2])
}

func TestAppendFilters_NoFilters(t *testing.T) {
	where, args := appendFilters([]string{"TRUE"}, []any{"vec"}, nil)
	assert.Equal(t, []string{"TRUE"}, where)
	assert.Len(t, args, 1)
}

func TestUpsertArgs_Defaults(t *testing.T) {
	args := upsertArgs(entity.Chunk{ID: "doc-a_chunk_0", DocumentID: "doc-a", Content: "alpha"})

	require.Len(t, args, 10)
	assert.Equal(t, "TEXT", args[7])
	assert.Equal(t, map[string]any{}, args[8])
	assert.Nil(t, args[9])
}

func TestClassify(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.ErrorIs(t, classify("search", dialErr), entity.ErrIndexUnavailable)

	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "rag_chunks" does not exist`}
	err := classify("search", pgErr)
	assert.NotErrorIs(t, err, entity.ErrIndexUnavailable)
	assert.ErrorIs(t, err, pgErr)
}

// TestContract runs the shared index suite against a live database when RAG_TEST_DATABASE_URL is set.
// The database must allow CREATE EXTENSION vector.
func TestContract(t *testing.T) {
	databaseURL := os.Getenv("RAG_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("RAG_TEST_DATABASE_URL not set")
	}

	require.NoError(t, RunMigrations("file://migrations", databaseURL))

	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	require.NoError(t, err)
	RegisterVectorTypes(poolConfig)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	indextest.Run(t, func(t *testing.T) vectorstore.Index {
		_, err := pool.Exec(ctx, "TRUNCATE rag_chunks")
		require.NoError(t, err, fmt.Sprintf("truncate before %s", t.Name()))
		return NewIndex(pool, 0)
	})
}

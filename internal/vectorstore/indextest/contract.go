// Package indextest holds the behavioural suite every vectorstore.Index backend must pass.
package indextest

import (
	"context"
	"testing"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dimensions of the vectors used by the suite. Backends with a fixed vector size must accept it.
const Dimensions = 3

// Factory returns an empty index. Cleanup is the caller's responsibility via t.Cleanup.
type Factory func(t *testing.T) vectorstore.Index

func Chunk(docID string, index int, content string, vector []float32, source string) entity.Chunk {
	return entity.Chunk{
		ID:          entity.ChunkID(docID, index),
		DocumentID:  docID,
		Content:     content,
		ChunkIndex:  index,
		EndPosition: len(content),
		Embedding:   vector,
		ContentHash: content,
		Type:        entity.ChunkTypeText,
		Metadata: map[string]any{
			entity.MetaSource:     source,
			entity.MetaChunkIndex: index,
		},
	}
}

// Run executes the full suite against indexes produced by newIndex
func Run(t *testing.T, newIndex Factory) {
	t.Run("upsert is idempotent", func(t *testing.T) { testUpsertIdempotent(t, newIndex(t)) })
	t.Run("batch upsert and existence checks", func(t *testing.T) { testBatchAndExists(t, newIndex(t)) })
	t.Run("delete single chunk", func(t *testing.T) { testDelete(t, newIndex(t)) })
	t.Run("delete by document is complete", func(t *testing.T) { testDeleteByDocument(t, newIndex(t)) })
	t.Run("search ranks by cosine similarity", func(t *testing.T) { testSearchRanking(t, newIndex(t)) })
	t.Run("search applies filters", func(t *testing.T) { testSearchFilters(t, newIndex(t)) })
	t.Run("hybrid search is a union of signals", func(t *testing.T) { testHybridUnion(t, newIndex(t)) })
	t.Run("hybrid full lexical match outranks weak vector matches", func(t *testing.T) { testHybridSignalsComparable(t, newIndex(t)) })
	t.Run("empty index returns no results", func(t *testing.T) { testEmpty(t, newIndex(t)) })
}

func testUpsertIdempotent(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, Chunk("doc-a", 0, "first version", []float32{1, 0, 0}, "a.md")))
	require.NoError(t, idx.Upsert(ctx, Chunk("doc-a", 0, "second version", []float32{0, 1, 0}, "a.md")))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	results, err := idx.Search(ctx, "", []float32{0, 1, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Content)
	assert.Equal(t, "doc-a", results[0].DocumentID)
}

func testBatchAndExists(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	batch := []entity.Chunk{
		Chunk("doc-a", 0, "alpha", []float32{1, 0, 0}, "a.md"),
		Chunk("doc-a", 1, "beta", []float32{0, 1, 0}, "a.md"),
		Chunk("doc-b", 0, "gamma", []float32{0, 0, 1}, "b.md"),
	}
	require.NoError(t, idx.UpsertBatch(ctx, batch))
	require.NoError(t, idx.UpsertBatch(ctx, batch))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	ok, err := idx.Exists(ctx, entity.ChunkID("doc-a", 1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Exists(ctx, entity.ChunkID("doc-z", 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDelete(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, []entity.Chunk{
		Chunk("doc-a", 0, "alpha", []float32{1, 0, 0}, "a.md"),
		Chunk("doc-a", 1, "beta", []float32{0, 1, 0}, "a.md"),
	}))

	require.NoError(t, idx.Delete(ctx, entity.ChunkID("doc-a", 0)))
	require.NoError(t, idx.Delete(ctx, "missing-chunk"))

	ok, err := idx.Exists(ctx, entity.ChunkID("doc-a", 0))
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func testDeleteByDocument(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	var batch []entity.Chunk
	for i := 0; i < 12; i++ {
		batch = append(batch, Chunk("doc-a", i, "alpha content", []float32{1, float32(i), 0}, "a.md"))
	}
	batch = append(batch, Chunk("doc-b", 0, "alpha content too", []float32{1, 0, 0}, "b.md"))
	require.NoError(t, idx.UpsertBatch(ctx, batch))

	require.NoError(t, idx.DeleteByDocumentID(ctx, "doc-a"))

	results, err := idx.Search(ctx, "alpha", []float32{1, 0, 0}, 50, vectorstore.Filters{entity.MetaDocumentID: "doc-a"})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.HybridSearch(ctx, "alpha", []float32{1, 0, 0}, 50, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-b", results[0].DocumentID)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func testSearchRanking(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, []entity.Chunk{
		Chunk("doc-a", 0, "exact", []float32{1, 0, 0}, "a.md"),
		Chunk("doc-a", 1, "close", []float32{0.8, 0.2, 0}, "a.md"),
		Chunk("doc-a", 2, "orthogonal", []float32{0, 1, 0}, "a.md"),
		Chunk("doc-a", 3, "opposite", []float32{-1, 0, 0}, "a.md"),
	}))

	results, err := idx.Search(ctx, "", []float32{2, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact", results[0].Content)
	assert.Equal(t, "close", results[1].Content)
	assert.Equal(t, "orthogonal", results[2].Content)
	assert.InDelta(t, 2.0, results[0].Score, 1e-3)
	assert.InDelta(t, 1.0, results[2].Score, 1e-3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func testSearchFilters(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, []entity.Chunk{
		Chunk("doc-a", 0, "alpha", []float32{1, 0, 0}, "a.md"),
		Chunk("doc-b", 0, "alpha", []float32{1, 0, 0}, "b.md"),
	}))

	results, err := idx.Search(ctx, "", []float32{1, 0, 0}, 5, vectorstore.Filters{entity.MetaSource: "b.md"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-b", results[0].DocumentID)

	results, err = idx.Search(ctx, "", []float32{1, 0, 0}, 5, vectorstore.Filters{entity.MetaDocumentID: "doc-a"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-a", results[0].DocumentID)
}

func testHybridUnion(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, []entity.Chunk{
		// lexical match only: vector points away from the query
		Chunk("doc-a", 0, "kubernetes cluster autoscaling guide", []float32{-1, 0, 0}, "a.md"),
		// vector match only: no shared terms
		Chunk("doc-a", 1, "container orchestration notes", []float32{0.9, 0.1, 0}, "a.md"),
		// neither signal
		Chunk("doc-a", 2, "banana bread recipe", []float32{-0.5, -1, 0}, "a.md"),
	}))

	results, err := idx.HybridSearch(ctx, "kubernetes autoscaling", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	assert.ElementsMatch(t, []string{"kubernetes cluster autoscaling guide", "container orchestration notes"}, contents)

	results, err = idx.HybridSearch(ctx, "kubernetes autoscaling", []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEqual(t, "banana bread recipe", results[0].Content)

	// pure vector search still returns the lexical-only chunk, ranked last
	results, err = idx.Search(ctx, "kubernetes autoscaling", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "kubernetes cluster autoscaling guide", results[2].Content)
}

func testHybridSignalsComparable(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	// query vector is {1, 0, 0}; {0.05, 0.99875, 0} has similarity ~0.05, {-0.05, 0.99875, 0} ~-0.05
	batch := []entity.Chunk{
		Chunk("doc-a", 0, "kubernetes cluster autoscaling explained", []float32{-0.05, 0.99875, 0}, "a.md"),
	}
	for i := 0; i < 5; i++ {
		batch = append(batch, Chunk("doc-b", i, "banana bread", []float32{0.05, 0.99875, 0}, "b.md"))
	}
	require.NoError(t, idx.UpsertBatch(ctx, batch))

	results, err := idx.HybridSearch(ctx, "kubernetes cluster autoscaling", []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, "kubernetes cluster autoscaling explained", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-3)
	for _, r := range results[1:] {
		assert.Equal(t, "banana bread", r.Content)
		assert.InDelta(t, 0.05, r.Score, 1e-3)
	}
}

func testEmpty(t *testing.T, idx vectorstore.Index) {
	ctx := context.Background()

	results, err := idx.Search(ctx, "anything", []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.HybridSearch(ctx, "anything", []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, idx.DeleteByDocumentID(ctx, "nothing-here"))
}

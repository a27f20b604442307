package vectorstore

import (
	"testing"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 1}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"what", "is", "pgvector", "v0", "3"}, Terms("What is pgvector (v0.3)?"))
	assert.Empty(t, Terms(" ... "))
}

func TestMatchFilters(t *testing.T) {
	c := entity.Chunk{
		DocumentID: "doc-1",
		Metadata:   map[string]any{"source": "a.md", "chunk_index": 3},
	}

	assert.True(t, MatchFilters(c, nil))
	assert.True(t, MatchFilters(c, Filters{"source": "a.md", "document_id": "doc-1"}))
	assert.True(t, MatchFilters(c, Filters{"chunk_index": "3"}))
	assert.False(t, MatchFilters(c, Filters{"source": "b.md"}))
	assert.False(t, MatchFilters(c, Filters{"missing": "x"}))
	assert.False(t, MatchFilters(c, Filters{"document_id": "doc-2"}))
}

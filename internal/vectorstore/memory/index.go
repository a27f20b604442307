// Package memory is an in-process retrieval index with brute-force scoring.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
)

var _ vectorstore.Index = &Index{}

type Index struct {
	mu       sync.RWMutex
	chunks   map[string]entity.Chunk
	baseline float64
}

// NewIndex creates an empty index. baseline is the cosine similarity a chunk must exceed
// to enter hybrid results without a lexical match.
func NewIndex(baseline float64) *Index {
	return &Index{
		chunks:   make(map[string]entity.Chunk),
		baseline: baseline,
	}
}

func (i *Index) Name() string { return "memory" }

func (i *Index) Upsert(_ context.Context, chunk entity.Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.chunks[chunk.ID] = clone(chunk)
	return nil
}

func (i *Index) UpsertBatch(_ context.Context, chunks []entity.Chunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, c := range chunks {
		i.chunks[c.ID] = clone(c)
	}
	return nil
}

func (i *Index) Search(_ context.Context, _ string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	results := make([]entity.ScoredChunk, 0, len(i.chunks))
	for _, c := range i.chunks {
		if len(c.Embedding) == 0 || !vectorstore.MatchFilters(c, filters) {
			continue
		}
		sim := vectorstore.CosineSimilarity(queryVector, c.Embedding)
		results = append(results, entity.ScoredChunk{Chunk: clone(c), Score: vectorstore.VectorScore(sim)})
	}

	return rank(results, topK), nil
}

func (i *Index) HybridSearch(_ context.Context, queryText string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error) {
	queryTerms := vectorstore.QueryTerms(queryText)

	i.mu.RLock()
	defer i.mu.RUnlock()

	results := make([]entity.ScoredChunk, 0)
	for _, c := range i.chunks {
		if !vectorstore.MatchFilters(c, filters) {
			continue
		}

		var score float64
		matched := false

		if lexical := vectorstore.LexicalScore(queryTerms, c.Content); lexical > 0 {
			score += lexical
			matched = true
		}
		if len(c.Embedding) > 0 {
			if sim := vectorstore.CosineSimilarity(queryVector, c.Embedding); sim > i.baseline {
				score += sim
				matched = true
			}
		}

		if matched {
			results = append(results, entity.ScoredChunk{Chunk: clone(c), Score: score})
		}
	}

	return rank(results, topK), nil
}

func (i *Index) Delete(_ context.Context, chunkID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.chunks, chunkID)
	return nil
}

func (i *Index) DeleteByDocumentID(_ context.Context, documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for id, c := range i.chunks {
		if c.DocumentID == documentID {
			delete(i.chunks, id)
		}
	}
	return nil
}

func (i *Index) Exists(_ context.Context, chunkID string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	_, ok := i.chunks[chunkID]
	return ok, nil
}

func (i *Index) Count(_ context.Context) (int64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return int64(len(i.chunks)), nil
}

// rank orders by score descending, breaking ties by chunk id for stable output
func rank(results []entity.ScoredChunk, topK int) []entity.ScoredChunk {
	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ID < results[b].ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func clone(c entity.Chunk) entity.Chunk {
	if c.Embedding != nil {
		c.Embedding = append([]float32(nil), c.Embedding...)
	}
	if c.Metadata != nil {
		meta := make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			meta[k] = v
		}
		c.Metadata = meta
	}
	return c
}

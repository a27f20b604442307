// Package vectorstore defines the retrieval index contract shared by every backend.
//
// Scoring contract:
//   - Search ranks chunks by cosine similarity to the query vector and reports
//     similarity+1, so scores fall in [0, 2].
//   - HybridSearch admits a chunk when its text lexically matches the query OR its
//     cosine similarity exceeds the configured baseline. Both signals share a
//     [0, 1]-sized scale: the lexical score is the fraction of distinct query terms
//     present in the chunk, the vector score is the raw similarity. The score is
//     the sum over whichever signals fired, so a chunk containing every query term
//     outranks one that only clears the baseline with a weak vector match. A chunk
//     matching neither signal is never returned.
//   - Filters are metadata equality predicates. The key "document_id" targets the
//     owning document.
//
// Backends wrap transport-level unreachability in entity.ErrIndexUnavailable.
package vectorstore

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

// Filters restricts search results by metadata equality
type Filters map[string]any

type Index interface {
	// Upsert is idempotent by chunk id: re-upserting overwrites content and embedding
	Upsert(ctx context.Context, chunk entity.Chunk) error
	UpsertBatch(ctx context.Context, chunks []entity.Chunk) error

	Search(ctx context.Context, queryText string, queryVector []float32, topK int, filters Filters) ([]entity.ScoredChunk, error)
	HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK int, filters Filters) ([]entity.ScoredChunk, error)

	Delete(ctx context.Context, chunkID string) error
	// DeleteByDocumentID removes every chunk of the document before returning
	DeleteByDocumentID(ctx context.Context, documentID string) error

	Exists(ctx context.Context, chunkID string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// Named is implemented by backends that report their engine name for diagnostics
type Named interface {
	Name() string
}

// BackendName returns the backend name or "unknown"
func BackendName(idx Index) string {
	if n, ok := idx.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

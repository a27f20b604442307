package rag

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Search(ctx context.Context, queryText string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error)
	HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK int, filters vectorstore.Filters) ([]entity.ScoredChunk, error)
	Count(ctx context.Context) (int64, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pinger is implemented by generators that can report their own reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

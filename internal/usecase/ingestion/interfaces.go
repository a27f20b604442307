package ingestion

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

type Extractor interface {
	Extract(filename string, data []byte) (string, entity.DocumentType, error)
}

type Chunker interface {
	Chunk(doc *entity.Document) []entity.Chunk
}

type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []entity.Chunk) error
}

type Index interface {
	UpsertBatch(ctx context.Context, chunks []entity.Chunk) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

package ingest

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

type IngestionUsecase interface {
	Ingest(ctx context.Context, src entity.Source) (*entity.Document, error)
	IngestFile(ctx context.Context, path string) (*entity.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

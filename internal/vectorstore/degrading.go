package vectorstore

import (
	"context"
	"errors"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// DegradingIndex turns an unreachable backend into empty search results.
// Writes and existence checks still return every error.
type DegradingIndex struct {
	Index
	logger *zap.Logger
}

func NewDegradingIndex(index Index, logger *zap.Logger) *DegradingIndex {
	return &DegradingIndex{
		Index:  index,
		logger: logger,
	}
}

func (d *DegradingIndex) Name() string {
	return BackendName(d.Index)
}

func (d *DegradingIndex) Search(ctx context.Context, queryText string, queryVector []float32, topK int, filters Filters) ([]entity.ScoredChunk, error) {
	chunks, err := d.Index.Search(ctx, queryText, queryVector, topK, filters)
	return d.degrade(ctx, "search", chunks, err)
}

func (d *DegradingIndex) HybridSearch(ctx context.Context, queryText string, queryVector []float32, topK int, filters Filters) ([]entity.ScoredChunk, error) {
	chunks, err := d.Index.HybridSearch(ctx, queryText, queryVector, topK, filters)
	return d.degrade(ctx, "hybrid_search", chunks, err)
}

func (d *DegradingIndex) degrade(ctx context.Context, op string, chunks []entity.ScoredChunk, err error) ([]entity.ScoredChunk, error) {
	if err == nil {
		return chunks, nil
	}
	if !errors.Is(err, entity.ErrIndexUnavailable) {
		return nil, err
	}

	d.logger.With(ctxzap.TagsToFields(ctx)...).Warn("retrieval index unavailable, returning empty result",
		zap.String("operation", op),
		zap.String("backend", d.Name()),
		zap.Error(err),
	)

	return []entity.ScoredChunk{}, nil
}

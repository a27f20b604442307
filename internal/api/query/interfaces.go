package query

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

type RagUsecase interface {
	Query(ctx context.Context, req entity.QueryRequest) (*entity.RagAnswer, error)
	Health(ctx context.Context) *entity.HealthStatus
}

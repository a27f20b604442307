package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/logger"
	"github.com/erkion1127/ds-ai2/internal/pkg/response"
	"github.com/erkion1127/ds-ai2/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// processingFailed is the only detail clients get about query failures
const processingFailed = "processing failed"

type Handler struct {
	usecase         RagUsecase
	validator       *validator.Validator
	defaultStrategy entity.SearchStrategy
}

func NewHandler(usecase RagUsecase, validator *validator.Validator, defaultStrategy entity.SearchStrategy) *Handler {
	return &Handler{
		usecase:         usecase,
		validator:       validator,
		defaultStrategy: defaultStrategy,
	}
}

// Query handles POST /query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Query")

	var req entity.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateQuery(&req, h.defaultStrategy); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	ctxzap.Debug(ctx, "running query",
		zap.Int("top_k", req.TopK),
		zap.String("strategy", string(req.Strategy)),
		zap.Int("filters", len(req.Filters)),
	)

	answer, err := h.usecase.Query(ctx, req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, answer)
}

// Health handles GET /query/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "QueryHealth")

	status := h.usecase.Health(ctx)
	if status.Status != entity.HealthUp {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	response.Success(w, status)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Error(ctx, message)
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrMissingField) || errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, processingFailed, err)
	}
}

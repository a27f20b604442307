package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/logger"
	"github.com/erkion1127/ds-ai2/internal/pkg/response"
	"github.com/erkion1127/ds-ai2/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase   IngestionUsecase
	cfg       config.FileUploadConfig
	validator *validator.Validator
}

func NewHandler(
	usecase IngestionUsecase,
	cfg config.FileUploadConfig,
	validator *validator.Validator,
) *Handler {
	return &Handler{
		usecase:   usecase,
		cfg:       cfg,
		validator: validator,
	}
}

// Upload handles POST /ingest/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Upload")

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "file is required", err)
		return
	}
	defer file.Close()

	if err := h.validator.ValidateUpload(header); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	metadata := map[string]any{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			h.respondError(ctx, w, http.StatusBadRequest, "metadata must be a JSON object", err)
			return
		}
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "failed to read uploaded file", err)
		return
	}

	ctx = logger.AddFields(ctx, zap.String("filename", header.Filename))
	ctxzap.Info(ctx, "ingesting uploaded document", zap.Int64("size", header.Size))

	doc, err := h.usecase.Ingest(ctx, entity.Source{
		Filename: validator.SanitizeFilename(header.Filename),
		Content:  content,
		Metadata: metadata,
	})
	if err != nil {
		h.respondIngestFailure(ctx, w, doc, err)
		return
	}

	response.Created(w, &entity.IngestResponse{
		Document: doc,
		Status:   string(doc.Status),
	})
}

// IngestFile handles POST /ingest/file?path=
func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	ctx := logger.AddFields(r.Context(),
		zap.String("path", path),
		zap.String("action", "IngestFile"),
	)

	if err := h.validator.ValidatePath(path); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	doc, err := h.usecase.IngestFile(ctx, path)
	if err != nil {
		h.respondIngestFailure(ctx, w, doc, err)
		return
	}

	response.Created(w, &entity.IngestResponse{
		Document: doc,
		Status:   string(doc.Status),
	})
}

// DeleteDocument handles DELETE /ingest/{document_id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "document_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("document_id", documentID),
		zap.String("action", "DeleteDocument"),
	)

	if err := h.usecase.DeleteDocument(ctx, documentID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.DeleteDocumentResponse{
		DocumentID: documentID,
		Status:     string(entity.DocumentStatusDeleted),
	})
}

// respondIngestFailure reports a pipeline failure as FAILED with its cause
func (h *Handler) respondIngestFailure(ctx context.Context, w http.ResponseWriter, doc *entity.Document, err error) {
	var stageErr *entity.StageError
	if !errors.As(err, &stageErr) {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Error(ctx, "ingestion failed", zap.String("stage", stageErr.Stage), zap.Error(err))

	response.JSON(w, http.StatusUnprocessableEntity, &entity.IngestResponse{
		Document: doc,
		Status:   string(entity.DocumentStatusFailed),
		Error:    fmt.Sprintf("%s: %s", stageErr.Stage, stageErr.Cause()),
	})
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
	case errors.Is(err, entity.ErrInvalidFile) || errors.Is(err, entity.ErrFileTooLarge) || errors.Is(err, entity.ErrInvalidExtension):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, entity.ErrIndexUnavailable):
		h.respondError(ctx, w, http.StatusServiceUnavailable, "retrieval index unavailable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

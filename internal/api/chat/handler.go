package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/logger"
	"github.com/erkion1127/ds-ai2/internal/pkg/response"
	"github.com/erkion1127/ds-ai2/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxBodySize      = 1 << 20
	processingFailed = "processing failed"
)

type Handler struct {
	usecase   ChatUsecase
	validator *validator.Validator
}

func NewHandler(usecase ChatUsecase, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		validator: validator,
	}
}

// Chat handles POST /chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.validator.ValidateChat(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	resp, err := h.usecase.Chat(ctx, req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, resp)
}

// NewSession handles POST /chat/new
func (h *Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	sessionID := h.usecase.NewSession()
	ctxzap.Info(r.Context(), "session id issued", zap.String("session_id", sessionID))

	response.Created(w, map[string]string{"session_id": sessionID})
}

// History handles GET /chat/history/{session_id}; with ?format= the history is a download
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "History"),
	)

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		response.Success(w, h.usecase.History(sessionID))
		return
	}

	format, err := validator.ParseFormat(formatParam)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	export, err := h.usecase.ExportHistory(ctx, sessionID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "history exported", zap.String("format", string(format)), zap.Int("bytes", len(export.Data)))
	response.Attachment(w, export.Filename, export.ContentType, export.Data)
}

// SessionInfo handles GET /chat/session/{session_id}
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	ctx := logger.AddFields(r.Context(), zap.String("session_id", sessionID))

	info, err := h.usecase.SessionInfo(sessionID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, info)
}

// ClearSession handles DELETE /chat/session/{session_id}
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "ClearSession"),
	)

	h.usecase.ClearSession(ctx, sessionID)
	response.NoContent(w)
}

// ListSessions handles GET /chat/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.usecase.ListActiveSessions())
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
	case errors.Is(err, entity.ErrSessionNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "session not found", err)
	case errors.Is(err, entity.ErrMissingField) || errors.Is(err, entity.ErrInvalidFormat):
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, processingFailed, err)
	}
}

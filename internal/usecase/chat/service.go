package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// StageFallback marks a failure of the direct chat call made after the workflow failed
const StageFallback = "fallback"

const transcriptTimeLayout = "2006-01-02 15:04:05"

// Export is a rendered transcript ready to be sent to a client
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ChatUsecase is the chat facade used by the HTTP handlers and the Telegram bot
type ChatUsecase struct {
	workflow   *Workflow
	store      SessionStore
	generator  Generator
	formatters FormatterFactory
	windowSize int
	logger     *zap.Logger
}

func NewUsecase(
	workflow *Workflow,
	store SessionStore,
	generator Generator,
	formatters FormatterFactory,
	windowSize int,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		workflow:   workflow,
		store:      store,
		generator:  generator,
		formatters: formatters,
		windowSize: windowSize,
		logger:     logger,
	}
}

// Chat answers one message. A failed workflow falls back to a plain windowed chat call.
func (uc *ChatUsecase) Chat(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error) {
	ctx = logger.WithFallback(ctx, uc.logger)
	if strings.TrimSpace(req.Message) == "" {
		return nil, entity.ErrMissingField
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	ctxzap.AddFields(ctx, zap.String("session_id", req.SessionID))

	resp, err := uc.workflow.Process(ctx, req.SessionID, req.Message, req.RAGEnabled())
	if err == nil {
		ctxzap.Info(ctx, "chat answered",
			zap.String("intent", resp.Intent),
			zap.Int("sources", len(resp.Sources)),
			zap.Int64("response_time_ms", resp.ResponseTimeMs),
		)
		return resp, nil
	}

	ctxzap.Error(ctx, "chat workflow failed, falling back to direct chat", zap.Error(err))
	return uc.fallback(ctx, req)
}

func (uc *ChatUsecase) fallback(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error) {
	started := time.Now()

	// the workflow may have failed before recording the user message
	history := uc.store.GetContext(req.SessionID, uc.windowSize)
	if n := len(history); n == 0 || history[n-1].Role != entity.RoleUser || history[n-1].Content != req.Message {
		uc.store.AddMessage(req.SessionID, entity.RoleUser, req.Message, nil)
		history = uc.store.GetContext(req.SessionID, uc.windowSize)
	}

	turns := BuildTurns(systemPrompt, history, req.Message)
	answer, err := uc.generator.Chat(ctx, turns)
	if err != nil {
		ctxzap.Error(ctx, "direct chat failed", zap.Error(err))
		return nil, entity.NewStageError(entity.ErrQueryFailure, StageFallback, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = fallbackAnswer
	}
	uc.store.AddMessage(req.SessionID, entity.RoleAssistant, answer, map[string]any{
		entity.MetaAction: StageFallback,
	})

	return &entity.ChatResponse{
		SessionID:      req.SessionID,
		Response:       answer,
		ResponseTimeMs: time.Since(started).Milliseconds(),
	}, nil
}

// NewSession returns a fresh session id; the session itself is created by its first message
func (uc *ChatUsecase) NewSession() string {
	return uuid.New().String()
}

func (uc *ChatUsecase) History(sessionID string) *entity.HistoryResponse {
	return &entity.HistoryResponse{
		SessionID: sessionID,
		Messages:  uc.store.History(sessionID),
	}
}

func (uc *ChatUsecase) ClearSession(ctx context.Context, sessionID string) {
	ctx = logger.WithFallback(ctx, uc.logger)
	uc.store.ClearSession(sessionID)
	ctxzap.Info(ctx, "session cleared", zap.String("session_id", sessionID))
}

func (uc *ChatUsecase) ListActiveSessions() *entity.SessionsResponse {
	sessions := uc.store.ListActiveSessions()
	return &entity.SessionsResponse{
		Sessions: sessions,
		Count:    len(sessions),
	}
}

func (uc *ChatUsecase) SessionInfo(sessionID string) (entity.SessionInfo, error) {
	return uc.store.SessionInfo(sessionID)
}

// ExportHistory renders the full history of a session as JSON or as a document transcript
func (uc *ChatUsecase) ExportHistory(ctx context.Context, sessionID string, format entity.ResultFormat) (*Export, error) {
	ctx = logger.WithFallback(ctx, uc.logger)
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidFormat, format)
	}

	history := uc.History(sessionID)
	base := "chat-" + sessionID

	if format == entity.FormatJSON {
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal history: %w", err)
		}
		return &Export{Filename: base + ".json", ContentType: "application/json", Data: data}, nil
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, err
	}

	data, err := f.Format("Conversation "+sessionID, Transcript(history.Messages))
	if err != nil {
		return nil, fmt.Errorf("format history as %s: %w", format, err)
	}

	ctxzap.Debug(ctx, "history exported",
		zap.String("format", string(format)),
		zap.Int("messages", len(history.Messages)),
	)

	return &Export{
		Filename:    base + f.FileExtension(),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// Transcript renders messages one per line as "[timestamp] role: content"
func Transcript(messages []entity.ConversationMessage) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s: %s", m.Timestamp.Format(transcriptTimeLayout), m.Role, m.Content)
	}
	return sb.String()
}

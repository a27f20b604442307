package chat

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
	chatuc "github.com/erkion1127/ds-ai2/internal/usecase/chat"
)

type ChatUsecase interface {
	Chat(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error)
	NewSession() string
	History(sessionID string) *entity.HistoryResponse
	ClearSession(ctx context.Context, sessionID string)
	ListActiveSessions() *entity.SessionsResponse
	SessionInfo(sessionID string) (entity.SessionInfo, error)
	ExportHistory(ctx context.Context, sessionID string, format entity.ResultFormat) (*chatuc.Export, error)
}

package handlers

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
	chatuc "github.com/erkion1127/ds-ai2/internal/usecase/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type ChatUsecase interface {
	Chat(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error)
	ClearSession(ctx context.Context, sessionID string)
	History(sessionID string) *entity.HistoryResponse
	ExportHistory(ctx context.Context, sessionID string, format entity.ResultFormat) (*chatuc.Export, error)
}

// BotAPI is the part of *tgbotapi.BotAPI the handlers use
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

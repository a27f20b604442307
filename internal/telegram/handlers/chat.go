package handlers

import (
	"context"
	"strings"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/telegram/render"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ChatHandler answers text messages through the chat usecase and serves the bot commands.
// Each Telegram chat is one conversation session.
type ChatHandler struct {
	bot    BotAPI
	chatUC ChatUsecase
	sender *MessageSender
	logger *zap.Logger
}

func NewChatHandler(bot BotAPI, chatUC ChatUsecase, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		bot:    bot,
		chatUC: chatUC,
		sender: NewMessageSender(bot, logger),
		logger: logger,
	}
}

// Handle implements Handler
func (h *ChatHandler) Handle(ctx context.Context, msg *Message) error {
	sessionID := render.SessionID(msg.ChatID)
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(
		zap.String("session_id", sessionID),
		zap.Int64("user_id", msg.UserID),
	))

	if msg.Command != "" {
		return h.handleCommand(ctx, msg, sessionID)
	}

	if strings.TrimSpace(msg.Text) == "" {
		return h.sender.Send(msg.ChatID, render.MsgTextOnly)
	}

	typing := NewTypingNotifier(h.bot, msg.ChatID, h.logger)
	typing.Start(ctx)
	resp, err := h.chatUC.Chat(ctx, entity.ChatRequest{SessionID: sessionID, Message: msg.Text})
	typing.Stop()

	if err != nil {
		HandleError(ctx, h.sender, msg.ChatID, err)
		return nil
	}

	return h.sender.Send(msg.ChatID, render.Answer(resp))
}

func (h *ChatHandler) handleCommand(ctx context.Context, msg *Message, sessionID string) error {
	ctxzap.Info(ctx, "command received", zap.String("command", msg.Command))

	switch msg.Command {
	case CommandStart:
		return h.sender.Send(msg.ChatID, render.MsgWelcome)
	case CommandHelp:
		return h.sender.Send(msg.ChatID, render.MsgHelp)
	case CommandReset:
		h.chatUC.ClearSession(ctx, sessionID)
		return h.sender.Send(msg.ChatID, render.MsgSessionReset)
	case CommandHistory:
		return h.sendHistory(ctx, msg.ChatID, sessionID)
	default:
		return h.sender.Send(msg.ChatID, render.ErrUnknownCommand)
	}
}

func (h *ChatHandler) sendHistory(ctx context.Context, chatID int64, sessionID string) error {
	if len(h.chatUC.History(sessionID).Messages) == 0 {
		return h.sender.Send(chatID, render.MsgEmptyHistory)
	}

	export, err := h.chatUC.ExportHistory(ctx, sessionID, entity.FormatMarkdown)
	if err != nil {
		HandleError(ctx, h.sender, chatID, err)
		return nil
	}

	return h.sender.SendDocument(chatID, export.Filename, export.Data)
}

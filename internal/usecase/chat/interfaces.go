package chat

import (
	"context"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/formatter"
)

// SessionStore holds conversation history and per-session scratch state
type SessionStore interface {
	AddMessage(sessionID string, role entity.Role, content string, metadata map[string]any) entity.ConversationMessage
	GetContext(sessionID string, window int) []entity.ConversationMessage
	History(sessionID string) []entity.ConversationMessage
	ClearSession(sessionID string)
	ListActiveSessions() []string
	SessionInfo(sessionID string) (entity.SessionInfo, error)
	Scratch(sessionID string) map[string]any
	SetScratch(sessionID, key string, value any)
}

type Retriever interface {
	RetrieveContext(ctx context.Context, query string, topK int) (*entity.RetrievedContext, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, turns []entity.ChatTurn) (string, error)
}

type FormatterFactory interface {
	Create(format entity.ResultFormat) (formatter.Formatter, error)
}

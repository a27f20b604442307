package handlers

import (
	"context"
)

// Bot commands
const (
	CommandStart   = "start"
	CommandHelp    = "help"
	CommandReset   = "reset"
	CommandHistory = "history"
)

// Message represents a normalized Telegram message
type Message struct {
	ChatID    int64
	UserID    int64
	MessageID int
	// Command is set, without the slash, when the message is a bot command
	Command string
	Text    string
}

// Handler processes one normalized message
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

// MaxMessageLength is Telegram's limit for one text message
const MaxMessageLength = 4096

const (
	MsgWelcome = `👋 Hi! I answer questions using the documents indexed in the knowledge base.

Just send me a message. I remember the last few turns of our conversation.

/help lists the commands.`

	MsgHelp = `🤖 Commands:

/start - Show the welcome message
/help - Show this help
/reset - Forget our conversation and start over
/history - Get the conversation as a Markdown file`

	MsgSessionReset  = "🧹 Conversation cleared. Ask me anything."
	MsgEmptyHistory  = "📭 Nothing to export yet. Send me a message first."
	MsgTextOnly      = "✏️ I can only read text messages."
	MsgSourcesHeader = "📚 Sources:"
)

// Errors shown to users
const (
	ErrGeneric        = "❌ Something went wrong. Please try again."
	ErrProcessing     = "❌ Processing failed. Please try again in a moment."
	ErrUnavailable    = "⏳ The service is temporarily unavailable. Please try again later."
	ErrUnknownCommand = "❓ Unknown command. Use /help."
	ErrPanic          = "❌ An unexpected error occurred. Please try again or use /reset."
)

// Rate limit warnings, escalating with repeated violations
var RateLimitWarnings = []string{
	"⚠️ Too many requests. Please wait a little.",
	"⚠️ Rate limit exceeded. Wait about 30 seconds before trying again.",
	"🛑 You are sending requests too often. Please wait a minute.",
}

// RateLimitWarning returns the warning for the nth violation, starting at 1
func RateLimitWarning(n int) string {
	idx := min(max(n, 1), len(RateLimitWarnings)) - 1
	return RateLimitWarnings[idx]
}

// SessionID maps a Telegram chat to a conversation session
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

// Answer formats a chat reply with its cited sources
func Answer(resp *entity.ChatResponse) string {
	if len(resp.Sources) == 0 {
		return resp.Response
	}

	var sb strings.Builder
	sb.WriteString(resp.Response)
	sb.WriteString("\n\n")
	sb.WriteString(MsgSourcesHeader)
	for _, s := range resp.Sources {
		sb.WriteString("\n• ")
		sb.WriteString(s)
	}
	return sb.String()
}

// Split cuts text into parts of at most limit bytes, preferring line breaks and never
// splitting a UTF-8 sequence
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}

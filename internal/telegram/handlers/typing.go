package handlers

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// typingInterval stays under the 5 seconds a Telegram chat action lasts
const typingInterval = 4 * time.Second

// TypingNotifier sends periodic "typing" actions while a reply is being generated
type TypingNotifier struct {
	bot      BotAPI
	chatID   int64
	interval time.Duration
	done     chan struct{}
	logger   *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewTypingNotifier creates a new typing indicator
func NewTypingNotifier(bot BotAPI, chatID int64, logger *zap.Logger) *TypingNotifier {
	return &TypingNotifier{
		bot:      bot,
		chatID:   chatID,
		interval: typingInterval,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start sends one typing action now and then repeats it until Stop or ctx is done
func (t *TypingNotifier) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		t.send()

		go func() {
			ticker := time.NewTicker(t.interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					t.send()
				case <-t.done:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	})
}

// Stop stops sending typing indicators
func (t *TypingNotifier) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func (t *TypingNotifier) send() {
	action := tgbotapi.NewChatAction(t.chatID, tgbotapi.ChatTyping)
	if _, err := t.bot.Request(action); err != nil {
		t.logger.Warn("failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", t.chatID),
		)
	}
}

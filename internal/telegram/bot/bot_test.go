package bot

import (
	"context"
	"testing"

	"github.com/erkion1127/ds-ai2/internal/telegram/handlers"
	"github.com/erkion1127/ds-ai2/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	messages []*handlers.Message
}

func (h *recordingHandler) Handle(_ context.Context, msg *handlers.Message) error {
	h.messages = append(h.messages, msg)
	return nil
}

type fakeAPI struct {
	texts []string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func commandMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 3,
		From:      &tgbotapi.User{ID: 5},
		Chat:      &tgbotapi.Chat{ID: 7},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/reset")}},
	}
}

func TestToMessage(t *testing.T) {
	assert.Nil(t, ToMessage(nil))

	msg := ToMessage(&tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 5},
		Chat:      &tgbotapi.Chat{ID: 7},
		Text:      "what is a pod?",
	})
	require.NotNil(t, msg)
	assert.Equal(t, handlers.Message{ChatID: 7, UserID: 5, MessageID: 1, Text: "what is a pod?"}, *msg)

	cmd := ToMessage(commandMessage("/reset now"))
	require.NotNil(t, cmd)
	assert.Equal(t, handlers.CommandReset, cmd.Command)
	assert.Equal(t, "now", cmd.Text)
}

func TestDispatch(t *testing.T) {
	h := &recordingHandler{}
	api := &fakeAPI{}
	sender := handlers.NewMessageSender(api, zap.NewNop())

	require.NoError(t, dispatch(context.Background(), h, sender, tgbotapi.Update{}))
	assert.Empty(t, h.messages)

	photo := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}, Photo: []tgbotapi.PhotoSize{{FileID: "x"}}}
	require.NoError(t, dispatch(context.Background(), h, sender, tgbotapi.Update{Message: photo}))
	assert.Empty(t, h.messages)
	assert.Equal(t, []string{render.MsgTextOnly}, api.texts)

	require.NoError(t, dispatch(context.Background(), h, sender, tgbotapi.Update{Message: commandMessage("/reset")}))
	require.Len(t, h.messages, 1)
	assert.Equal(t, handlers.CommandReset, h.messages[0].Command)
}

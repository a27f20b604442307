package chat

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/memory"
	"github.com/erkion1127/ds-ai2/internal/pkg/formatter"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newService(t *testing.T, gen *scriptedGenerator) (*ChatUsecase, *memory.Store) {
	t.Helper()
	store := newStore()
	wf := NewWorkflow(store, &stubRetriever{}, gen, WorkflowConfig{})
	return NewUsecase(wf, store, gen, formatter.NewFactory(), 10, zaptest.NewLogger(t)), store
}

func TestChat_GeneratesSessionID(t *testing.T) {
	gen := &scriptedGenerator{intent: "[GENERAL_CHAT]", answers: []string{"hello"}}
	uc, store := newService(t, gen)

	resp, err := uc.Chat(context.Background(), entity.ChatRequest{Message: "hi"})
	require.NoError(t, err)

	_, parseErr := uuid.Parse(resp.SessionID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "hello", resp.Response)
	assert.Len(t, store.History(resp.SessionID), 2)
}

func TestChat_EmptyMessage(t *testing.T) {
	uc, _ := newService(t, &scriptedGenerator{})

	_, err := uc.Chat(context.Background(), entity.ChatRequest{SessionID: "s1", Message: "  "})
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestChat_FallsBackToDirectChat(t *testing.T) {
	gen := &scriptedGenerator{intent: "[GENERAL_CHAT]", failChats: 1, answers: []string{"recovered"}}
	uc, store := newService(t, gen)

	resp, err := uc.Chat(context.Background(), entity.ChatRequest{SessionID: "s1", Message: "hello?"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Response)

	history := store.History("s1")
	require.Len(t, history, 2, "the user message is not recorded twice")
	assert.Equal(t, "hello?", history[0].Content)
	assert.Equal(t, "recovered", history[1].Content)
	assert.Equal(t, StageFallback, history[1].Metadata[entity.MetaAction])

	last := gen.chatCalls[1][len(gen.chatCalls[1])-1]
	assert.Equal(t, entity.ChatTurn{Role: entity.RoleUser, Content: "hello?"}, last)
}

func TestChat_FallbackFailureIsQueryFailure(t *testing.T) {
	cause := errors.New("connection refused")
	gen := &scriptedGenerator{intent: "[GENERAL_CHAT]", chatErr: cause}
	uc, _ := newService(t, gen)

	_, err := uc.Chat(context.Background(), entity.ChatRequest{SessionID: "s1", Message: "hello?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrQueryFailure)
	assert.ErrorIs(t, err, cause)

	var stageErr *entity.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFallback, stageErr.Stage)
}

func TestSessions(t *testing.T) {
	gen := &scriptedGenerator{intent: "[GENERAL_CHAT]", answers: []string{"a1", "a2"}}
	uc, _ := newService(t, gen)
	ctx := context.Background()

	_, err := uc.Chat(ctx, entity.ChatRequest{SessionID: "s1", Message: "m1"})
	require.NoError(t, err)
	_, err = uc.Chat(ctx, entity.ChatRequest{SessionID: "s2", Message: "m2"})
	require.NoError(t, err)

	sessions := uc.ListActiveSessions()
	assert.Equal(t, 2, sessions.Count)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions.Sessions)

	info, err := uc.SessionInfo("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, info.MessageCount)

	uc.ClearSession(ctx, "s1")
	assert.Empty(t, uc.History("s1").Messages)
	_, err = uc.SessionInfo("s1")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)

	assert.NotEqual(t, uc.NewSession(), uc.NewSession())
}

func TestExportHistory(t *testing.T) {
	gen := &scriptedGenerator{intent: "[GENERAL_CHAT]", answers: []string{"hi, how can I help?"}}
	uc, _ := newService(t, gen)
	ctx := context.Background()

	_, err := uc.Chat(ctx, entity.ChatRequest{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		export, err := uc.ExportHistory(ctx, "s1", entity.FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, "chat-s1.json", export.Filename)
		assert.Equal(t, "application/json", export.ContentType)

		var decoded entity.HistoryResponse
		require.NoError(t, json.Unmarshal(export.Data, &decoded))
		assert.Equal(t, "s1", decoded.SessionID)
		assert.Len(t, decoded.Messages, 2)
	})

	t.Run("markdown", func(t *testing.T) {
		export, err := uc.ExportHistory(ctx, "s1", entity.FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, "chat-s1.md", export.Filename)

		text := string(export.Data)
		assert.True(t, strings.HasPrefix(text, "# Conversation s1\n"))
		assert.Contains(t, text, "user: hello")
		assert.Contains(t, text, "assistant: hi, how can I help?")
	})

	t.Run("pdf", func(t *testing.T) {
		export, err := uc.ExportHistory(ctx, "s1", entity.FormatPDF)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", export.ContentType)
		assert.True(t, strings.HasPrefix(string(export.Data), "%PDF"))
	})

	t.Run("docx", func(t *testing.T) {
		export, err := uc.ExportHistory(ctx, "s1", entity.FormatDOCX)
		require.NoError(t, err)
		assert.Equal(t, "chat-s1.docx", export.Filename)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", export.ContentType)
		assert.True(t, bytes.HasPrefix(export.Data, []byte("PK")), "docx is a zip package")

		zr, err := zip.NewReader(bytes.NewReader(export.Data), int64(len(export.Data)))
		require.NoError(t, err)
		f, err := zr.Open("word/document.xml")
		require.NoError(t, err)
		defer f.Close()
		body, err := io.ReadAll(f)
		require.NoError(t, err)

		assert.Contains(t, string(body), "Conversation s1")
		assert.Contains(t, string(body), "user: hello")
		assert.Contains(t, string(body), "assistant: hi, how can I help?")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := uc.ExportHistory(ctx, "s1", entity.ResultFormat("xlsx"))
		assert.ErrorIs(t, err, entity.ErrInvalidFormat)
	})
}

func TestTranscript(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	messages := []entity.ConversationMessage{
		{Role: entity.RoleUser, Content: "hi", Timestamp: ts},
		{Role: entity.RoleAssistant, Content: "hello", Timestamp: ts.Add(time.Second)},
	}

	assert.Equal(t,
		"[2024-03-01 12:30:00] user: hi\n[2024-03-01 12:30:01] assistant: hello",
		Transcript(messages),
	)
	assert.Empty(t, Transcript(nil))
}

package builder

import (
	"context"
	"testing"
	"time"

	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.EnableMocks = true
	cfg.IndexCfg.Dimensions = 64
	return cfg
}

func TestNewCore_MemoryBackendEndToEnd(t *testing.T) {
	ctx := context.Background()
	core, err := NewCore(ctx, mockConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer core.Close()

	doc, err := core.Ingestion.Ingest(ctx, entity.Source{
		Filename: "pods.md",
		Content:  []byte("# Pods\n\nKubernetes schedules pods onto worker nodes."),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusIndexed, doc.Status)

	answer, err := core.Rag.Query(ctx, entity.QueryRequest{Query: "how are pods scheduled"})
	require.NoError(t, err)
	assert.Positive(t, answer.RetrievedChunks)

	health := core.Rag.Health(ctx)
	assert.Equal(t, entity.HealthUp, health.Status)
	assert.Equal(t, "memory", health.Backend)

	resp, err := core.Chat.Chat(ctx, entity.ChatRequest{SessionID: "s1", Message: "how are pods scheduled?"})
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Len(t, core.Sessions.History("s1"), 2)
}

func TestCore_RunSessionSweeper(t *testing.T) {
	cfg := mockConfig()
	cfg.MemoryCfg.IdleTimeout = 20 * time.Millisecond
	cfg.MemoryCfg.SweepInterval = 5 * time.Millisecond

	obsCore, logs := observer.New(zap.InfoLevel)
	core, err := NewCore(context.Background(), cfg, zap.New(obsCore))
	require.NoError(t, err)
	defer core.Close()

	core.Sessions.AddMessage("s1", entity.RoleUser, "hello", nil)
	core.Sessions.AddMessage("s2", entity.RoleUser, "hello", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		core.RunSessionSweeper(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		removed := 0
		for _, entry := range logs.FilterMessage("expired chat sessions removed").All() {
			removed += int(entry.ContextMap()["removed"].(int64))
		}
		return removed == 2
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, core.Sessions.ListActiveSessions())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestCore_RunSessionSweeperDisabled(t *testing.T) {
	cfg := mockConfig()
	cfg.MemoryCfg.SweepInterval = 0

	core, err := NewCore(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer core.Close()

	done := make(chan struct{})
	go func() {
		core.RunSessionSweeper(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper should return immediately")
	}
}

func TestNewCore_RejectsUnknownStrategy(t *testing.T) {
	cfg := mockConfig()
	cfg.RetrievalCfg.DefaultStrategy = "FUZZY"

	_, err := NewCore(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	logger, err := setupLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = setupLogger("loud")
	assert.Error(t, err)
}

package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContext_WindowIsBoundedAndChronological(t *testing.T) {
	s := NewStore(Config{WindowSize: 3})

	for i := 0; i < 7; i++ {
		s.AddMessage("s1", entity.RoleUser, fmt.Sprintf("m%d", i), nil)
	}

	ctx := s.GetContext("s1", 0)
	require.Len(t, ctx, 3)
	assert.Equal(t, "m4", ctx[0].Content)
	assert.Equal(t, "m5", ctx[1].Content)
	assert.Equal(t, "m6", ctx[2].Content)

	assert.Len(t, s.GetContext("s1", 5), 5)
	assert.Len(t, s.GetContext("s1", 50), 7)
	assert.Len(t, s.History("s1"), 7)
}

func TestGetContext_UnknownSessionIsEmpty(t *testing.T) {
	s := NewStore(Config{})

	ctx := s.GetContext("missing", 10)
	assert.NotNil(t, ctx)
	assert.Empty(t, ctx)
	assert.Empty(t, s.History("missing"))
}

func TestGetContext_ReturnsCopies(t *testing.T) {
	s := NewStore(Config{})
	s.AddMessage("s1", entity.RoleUser, "original", nil)

	ctx := s.GetContext("s1", 10)
	ctx[0].Content = "mutated"

	assert.Equal(t, "original", s.GetContext("s1", 10)[0].Content)
}

func TestGetContext_MetadataIsNotShared(t *testing.T) {
	s := NewStore(Config{})
	s.AddMessage("s1", entity.RoleAssistant, "answer", map[string]any{
		entity.MetaIntent: "SEARCH_NEEDED",
		"sources":         []string{"a.md"},
		"timing":          map[string]any{"search_ms": 12},
	})

	got := s.GetContext("s1", 10)[0].Metadata
	got[entity.MetaIntent] = "GENERAL_CHAT"
	got["sources"].([]string)[0] = "evil.md"
	got["timing"].(map[string]any)["search_ms"] = 0

	history := s.History("s1")[0].Metadata
	history["added"] = true

	stored := s.History("s1")[0].Metadata
	assert.Equal(t, "SEARCH_NEEDED", stored[entity.MetaIntent])
	assert.Equal(t, []string{"a.md"}, stored["sources"])
	assert.Equal(t, 12, stored["timing"].(map[string]any)["search_ms"])
	assert.NotContains(t, stored, "added")
	assert.Equal(t, "Topics discussed: SEARCH_NEEDED", s.Summarize("s1"))
}

func TestAddMessage_ConcurrentAppendsAreNotLost(t *testing.T) {
	s := NewStore(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.AddMessage("shared", entity.RoleUser, fmt.Sprintf("u%d", i), nil)
		}(i)
		go func(i int) {
			defer wg.Done()
			s.AddMessage(fmt.Sprintf("own-%d", i), entity.RoleUser, "hi", nil)
			_ = s.GetContext("shared", 5)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.History("shared"), 50)
	assert.Len(t, s.ListActiveSessions(), 51)
}

func TestCleanupOldSessions_RemovesIdleSessions(t *testing.T) {
	s := NewStore(Config{IdleTimeout: 50 * time.Millisecond})

	s.AddMessage("idle", entity.RoleUser, "hello", nil)
	s.AddMessage("busy", entity.RoleUser, "hello", nil)

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		s.AddMessage("busy", entity.RoleUser, "still here", nil)
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, []string{"busy"}, s.ListActiveSessions())
	assert.Equal(t, 1, s.CleanupOldSessions())
	assert.Equal(t, 0, s.CleanupOldSessions())

	// an expired id starts over
	s.AddMessage("idle", entity.RoleUser, "back again", nil)
	history := s.History("idle")
	require.Len(t, history, 1)
	assert.Equal(t, "back again", history[0].Content)
}

func TestClearSession(t *testing.T) {
	s := NewStore(Config{})
	s.AddMessage("s1", entity.RoleUser, "hello", nil)
	s.AddMessage("s2", entity.RoleUser, "hello", nil)

	s.ClearSession("s1")
	s.ClearSession("never-existed")

	assert.Equal(t, []string{"s2"}, s.ListActiveSessions())
	assert.Empty(t, s.GetContext("s1", 10))
}

func TestSessionInfo(t *testing.T) {
	s := NewStore(Config{})

	_, err := s.SessionInfo("missing")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)

	s.AddMessage("s1", entity.RoleUser, "what is kubernetes?", nil)
	s.AddMessage("s1", entity.RoleAssistant, "a scheduler", map[string]any{
		entity.MetaIntent: "SEARCH_NEEDED",
		entity.MetaAction: "retrieve",
	})
	s.AddMessage("s1", entity.RoleAssistant, "hello", map[string]any{entity.MetaIntent: "GENERAL_CHAT"})
	s.AddMessage("s1", entity.RoleAssistant, "more", map[string]any{entity.MetaIntent: "SEARCH_NEEDED"})

	info, err := s.SessionInfo("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", info.SessionID)
	assert.Equal(t, 4, info.MessageCount)
	assert.False(t, info.LastActivity.Before(info.CreatedAt))
	assert.Equal(t, "Topics discussed: SEARCH_NEEDED, GENERAL_CHAT\nActions performed: retrieve", info.Summary)
}

func TestScratch(t *testing.T) {
	s := NewStore(Config{})

	assert.Empty(t, s.Scratch("s1"))

	s.SetScratch("s1", "last_intent", "SEARCH_NEEDED")
	scratch := s.Scratch("s1")
	assert.Equal(t, "SEARCH_NEEDED", scratch["last_intent"])

	scratch["last_intent"] = "mutated"
	assert.Equal(t, "SEARCH_NEEDED", s.Scratch("s1")["last_intent"])

	s.AddMessage("s1", entity.RoleUser, "hello", nil)
	assert.Equal(t, "SEARCH_NEEDED", s.Scratch("s1")["last_intent"])
}

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/erkion1127/ds-ai2/internal/entity"
	pkgRetry "github.com/erkion1127/ds-ai2/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(url string) config.OllamaConfig {
	return config.OllamaConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			Url:                   url,
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
		},
		EmbeddingModel: "nomic-embed-text",
		ChatModel:      "llama3.1",
		Temperature:    0.2,
		MaxTokens:      128,
		Retry:          pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req entity.OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, []string{"alpha", "beta"}, req.Input)

		_ = json.NewEncoder(w).Encode(entity.OllamaEmbedResponse{Embeddings: [][]float32{{1, 0}, {0, 1}}})
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())
	vectors, err := c.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(entity.OllamaEmbedResponse{Embeddings: [][]float32{{1, 0}}})
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())
	_, err := c.Embed(context.Background(), []string{"alpha", "beta"})
	assert.ErrorContains(t, err, "got 1 embeddings for 2 texts")
}

func TestChat_SendsOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req entity.OllamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1", req.Model)
		assert.False(t, req.Stream)
		assert.InDelta(t, 0.2, req.Options.Temperature, 1e-9)
		assert.Equal(t, 128, req.Options.NumPredict)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, entity.RoleSystem, req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(entity.OllamaChatResponse{
			Message: entity.ChatTurn{Role: entity.RoleAssistant, Content: "hello there"},
			Done:    true,
		})
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())
	answer, err := c.Chat(context.Background(), []entity.ChatTurn{
		{Role: entity.RoleSystem, Content: "be brief"},
		{Role: entity.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", answer)
}

func TestChat_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(entity.OllamaChatResponse{Message: entity.ChatTurn{Content: "recovered"}})
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())
	answer, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.EqualValues(t, 3, calls.Load())
}

func TestChat_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestPing_ReportsMissingModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.1:latest"}]}`))
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nomic-embed-text")
	assert.NotContains(t, err.Error(), "llama3.1")
}

func TestMockConnector_EmbeddingsAreDeterministicAndNormalized(t *testing.T) {
	m := NewMockConnector(16, zap.NewNop())

	vectors, err := m.Embed(context.Background(), []string{"kubernetes cluster", "kubernetes cluster", ""})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, vectors[0], vectors[1])

	for _, v := range vectors {
		require.Len(t, v, 16)
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, norm, 1e-5)
	}
}

func TestMockConnector_CannedVerdicts(t *testing.T) {
	m := NewMockConnector(8, zap.NewNop())
	ctx := context.Background()

	answer, err := m.Generate(ctx, "Reply [SEARCH_NEEDED] or [NO_SEARCH].")
	require.NoError(t, err)
	assert.Equal(t, "[SEARCH_NEEDED]", answer)

	answer, err = m.Generate(ctx, "Reply with VALID or INVALID.")
	require.NoError(t, err)
	assert.Equal(t, "VALID", answer)

	answer, err = m.Generate(ctx, "Context:\nfoo\n\nQuestion: what is foo?\n\nAnswer:")
	require.NoError(t, err)
	assert.Equal(t, "[MOCK] Response to: what is foo?", answer)
}

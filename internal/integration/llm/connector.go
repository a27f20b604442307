package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/integration/common"
	pkghttp "github.com/erkion1127/ds-ai2/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	embedEndpoint = "/api/embed"
	chatEndpoint  = "/api/chat"
	tagsEndpoint  = "/api/tags"
)

// Connector talks to an Ollama server for both embeddings and chat completions
type Connector struct {
	config    config.OllamaConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.OllamaConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

func (c *Connector) Name() string {
	return "ollama/" + c.config.ChatModel
}

// Embed returns one vector per input text, in input order
func (c *Connector) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctxzap.Debug(ctx, "embedding texts via ollama",
		zap.String("model", c.config.EmbeddingModel),
		zap.Int("count", len(texts)),
	)

	req := &entity.OllamaEmbedRequest{
		Model: c.config.EmbeddingModel,
		Input: texts,
	}

	resp, err := retry.DoWithData(func() (*entity.OllamaEmbedResponse, error) {
		var out entity.OllamaEmbedResponse
		if err := c.connector.DoRequest(ctx, http.MethodPost, embedEndpoint, req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, c.config.Retry.ToRetryOptions(ctx, pkghttp.IsRetryable)...)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	return resp.Embeddings, nil
}

// Generate sends a single user prompt
func (c *Connector) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []entity.ChatTurn{{Role: entity.RoleUser, Content: prompt}})
}

// Chat sends role-tagged turns and returns the assistant reply
func (c *Connector) Chat(ctx context.Context, turns []entity.ChatTurn) (string, error) {
	ctxzap.Info(ctx, "generating response via ollama",
		zap.String("model", c.config.ChatModel),
		zap.Int("turns", len(turns)),
	)

	req := &entity.OllamaChatRequest{
		Model:    c.config.ChatModel,
		Messages: turns,
		Stream:   false,
		Options: entity.OllamaOptions{
			Temperature: c.config.Temperature,
			NumPredict:  c.config.MaxTokens,
		},
	}

	resp, err := retry.DoWithData(func() (*entity.OllamaChatResponse, error) {
		var out entity.OllamaChatResponse
		if err := c.connector.DoRequest(ctx, http.MethodPost, chatEndpoint, req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, c.config.Retry.ToRetryOptions(ctx, pkghttp.IsRetryable)...)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	ctxzap.Info(ctx, "response generated successfully", zap.Int("result_length", len(resp.Message.Content)))

	return resp.Message.Content, nil
}

// Ping checks that the server is up and both configured models are pulled
func (c *Connector) Ping(ctx context.Context) error {
	var resp entity.OllamaTagsResponse
	if err := c.connector.DoRequest(ctx, http.MethodGet, tagsEndpoint, nil, &resp); err != nil {
		return fmt.Errorf("ollama tags: %w", err)
	}

	var errs []error
	for _, model := range []string{c.config.ChatModel, c.config.EmbeddingModel} {
		if !hasModel(resp, model) {
			errs = append(errs, fmt.Errorf("model %q is not available", model))
		}
	}

	return errors.Join(errs...)
}

// hasModel matches names with or without the ":latest" style tag suffix
func hasModel(tags entity.OllamaTagsResponse, name string) bool {
	for _, m := range tags.Models {
		if m.Name == name || m.Name == name+":latest" {
			return true
		}
	}
	return false
}

// Package embedding turns text into fixed-length vectors through a remote provider.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxBatchSize = 64
	defaultConcurrency  = 4
)

type Config struct {
	// MaxBatchSize caps the number of texts sent in a single provider call
	MaxBatchSize int
	// Concurrency bounds in-flight provider calls when a batch is split
	Concurrency int
	// Dimensions, when positive, is the vector length every response must have
	Dimensions int
}

type Service struct {
	provider Provider
	cfg      Config
}

func NewService(provider Provider, cfg Config) *Service {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	return &Service{
		provider: provider,
		cfg:      cfg,
	}
}

// Embed returns the vector for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order. Either every text is embedded or an
// error wrapping entity.ErrEmbeddingFailure is returned.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	results := make([][]float32, len(texts))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for from := 0; from < len(texts); from += s.cfg.MaxBatchSize {
		from := from
		to := min(from+s.cfg.MaxBatchSize, len(texts))
		g.Go(func() error {
			vectors, err := s.provider.Embed(gCtx, texts[from:to])
			if err != nil {
				return fmt.Errorf("%w: texts %d-%d: %w", entity.ErrEmbeddingFailure, from, to-1, err)
			}
			if len(vectors) != to-from {
				return fmt.Errorf("%w: provider returned %d vectors for %d texts", entity.ErrEmbeddingFailure, len(vectors), to-from)
			}
			copy(results[from:to], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.checkDimensions(results); err != nil {
		return nil, err
	}

	ctxzap.Debug(ctx, "texts embedded",
		zap.Int("count", len(texts)),
		zap.Int("dimensions", len(results[0])),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return results, nil
}

// EmbedChunks embeds all chunk contents and assigns vectors by position.
// Chunks are left untouched when any part of the batch fails.
func (s *Service) EmbedChunks(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := s.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	return nil
}

func (s *Service) checkDimensions(vectors [][]float32) error {
	want := s.cfg.Dimensions
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at position %d", entity.ErrEmbeddingFailure, i)
		}
		if want <= 0 {
			want = len(v)
		}
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", entity.ErrEmbeddingFailure, i, len(v), want)
		}
	}
	return nil
}

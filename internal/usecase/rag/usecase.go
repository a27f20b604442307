package rag

import (
	"context"
	"strings"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/logger"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const defaultTopK = 5

// Query stages reported in StageError
const (
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageGenerate = "generate"
)

type Config struct {
	DefaultTopK     int
	DefaultStrategy entity.SearchStrategy
}

// RagUsecase answers one query by composing retrieval with generation
type RagUsecase struct {
	embedder  Embedder
	index     Index
	generator Generator
	cfg       Config
	logger    *zap.Logger
}

func NewUsecase(
	embedder Embedder,
	index Index,
	generator Generator,
	cfg Config,
	logger *zap.Logger,
) *RagUsecase {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = defaultTopK
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = entity.StrategyVectorOnly
	}
	return &RagUsecase{
		embedder:  embedder,
		index:     index,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// DefaultStrategy is the strategy used when a request names none
func (uc *RagUsecase) DefaultStrategy() entity.SearchStrategy {
	return uc.cfg.DefaultStrategy
}

// Query embeds, retrieves and generates. With nothing retrieved the answer comes from the
// direct prompt and RetrievedChunks is 0.
func (uc *RagUsecase) Query(ctx context.Context, req entity.QueryRequest) (*entity.RagAnswer, error) {
	ctx = logger.WithFallback(ctx, uc.logger)
	if strings.TrimSpace(req.Query) == "" {
		return nil, entity.ErrMissingField
	}
	if req.TopK <= 0 {
		req.TopK = uc.cfg.DefaultTopK
	}
	if req.Strategy == "" {
		req.Strategy = uc.cfg.DefaultStrategy
	}

	started := time.Now()
	var timings entity.QueryTimings

	chunks, err := uc.retrieve(ctx, req, &timings)
	if err != nil {
		return nil, err
	}

	contextText := JoinContext(chunks)
	prompt := DirectPrompt(req.Query)
	if len(chunks) == 0 {
		ctxzap.Warn(ctx, "no chunks retrieved, answering without context")
	} else {
		prompt = ContextPrompt(contextText, req.Query)
	}

	step := time.Now()
	answer, err := uc.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, entity.NewStageError(entity.ErrQueryFailure, StageGenerate, err)
	}
	timings.GenerationMs = time.Since(step).Milliseconds()
	timings.TotalMs = time.Since(started).Milliseconds()

	ctxzap.Info(ctx, "query answered",
		zap.String("strategy", string(req.Strategy)),
		zap.Int("retrieved_chunks", len(chunks)),
		zap.Int64("embedding_ms", timings.EmbeddingMs),
		zap.Int64("search_ms", timings.SearchMs),
		zap.Int64("generation_ms", timings.GenerationMs),
		zap.Int64("total_ms", timings.TotalMs),
	)

	return &entity.RagAnswer{
		Query:           req.Query,
		Answer:          answer,
		Context:         contextText,
		Sources:         Sources(chunks),
		RetrievedChunks: len(chunks),
		Strategy:        req.Strategy,
		Timings:         timings,
	}, nil
}

// RetrieveContext is the retrieval half of Query, without generation
func (uc *RagUsecase) RetrieveContext(ctx context.Context, query string, topK int) (*entity.RetrievedContext, error) {
	ctx = logger.WithFallback(ctx, uc.logger)
	if topK <= 0 {
		topK = uc.cfg.DefaultTopK
	}

	var timings entity.QueryTimings
	chunks, err := uc.retrieve(ctx, entity.QueryRequest{Query: query, TopK: topK, Strategy: uc.cfg.DefaultStrategy}, &timings)
	if err != nil {
		return nil, err
	}

	return &entity.RetrievedContext{
		Chunks:  chunks,
		Context: JoinContext(chunks),
		Sources: Sources(chunks),
	}, nil
}

func (uc *RagUsecase) retrieve(ctx context.Context, req entity.QueryRequest, timings *entity.QueryTimings) ([]entity.ScoredChunk, error) {
	step := time.Now()
	vector, err := uc.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, entity.NewStageError(entity.ErrQueryFailure, StageEmbed, err)
	}
	timings.EmbeddingMs = time.Since(step).Milliseconds()

	step = time.Now()
	var chunks []entity.ScoredChunk
	switch req.Strategy {
	case entity.StrategyHybrid:
		chunks, err = uc.index.HybridSearch(ctx, req.Query, vector, req.TopK, vectorstore.Filters(req.Filters))
	default:
		// BM25_ONLY has no dedicated path and ranks by vector similarity
		chunks, err = uc.index.Search(ctx, req.Query, vector, req.TopK, vectorstore.Filters(req.Filters))
	}
	if err != nil {
		return nil, entity.NewStageError(entity.ErrQueryFailure, StageSearch, err)
	}
	timings.SearchMs = time.Since(step).Milliseconds()

	if req.MinScore > 0 {
		kept := chunks[:0]
		for _, c := range chunks {
			if c.Score >= req.MinScore {
				kept = append(kept, c)
			}
		}
		chunks = kept
	}

	return chunks, nil
}

// Health reports index size and provider reachability. Failures degrade the status rather
// than erroring.
func (uc *RagUsecase) Health(ctx context.Context) *entity.HealthStatus {
	ctx = logger.WithFallback(ctx, uc.logger)
	status := &entity.HealthStatus{
		Status:    entity.HealthUp,
		Backend:   name(uc.index),
		Generator: name(uc.generator),
	}

	count, err := uc.index.Count(ctx)
	if err != nil {
		ctxzap.Warn(ctx, "index health check failed", zap.Error(err))
		status.Status = entity.HealthDegraded
	}
	status.IndexedDocs = count

	if p, ok := uc.generator.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			ctxzap.Warn(ctx, "generator health check failed", zap.Error(err))
			status.Status = entity.HealthDegraded
		}
	}

	return status
}

func name(v any) string {
	if n, ok := v.(vectorstore.Named); ok {
		return n.Name()
	}
	return "unknown"
}

package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/erkion1127/ds-ai2/internal/chunker"
	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/erkion1127/ds-ai2/internal/embedding"
	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/extract"
	"github.com/erkion1127/ds-ai2/internal/integration/common"
	"github.com/erkion1127/ds-ai2/internal/integration/llm"
	"github.com/erkion1127/ds-ai2/internal/memory"
	"github.com/erkion1127/ds-ai2/internal/pkg/formatter"
	"github.com/erkion1127/ds-ai2/internal/usecase/chat"
	"github.com/erkion1127/ds-ai2/internal/usecase/ingestion"
	"github.com/erkion1127/ds-ai2/internal/usecase/rag"
	"github.com/erkion1127/ds-ai2/internal/vectorstore"
	"github.com/erkion1127/ds-ai2/internal/vectorstore/elasticsearch"
	vsmemory "github.com/erkion1127/ds-ai2/internal/vectorstore/memory"
	"github.com/erkion1127/ds-ai2/internal/vectorstore/postgres"
	pkghttp "github.com/erkion1127/ds-ai2/pkg/http"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unidoc/unioffice/common/license"
	"go.uber.org/zap"
)

// LLM is the model backend: embeddings plus generation
type LLM interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Generate(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, turns []entity.ChatTurn) (string, error)
}

// Core holds the wired RAG components shared by the API server, the bot and the CLI
type Core struct {
	Cfg    *config.Config
	Logger *zap.Logger

	LLM       LLM
	Index     vectorstore.Index
	Ingestion *ingestion.IngestionUsecase
	Rag       *rag.RagUsecase
	Sessions  *memory.Store
	Chat      *chat.ChatUsecase

	db *pgxpool.Pool
}

// Close releases the database pool, if any
func (c *Core) Close() {
	if c.db != nil {
		c.Logger.Info("closing database connections")
		c.db.Close()
	}
}

// RunSessionSweeper drops idle conversation sessions every MemoryCfg.SweepInterval
// until ctx is done. A non-positive interval disables it.
func (c *Core) RunSessionSweeper(ctx context.Context) {
	interval := c.Cfg.MemoryCfg.SweepInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sessions.CleanupOldSessions(); removed > 0 {
				c.Logger.Info("expired chat sessions removed", zap.Int("removed", removed))
			}
		}
	}
}

// BuildCore loads the configuration for environment and wires every component
func BuildCore(ctx context.Context, environment string) (*Core, error) {
	cfg, err := config.Load(environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	return NewCore(ctx, cfg, logger)
}

// NewCore wires every component from an already loaded configuration
func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Core, error) {
	core := &Core{Cfg: cfg, Logger: logger}

	if cfg.UnidocLicenseKey != "" {
		if err := license.SetMeteredKey(cfg.UnidocLicenseKey); err != nil {
			logger.Warn("unioffice license rejected, DOCX ingestion will fail", zap.Error(err))
		}
	}

	if cfg.EnableMocks {
		logger.Info("using mock connector for the language model")
		core.LLM = llm.NewMockConnector(cfg.IndexCfg.Dimensions, logger)
	} else {
		logger.Info("using ollama connector", zap.String("url", cfg.OllamaCfg.Url))
		core.LLM = llm.NewConnector(cfg.OllamaCfg, logger)
	}

	index, err := core.setupIndex(ctx)
	if err != nil {
		return nil, err
	}
	core.Index = vectorstore.NewDegradingIndex(index, logger)
	logger.Info("retrieval index initialized", zap.String("backend", vectorstore.BackendName(index)))

	strategy, err := entity.ParseSearchStrategy(cfg.RetrievalCfg.DefaultStrategy, entity.StrategyVectorOnly)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("retrieval default strategy: %w", err)
	}

	embedder := embedding.NewService(core.LLM, embedding.Config{
		MaxBatchSize: cfg.EmbeddingCfg.MaxBatchSize,
		Concurrency:  cfg.EmbeddingCfg.Concurrency,
		Dimensions:   cfg.IndexCfg.Dimensions,
	})

	core.Ingestion = ingestion.NewUsecase(
		extract.New(),
		chunker.New(cfg.ChunkingCfg.ChunkSize, cfg.ChunkingCfg.Overlap),
		embedder,
		core.Index,
		ingestion.Config{BatchSize: cfg.ChunkingCfg.BatchSize},
		logger,
	)

	core.Rag = rag.NewUsecase(
		embedder,
		core.Index,
		core.LLM,
		rag.Config{DefaultTopK: cfg.RetrievalCfg.DefaultTopK, DefaultStrategy: strategy},
		logger,
	)

	core.Sessions = memory.NewStore(memory.Config{
		WindowSize:  cfg.MemoryCfg.WindowSize,
		IdleTimeout: cfg.MemoryCfg.IdleTimeout,
	})

	workflow := chat.NewWorkflow(core.Sessions, core.Rag, core.LLM, chat.WorkflowConfig{
		RetrievalTopK: cfg.ChatCfg.RetrievalTopK,
		WindowSize:    cfg.MemoryCfg.WindowSize,
		Validate:      cfg.ChatCfg.Validate,
	})
	core.Chat = chat.NewUsecase(workflow, core.Sessions, core.LLM, formatter.NewFactory(), cfg.MemoryCfg.WindowSize, logger)

	logger.Info("use cases initialized")

	return core, nil
}

func (c *Core) setupIndex(ctx context.Context) (vectorstore.Index, error) {
	cfg := c.Cfg

	switch cfg.IndexCfg.Backend {
	case config.IndexBackendElasticsearch:
		var opts []pkghttp.HttpOpts
		if cfg.ElasticsearchCfg.Username != "" {
			opts = append(opts, pkghttp.WithBasicAuth(cfg.ElasticsearchCfg.Username, cfg.ElasticsearchCfg.Password))
		}
		index := elasticsearch.NewIndex(
			common.NewBaseConnector(cfg.ElasticsearchCfg.HTTPClientConfig, c.Logger, opts...),
			elasticsearch.Config{
				IndexName:          cfg.ElasticsearchCfg.IndexName,
				Dimensions:         cfg.IndexCfg.Dimensions,
				SimilarityBaseline: cfg.IndexCfg.SimilarityBaseline,
			},
		)
		// an unreachable cluster is not fatal: the index is created lazily on first write
		if err := index.EnsureIndex(ctx); err != nil {
			c.Logger.Warn("elasticsearch index not ready", zap.Error(err))
		}
		return index, nil

	case config.IndexBackendPostgres:
		c.Logger.Info("running database migrations")
		if err := postgres.RunMigrations(cfg.PostgresCfg.MigrationsPath, cfg.PostgresCfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		c.Logger.Info("database migrations completed successfully")

		db, err := setupDatabase(ctx, cfg.PostgresCfg, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}
		c.db = db
		return postgres.NewIndex(db, cfg.IndexCfg.SimilarityBaseline), nil

	default:
		return vsmemory.NewIndex(cfg.IndexCfg.SimilarityBaseline), nil
	}
}

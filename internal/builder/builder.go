package builder

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/erkion1127/ds-ai2/internal/api"
	chatapi "github.com/erkion1127/ds-ai2/internal/api/chat"
	ingestapi "github.com/erkion1127/ds-ai2/internal/api/ingest"
	queryapi "github.com/erkion1127/ds-ai2/internal/api/query"
	"github.com/erkion1127/ds-ai2/internal/pkg/validator"
	"github.com/erkion1127/ds-ai2/internal/telegram"
	"go.uber.org/zap"
)

func environmentFlag() string {
	env := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()
	return *env
}

// Build wires the HTTP API server
func Build() (*App, error) {
	core, err := BuildCore(context.Background(), environmentFlag())
	if err != nil {
		return nil, err
	}

	cfg := core.Cfg
	logger := core.Logger

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	strategy := core.Rag.DefaultStrategy()
	requestValidator := validator.NewValidator(cfg.FileUploadCfg)

	handlers := api.Handlers{
		Ingest: ingestapi.NewHandler(core.Ingestion, cfg.FileUploadCfg, requestValidator),
		Query:  queryapi.NewHandler(core.Rag, requestValidator, strategy),
		Chat:   chatapi.NewHandler(core.Chat, requestValidator),
	}
	logger.Info("API handlers initialized")

	router := api.SetupRouter(handlers, cfg.OllamaCfg.RequestTimeout+30*time.Second, cfg.CORSAllowedOrigins, logger)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.OllamaCfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		core:   core,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (telegram.Bot, *Core, error) {
	core, err := BuildCore(context.Background(), environmentFlag())
	if err != nil {
		return nil, nil, err
	}

	core.Logger.Info("Building Telegram bot",
		zap.String("environment", core.Cfg.Environment),
	)

	bot, err := telegram.NewBot(&core.Cfg.TelegramCfg, core.Chat, core.Logger)
	if err != nil {
		core.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	core.Logger.Info("Telegram bot built successfully")

	return bot, core, nil
}

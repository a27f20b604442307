package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/erkion1127/ds-ai2/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Index backends
const (
	IndexBackendMemory        = "memory"
	IndexBackendElasticsearch = "elasticsearch"
	IndexBackendPostgres      = "postgres"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	// Browser origins allowed to call the API
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// External service configurations
	OllamaCfg        OllamaConfig        `envPrefix:"OLLAMA_"`
	ElasticsearchCfg ElasticsearchConfig `envPrefix:"ELASTICSEARCH_"`
	PostgresCfg      PostgresConfig      `envPrefix:"POSTGRES_"`

	// RAG pipeline configuration
	IndexCfg     IndexConfig     `envPrefix:"INDEX_"`
	ChunkingCfg  ChunkingConfig  `envPrefix:"CHUNKING_"`
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	RetrievalCfg RetrievalConfig `envPrefix:"RETRIEVAL_"`
	MemoryCfg    MemoryConfig    `envPrefix:"MEMORY_"`
	ChatCfg      ChatConfig      `envPrefix:"CHAT_"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Metered key for the unioffice DOCX reader; DOCX ingestion fails without one
	UnidocLicenseKey string `env:"UNIDOC_LICENSE_API_KEY"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
}

// OllamaConfig configures both the embedding and the generation provider
type OllamaConfig struct {
	HTTPClientConfig
	EmbeddingModel string               `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	ChatModel      string               `env:"CHAT_MODEL" envDefault:"llama3.1"`
	Temperature    float64              `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens      int                  `env:"MAX_TOKENS" envDefault:"0"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type ElasticsearchConfig struct {
	HTTPClientConfig
	IndexName string `env:"INDEX_NAME" envDefault:"rag_chunks"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
}

type PostgresConfig struct {
	DatabaseURL       string        `env:"DATABASE_URL"`
	MigrationsPath    string        `env:"MIGRATIONS_PATH" envDefault:"file://internal/vectorstore/postgres/migrations"`
	MaxConns          int           `env:"MAX_CONNS" envDefault:"25"`
	MinConns          int           `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime   time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

type IndexConfig struct {
	Backend string `env:"BACKEND" envDefault:"memory"`
	// Dimensions of the embedding vectors stored in the index
	Dimensions int `env:"DIMENSIONS" envDefault:"768"`
	// Cosine similarity a chunk must exceed to enter hybrid results without a lexical match
	SimilarityBaseline float64 `env:"SIMILARITY_BASELINE" envDefault:"0"`
}

type ChunkingConfig struct {
	ChunkSize int `env:"SIZE" envDefault:"500"`
	Overlap   int `env:"OVERLAP" envDefault:"100"`
	BatchSize int `env:"BATCH_SIZE" envDefault:"10"`
}

type EmbeddingConfig struct {
	MaxBatchSize int `env:"MAX_BATCH_SIZE" envDefault:"64"`
	Concurrency  int `env:"CONCURRENCY" envDefault:"4"`
}

type RetrievalConfig struct {
	DefaultTopK     int    `env:"DEFAULT_TOP_K" envDefault:"5"`
	DefaultStrategy string `env:"DEFAULT_STRATEGY" envDefault:"VECTOR_ONLY"`
}

type MemoryConfig struct {
	WindowSize    int           `env:"WINDOW_SIZE" envDefault:"10"`
	IdleTimeout   time.Duration `env:"IDLE_TIMEOUT" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
}

type ChatConfig struct {
	RetrievalTopK int  `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	Validate      bool `env:"VALIDATE" envDefault:"true"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	TLSHandshakeTimeout   time.Duration `env:"TLS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	InsecureSkipVerify    bool          `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`
	MaxIdleConns          int           `env:"MAX_IDLE_CONNS" envDefault:"100"`
	MaxIdleConnsPerHost   int           `env:"MAX_IDLE_CONNS_PER_HOST" envDefault:"10"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"20971520"`   // 20 MiB
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads the env file for the given environment and parses the configuration
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration produced by the envDefault tags alone
func Default() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	cfg.Environment = "test"
	return cfg
}

func validateConfig(cfg *Config) error {
	var errors []string

	switch cfg.IndexCfg.Backend {
	case IndexBackendMemory:
	case IndexBackendElasticsearch:
		if cfg.ElasticsearchCfg.Url == "" {
			errors = append(errors, "ELASTICSEARCH_SERVICE_URL is required for the elasticsearch backend")
		}
	case IndexBackendPostgres:
		if cfg.PostgresCfg.DatabaseURL == "" {
			errors = append(errors, "POSTGRES_DATABASE_URL is required for the postgres backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("INDEX_BACKEND must be one of memory, elasticsearch, postgres, got %q", cfg.IndexCfg.Backend))
	}

	if !cfg.EnableMocks && cfg.OllamaCfg.Url == "" {
		errors = append(errors, "OLLAMA_SERVICE_URL is required unless ENABLE_MOCKS is set")
	}

	if cfg.IndexCfg.Dimensions < 1 {
		errors = append(errors, fmt.Sprintf("INDEX_DIMENSIONS must be positive, got %d", cfg.IndexCfg.Dimensions))
	}

	if cfg.ChunkingCfg.ChunkSize < 1 {
		errors = append(errors, fmt.Sprintf("CHUNKING_SIZE must be positive, got %d", cfg.ChunkingCfg.ChunkSize))
	}

	if cfg.ChunkingCfg.Overlap < 0 || cfg.ChunkingCfg.Overlap >= cfg.ChunkingCfg.ChunkSize {
		errors = append(errors, fmt.Sprintf("CHUNKING_OVERLAP must be between 0 and CHUNKING_SIZE(%d), got %d", cfg.ChunkingCfg.ChunkSize, cfg.ChunkingCfg.Overlap))
	}

	if cfg.ChunkingCfg.BatchSize < 1 || cfg.ChunkingCfg.BatchSize > 500 {
		errors = append(errors, fmt.Sprintf("CHUNKING_BATCH_SIZE must be between 1 and 500, got %d", cfg.ChunkingCfg.BatchSize))
	}

	if cfg.MemoryCfg.WindowSize < 1 {
		errors = append(errors, fmt.Sprintf("MEMORY_WINDOW_SIZE must be positive, got %d", cfg.MemoryCfg.WindowSize))
	}

	if cfg.MemoryCfg.IdleTimeout <= 0 {
		errors = append(errors, "MEMORY_IDLE_TIMEOUT must be positive")
	}

	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if cfg.PostgresCfg.MaxConns < 1 || cfg.PostgresCfg.MaxConns > 200 {
		errors = append(errors, fmt.Sprintf("POSTGRES_MAX_CONNS must be between 1 and 200, got %d", cfg.PostgresCfg.MaxConns))
	}

	if cfg.PostgresCfg.MinConns < 0 || cfg.PostgresCfg.MinConns > cfg.PostgresCfg.MaxConns {
		errors = append(errors, fmt.Sprintf("POSTGRES_MIN_CONNS must be between 0 and POSTGRES_MAX_CONNS(%d), got %d", cfg.PostgresCfg.MaxConns, cfg.PostgresCfg.MinConns))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}

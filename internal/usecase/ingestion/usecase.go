package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const defaultBatchSize = 10

// Pipeline stages reported in StageError
const (
	StageRead    = "read"
	StageExtract = "extract"
	StageEmbed   = "embed"
	StageIndex   = "index"
	StageDelete  = "delete"
)

type Config struct {
	// BatchSize bounds the number of chunks per index write
	BatchSize int
}

// IngestionUsecase turns raw documents into indexed chunks
type IngestionUsecase struct {
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	index     Index
	cfg       Config
	logger    *zap.Logger
}

func NewUsecase(
	extractor Extractor,
	chunker Chunker,
	embedder Embedder,
	index Index,
	cfg Config,
	logger *zap.Logger,
) *IngestionUsecase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &IngestionUsecase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		cfg:       cfg,
		logger:    logger,
	}
}

// IngestFile reads a file from disk and ingests it
func (uc *IngestionUsecase) IngestFile(ctx context.Context, path string) (*entity.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, entity.NewStageError(entity.ErrIngestionFailure, StageRead, err)
	}

	return uc.Ingest(ctx, entity.Source{
		Filename: filepath.Base(path),
		Path:     path,
		Content:  content,
	})
}

// Ingest runs extract, chunk, embed and index strictly in order. On failure the returned
// document (when one was created) is FAILED and the error is a StageError.
func (uc *IngestionUsecase) Ingest(ctx context.Context, src entity.Source) (*entity.Document, error) {
	ctx = logger.WithFallback(ctx, uc.logger)
	started := time.Now()

	ctxzap.Info(ctx, "ingesting document",
		zap.String("filename", src.Filename),
		zap.Int("size", len(src.Content)),
	)

	text, docType, err := uc.extractor.Extract(src.Filename, src.Content)
	if err != nil {
		return nil, entity.NewStageError(entity.ErrIngestionFailure, StageExtract, err)
	}

	hash := sha256.Sum256([]byte(text))
	source := src.Path
	if source == "" {
		source = src.Filename
	}

	doc := entity.NewDocument(uuid.New().String(), src.Filename, source, text, hex.EncodeToString(hash[:]), docType, int64(len(src.Content)))
	for k, v := range src.Metadata {
		doc.Metadata[k] = v
	}

	ctxzap.AddFields(ctx, zap.String("document_id", doc.ID))

	chunks := uc.chunker.Chunk(doc)
	doc.ChunkCount = len(chunks)
	ctxzap.Info(ctx, "document chunked", zap.Int("chunks", len(chunks)))

	if err := uc.embedder.EmbedChunks(ctx, chunks); err != nil {
		return uc.fail(ctx, doc, StageEmbed, err)
	}

	for start := 0; start < len(chunks); start += uc.cfg.BatchSize {
		end := min(start+uc.cfg.BatchSize, len(chunks))
		if err := uc.index.UpsertBatch(ctx, chunks[start:end]); err != nil {
			return uc.fail(ctx, doc, StageIndex, fmt.Errorf("chunks %d-%d: %w", start, end-1, err))
		}
		ctxzap.Debug(ctx, "indexed chunk batch",
			zap.Int("indexed", end),
			zap.Int("total", len(chunks)),
		)
	}

	doc.SetStatus(entity.DocumentStatusIndexed)

	ctxzap.Info(ctx, "document indexed successfully",
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(started)),
	)

	return doc, nil
}

// DeleteDocument removes every chunk of the document from the index
func (uc *IngestionUsecase) DeleteDocument(ctx context.Context, documentID string) error {
	ctx = logger.WithFallback(ctx, uc.logger)
	if documentID == "" {
		return entity.ErrMissingField
	}

	if err := uc.index.DeleteByDocumentID(ctx, documentID); err != nil {
		return entity.NewStageError(entity.ErrIngestionFailure, StageDelete, err)
	}

	ctxzap.Info(ctx, "document deleted", zap.String("document_id", documentID))
	return nil
}

func (uc *IngestionUsecase) fail(ctx context.Context, doc *entity.Document, stage string, err error) (*entity.Document, error) {
	doc.SetStatus(entity.DocumentStatusFailed)

	ctxzap.Error(ctx, "document ingestion failed",
		zap.String("stage", stage),
		zap.Error(err),
	)

	return doc, entity.NewStageError(entity.ErrIngestionFailure, stage, err)
}

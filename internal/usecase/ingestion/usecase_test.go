package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erkion1127/ds-ai2/internal/chunker"
	"github.com/erkion1127/ds-ai2/internal/embedding"
	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/erkion1127/ds-ai2/internal/extract"
	"github.com/erkion1127/ds-ai2/internal/integration/llm"
	"github.com/erkion1127/ds-ai2/internal/vectorstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const dims = 16

type failingProvider struct{}

func (failingProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

// recordingIndex wraps the memory index, recording batch sizes and failing on demand
type recordingIndex struct {
	*memory.Index
	batches   []int
	failAfter int
}

func (r *recordingIndex) UpsertBatch(ctx context.Context, chunks []entity.Chunk) error {
	if r.failAfter > 0 && len(r.batches) >= r.failAfter {
		return errors.New("index write rejected")
	}
	r.batches = append(r.batches, len(chunks))
	return r.Index.UpsertBatch(ctx, chunks)
}

func longDocument(sentences int) string {
	var sb strings.Builder
	for i := 0; i < sentences; i++ {
		sb.WriteString("Kubernetes schedules containers across a cluster of worker nodes. ")
	}
	return sb.String()
}

func newUsecase(t *testing.T, provider embedding.Provider, index Index, batchSize int) *IngestionUsecase {
	t.Helper()
	return NewUsecase(
		extract.New(),
		chunker.New(200, 40),
		embedding.NewService(provider, embedding.Config{Dimensions: dims}),
		index,
		Config{BatchSize: batchSize},
		zaptest.NewLogger(t),
	)
}

func TestIngest_IndexesAllChunks(t *testing.T) {
	idx := &recordingIndex{Index: memory.NewIndex(0)}
	uc := newUsecase(t, llm.NewMockConnector(dims, zap.NewNop()), idx, 3)

	doc, err := uc.Ingest(context.Background(), entity.Source{
		Filename: "guide.md",
		Content:  []byte(longDocument(20)),
		Metadata: map[string]any{"team": "platform"},
	})
	require.NoError(t, err)

	assert.Equal(t, entity.DocumentStatusIndexed, doc.Status)
	assert.Equal(t, entity.DocumentTypeMarkdown, doc.Type)
	assert.Equal(t, "guide.md", doc.Source)
	assert.Len(t, doc.ContentHash, 64)
	assert.Equal(t, "platform", doc.Metadata["team"])

	total := 0
	for _, n := range idx.batches {
		assert.LessOrEqual(t, n, 3)
		total += n
	}
	assert.Greater(t, len(idx.batches), 1)
	assert.Equal(t, total, doc.ChunkCount)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, total, count)

	ok, err := idx.Exists(context.Background(), entity.ChunkID(doc.ID, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIngest_DuplicateBytesCreateSeparateDocuments(t *testing.T) {
	idx := memory.NewIndex(0)
	uc := newUsecase(t, llm.NewMockConnector(dims, zap.NewNop()), idx, 10)
	src := entity.Source{Filename: "notes.txt", Content: []byte(longDocument(8))}

	first, err := uc.Ingest(context.Background(), src)
	require.NoError(t, err)
	afterFirst, err := idx.Count(context.Background())
	require.NoError(t, err)

	second, err := uc.Ingest(context.Background(), src)
	require.NoError(t, err)
	afterSecond, err := idx.Count(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	// chunks are keyed by document id, so identical content is stored twice
	assert.Equal(t, 2*afterFirst, afterSecond)
}

func TestIngest_EmbeddingFailureLeavesIndexUntouched(t *testing.T) {
	idx := memory.NewIndex(0)
	uc := newUsecase(t, failingProvider{}, idx, 10)

	doc, err := uc.Ingest(context.Background(), entity.Source{Filename: "notes.txt", Content: []byte(longDocument(5))})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrIngestionFailure)
	assert.ErrorIs(t, err, entity.ErrEmbeddingFailure)

	var stageErr *entity.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageEmbed, stageErr.Stage)
	assert.Contains(t, stageErr.Cause(), "connection refused")

	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngest_IndexFailureReportsStage(t *testing.T) {
	idx := &recordingIndex{Index: memory.NewIndex(0), failAfter: 1}
	uc := newUsecase(t, llm.NewMockConnector(dims, zap.NewNop()), idx, 2)

	doc, err := uc.Ingest(context.Background(), entity.Source{Filename: "notes.txt", Content: []byte(longDocument(20))})
	require.Error(t, err)

	var stageErr *entity.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageIndex, stageErr.Stage)
	assert.Contains(t, stageErr.Cause(), "index write rejected")
	assert.Equal(t, entity.DocumentStatusFailed, doc.Status)
}

func TestIngest_UnsupportedFormat(t *testing.T) {
	uc := newUsecase(t, llm.NewMockConnector(dims, zap.NewNop()), memory.NewIndex(0), 10)

	doc, err := uc.Ingest(context.Background(), entity.Source{Filename: "photo.png", Content: []byte{0x89}})
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, entity.ErrIngestionFailure)
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestIngestFile_UsesPathAsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runbook.txt")
	require.NoError(t, os.WriteFile(path, []byte(longDocument(3)), 0o600))

	uc := newUsecase(t, llm.NewMockConnector(dims, zap.NewNop()), memory.NewIndex(0), 10)

	doc, err := uc.IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "runbook.txt", doc.Filename)

	_, err = uc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	var stageErr *entity.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageRead, stageErr.Stage)
}

func TestDeleteDocument(t *testing.T) {
	idx := memory.NewIndex(0)
	uc := newUsecase(t, llm.NewMockConnector(dims, zap.NewNop()), idx, 10)

	doc, err := uc.Ingest(context.Background(), entity.Source{Filename: "notes.txt", Content: []byte(longDocument(8))})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteDocument(context.Background(), doc.ID))

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, uc.DeleteDocument(context.Background(), ""), entity.ErrMissingField)
}

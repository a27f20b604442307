package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erkion1127/ds-ai2/internal/builder"
	"github.com/erkion1127/ds-ai2/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func newCore(t *testing.T) *builder.Core {
	t.Helper()
	cfg := config.Default()
	cfg.EnableMocks = true
	cfg.IndexCfg.Dimensions = 64

	core, err := builder.NewCore(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return core
}

func run(t *testing.T, core *builder.Core, args ...string) (string, string, error) {
	t.Helper()
	closed := false
	root := NewRootCommand(func(context.Context, string) (Services, func(), error) {
		return Services{Ingestion: core.Ingestion, Rag: core.Rag, Index: core.Index}, func() { closed = true }, nil
	})

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		assert.True(t, closed, "services are released after the command")
	}
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngestQueryCountDelete(t *testing.T) {
	core := newCore(t)
	dir := t.TempDir()
	writeFile(t, dir, "pods.md", "# Pods\n\nKubernetes schedules pods onto worker nodes.")
	writeFile(t, dir, "bread.txt", "Banana bread needs ripe bananas.")
	writeFile(t, dir, "image.png", "not a document")

	out, _, err := run(t, core, "ingest", dir)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "indexed "))
	assert.NotContains(t, out, "image.png")

	out, _, err = run(t, core, "count")
	require.NoError(t, err)
	assert.Equal(t, "2", strings.TrimSpace(out))

	out, _, err = run(t, core, "query", "how", "are", "pods", "scheduled", "--top-k", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[MOCK]")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "1 chunks, VECTOR_ONLY")

	out, _, err = run(t, core, "query", "pods", "--json", "--strategy", "hybrid")
	require.NoError(t, err)
	assert.Contains(t, out, `"strategy": "HYBRID"`)
}

func TestIngest_ReportsFailures(t *testing.T) {
	core := newCore(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "ok.txt", "some text")
	bad := writeFile(t, dir, "photo.png", "not a document")

	out, errOut, err := run(t, core, "ingest", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "indexed "+good)
	assert.Contains(t, errOut, "failed "+bad)
}

func TestQuery_InvalidStrategy(t *testing.T) {
	_, _, err := run(t, newCore(t), "query", "pods", "--strategy", "fuzzy")
	assert.ErrorContains(t, err, "invalid strategy")
}

func TestDelete(t *testing.T) {
	core := newCore(t)
	path := writeFile(t, t.TempDir(), "ok.txt", "some text")
	doc, err := core.Ingestion.IngestFile(context.Background(), path)
	require.NoError(t, err)

	out, _, err := run(t, core, "delete", doc.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+doc.ID)

	n, err := core.Index.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFactoryError(t *testing.T) {
	root := NewRootCommand(func(context.Context, string) (Services, func(), error) {
		return Services{}, nil, errors.New("config missing")
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"count"})

	assert.ErrorContains(t, root.Execute(), "config missing")
}

func TestCommandsCarryServiceLogger(t *testing.T) {
	core := newCore(t)
	obsCore, logs := observer.New(zap.InfoLevel)

	root := NewRootCommand(func(context.Context, string) (Services, func(), error) {
		return Services{Ingestion: core.Ingestion, Rag: core.Rag, Index: core.Index, Logger: zap.New(obsCore)}, func() {}, nil
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"query", "how", "are", "pods", "scheduled"})
	require.NoError(t, root.Execute())

	answered := logs.FilterMessage("query answered").All()
	require.Len(t, answered, 1)
	assert.Equal(t, "query", answered[0].ContextMap()["command"])
}

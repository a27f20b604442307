package formatter

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()

	for format, ext := range map[entity.ResultFormat]string{
		entity.FormatMarkdown: ".md",
		entity.FormatDOCX:     ".docx",
		entity.FormatPDF:      ".pdf",
	} {
		f, err := factory.Create(format)
		require.NoError(t, err, format)
		assert.Equal(t, ext, f.FileExtension())
	}

	// json is rendered by the caller, not by a document formatter
	_, err := factory.Create(entity.FormatJSON)
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := NewMarkdownFormatter().Format("", "line one\nline two")
	require.NoError(t, err)
	assert.Equal(t, "# "+DefaultTitle+"\n\nline one\nline two\n", string(out))

	out, err = NewMarkdownFormatter().Format("Session 42", "x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "# Session 42\n"))
}

func TestPDFFormatter(t *testing.T) {
	out, err := NewPDFFormatter().Format("Transcript", "[2024-03-01 12:30:00] user: hello")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
	assert.Equal(t, "application/pdf", NewPDFFormatter().ContentType())
}

// docxPart returns the named part of a DOCX package
func docxPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	f, err := zr.Open(name)
	require.NoError(t, err, name)
	defer f.Close()

	content, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(content)
}

func TestDOCXFormatter(t *testing.T) {
	out, err := NewDOCXFormatter().Format("Session <42>", "user: hello & welcome\nassistant: hi")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("PK")))

	assert.Contains(t, docxPart(t, out, "[Content_Types].xml"), "/word/document.xml")
	assert.Contains(t, docxPart(t, out, "_rels/.rels"), "word/document.xml")

	body := docxPart(t, out, "word/document.xml")
	assert.Contains(t, body, `<w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">Session &lt;42&gt;</w:t>`)
	assert.Contains(t, body, "user: hello &amp; welcome</w:t>")
	assert.Contains(t, body, ">assistant: hi</w:t>")

	out, err = NewDOCXFormatter().Format("", "x")
	require.NoError(t, err)
	assert.Contains(t, docxPart(t, out, "word/document.xml"), DefaultTitle)
}

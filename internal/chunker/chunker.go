// Package chunker splits document text into overlapping, sentence-aligned chunks.
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/erkion1127/ds-ai2/internal/entity"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 100
)

// Chunker accumulates sentences into chunks of roughly ChunkSize characters.
// Consecutive chunks share a trailing window of whole sentences no longer than Overlap.
// Sizes and chunk offsets count characters (runes), not bytes.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New falls back to the default size when chunkSize is not positive and to the default
// overlap when overlap is negative. A zero overlap disables overlap.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}

	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Chunk splits the document content. Empty content yields no chunks.
// A sentence longer than the chunk size is emitted whole as its own chunk.
func (c *Chunker) Chunk(doc *entity.Document) []entity.Chunk {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	sentences := SplitSentences(doc.Content)

	var (
		chunks   []entity.Chunk
		current  strings.Builder
		length   int
		window   []string
		position int
	)

	write := func(sentence string) {
		current.WriteString(sentence)
		current.WriteByte(' ')
		length += utf8.RuneCountInString(sentence) + 1
	}

	seal := func() {
		content := strings.TrimSpace(current.String())
		if content != "" {
			chunks = append(chunks, entity.NewChunk(doc, len(chunks), content, position, Hash(content)))
		}
		position += length
		current.Reset()
		length = 0
	}

	for _, sentence := range sentences {
		if length > 0 && length+utf8.RuneCountInString(sentence) > c.chunkSize {
			seal()
			for _, s := range window {
				write(s)
			}
			window = window[:0]
		}

		write(sentence)
		window = c.pushWindow(window, sentence)
	}

	if length > 0 {
		seal()
	}

	return chunks
}

// pushWindow keeps the trailing run of sentences whose total length fits the overlap.
// A sentence longer than the overlap breaks the run.
func (c *Chunker) pushWindow(window []string, sentence string) []string {
	if utf8.RuneCountInString(sentence) > c.overlap {
		return window[:0]
	}

	window = append(window, sentence)
	total := 0
	for _, s := range window {
		total += utf8.RuneCountInString(s)
	}
	for total > c.overlap && len(window) > 0 {
		total -= utf8.RuneCountInString(window[0])
		window = window[1:]
	}

	return window
}

// SplitSentences splits after '.', '!' or '?' when followed by whitespace.
// Returned sentences are trimmed and never empty.
func SplitSentences(text string) []string {
	var sentences []string

	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		next, _ := utf8.DecodeRuneInString(text[i:])
		if i >= len(text) || !unicode.IsSpace(next) {
			continue
		}

		if s := strings.TrimSpace(text[start:i]); s != "" {
			sentences = append(sentences, s)
		}
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(r) {
				break
			}
			i += size
		}
		start = i
	}

	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// Hash is the chunk content hash used for downstream dedup
func Hash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

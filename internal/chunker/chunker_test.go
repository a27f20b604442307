package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/erkion1127/ds-ai2/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var topics = []string{
	"vector search",
	"lexical matching over inverted indexes",
	"embedding models",
	"chunk overlap windows and their trade-offs",
	"conversation memory",
	"hybrid retrieval",
}

// buildDocument produces unique sentences of roughly 40-80 characters until minLen is reached.
func buildDocument(minLen int) string {
	var b strings.Builder
	for i := 0; b.Len() < minLen; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "Sentence %03d explains %s.", i, topics[i%len(topics)])
	}
	return b.String()
}

func newDoc(content string) *entity.Document {
	return entity.NewDocument("doc-1", "notes.txt", "/data/notes.txt", content, "hash", entity.DocumentTypeTXT, int64(len(content)))
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, -1)
	assert.Equal(t, DefaultChunkSize, c.ChunkSize())
	assert.Equal(t, DefaultOverlap, c.Overlap())

	c = New(100, 150)
	assert.Less(t, c.Overlap(), c.ChunkSize())

	// zero overlap is a valid setting, not a missing one
	c = New(120, 0)
	assert.Equal(t, 120, c.ChunkSize())
	assert.Zero(t, c.Overlap())
}

func TestSplitSentences(t *testing.T) {
	t.Run("terminal punctuation followed by whitespace", func(t *testing.T) {
		got := SplitSentences("Hello world. How are you?  Fine!\nNext line")
		assert.Equal(t, []string{"Hello world.", "How are you?", "Fine!", "Next line"}, got)
	})

	t.Run("punctuation without whitespace does not split", func(t *testing.T) {
		got := SplitSentences("Version 1.2.3 is out. See example.com for details.")
		assert.Equal(t, []string{"Version 1.2.3 is out.", "See example.com for details."}, got)
	})

	t.Run("blank input", func(t *testing.T) {
		assert.Empty(t, SplitSentences("   \n\t"))
	})
}

func TestChunk_EmptyContent(t *testing.T) {
	c := New(500, 100)
	assert.Empty(t, c.Chunk(newDoc("")))
	assert.Empty(t, c.Chunk(newDoc("   ")))
	assert.Empty(t, c.Chunk(nil))
}

func TestChunk_SmallContentIsSingleChunk(t *testing.T) {
	c := New(500, 100)
	chunks := c.Chunk(newDoc("This is a small piece of content."))

	require.Len(t, chunks, 1)
	assert.Equal(t, "This is a small piece of content.", chunks[0].Content)
	assert.Equal(t, "doc-1_chunk_0", chunks[0].ID)
	assert.Equal(t, 0, chunks[0].StartPosition)
	assert.Equal(t, len(chunks[0].Content), chunks[0].EndPosition)
	assert.Equal(t, Hash(chunks[0].Content), chunks[0].ContentHash)
	assert.Equal(t, "/data/notes.txt", chunks[0].Metadata[entity.MetaSource])
}

func TestChunk_OversizedSentenceIsKeptWhole(t *testing.T) {
	long := strings.Repeat("word ", 60) + "end."
	content := "Short intro. " + long + " Short outro."

	chunks := New(100, 20).Chunk(newDoc(content))

	var found bool
	for _, ch := range chunks {
		if strings.Contains(ch.Content, strings.TrimSpace(long)) {
			found = true
		}
	}
	assert.True(t, found, "oversized sentence must not be split")
}

func TestChunk_TwelveHundredCharacterScenario(t *testing.T) {
	content := buildDocument(1200)
	for _, s := range SplitSentences(content) {
		require.GreaterOrEqual(t, len(s), 30)
		require.LessOrEqual(t, len(s), 80)
	}

	chunks := New(500, 100).Chunk(newDoc(content))
	require.GreaterOrEqual(t, len(chunks), 2)

	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 580, "chunk %d too large", ch.ChunkIndex)
	}

	// chunk 2 starts with the longest run of chunk 1's trailing sentences fitting in 100 chars
	first := SplitSentences(chunks[0].Content)
	var window []string
	total := 0
	for i := len(first) - 1; i >= 0; i-- {
		if total+len(first[i]) > 100 {
			break
		}
		total += len(first[i])
		window = append([]string{first[i]}, window...)
	}
	require.NotEmpty(t, window)

	overlap := strings.Join(window, " ")
	assert.True(t, strings.HasPrefix(chunks[1].Content, overlap), "chunk 2 should begin with %q", overlap)
	assert.True(t, strings.HasSuffix(chunks[0].Content, overlap))
}

func TestChunk_OrdinalsAndOffsets(t *testing.T) {
	chunks := New(200, 60).Chunk(newDoc(buildDocument(3000)))
	require.Greater(t, len(chunks), 5)

	prevStart := -1
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, entity.ChunkID("doc-1", i), ch.ID)
		assert.GreaterOrEqual(t, ch.StartPosition, prevStart)
		assert.Equal(t, ch.StartPosition+utf8.RuneCountInString(ch.Content), ch.EndPosition)
		prevStart = ch.StartPosition
	}
}

func TestChunk_ReconstructsSourceWithoutOverlap(t *testing.T) {
	content := buildDocument(4000)
	// irregular whitespace is normalised away
	content = strings.ReplaceAll(content, ". Sentence 01", ".\n\n  Sentence 01")

	for _, sizes := range [][2]int{{500, 100}, {200, 60}, {120, 0}} {
		chunks := New(sizes[0], sizes[1]).Chunk(newDoc(content))

		var rebuilt []string
		var prev []string
		for _, ch := range chunks {
			sentences := SplitSentences(ch.Content)
			skip := overlapLen(prev, sentences)
			rebuilt = append(rebuilt, sentences[skip:]...)
			prev = sentences
		}

		assert.Equal(t, strings.Join(SplitSentences(content), " "), strings.Join(rebuilt, " "), "sizes %v", sizes)
	}
}

// overlapLen returns the length of the longest prefix of next that is a suffix of prev.
func overlapLen(prev, next []string) int {
	for k := min(len(prev), len(next)); k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if prev[len(prev)-k+i] != next[i] {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

// koreanSentence is 35 characters but 81 bytes long
func koreanSentence(i int) string {
	return fmt.Sprintf("문장 %02d 은 한국어 검색 품질을 높이기 위한 예시 문장입니다.", i)
}

func TestChunk_SizesCountCharactersNotBytes(t *testing.T) {
	sentences := make([]string, 20)
	for i := range sentences {
		sentences[i] = koreanSentence(i)
	}
	sentenceLen := utf8.RuneCountInString(sentences[0])
	require.Greater(t, len(sentences[0]), 2*sentenceLen, "fixture must be multi-byte")

	content := strings.Join(sentences, " ")
	chunks := New(500, 100).Chunk(newDoc(content))
	require.Len(t, chunks, 2)

	first := SplitSentences(chunks[0].Content)
	// as many whole sentences as fit in 500 characters, counting the joining spaces
	assert.Len(t, first, 500/(sentenceLen+1))
	assert.LessOrEqual(t, utf8.RuneCountInString(chunks[0].Content), 500)

	// the overlap window is measured in characters too
	second := SplitSentences(chunks[1].Content)
	assert.Equal(t, first[len(first)-100/sentenceLen:], second[:100/sentenceLen])

	assert.Equal(t, 0, chunks[0].StartPosition)
	assert.Equal(t, utf8.RuneCountInString(chunks[0].Content), chunks[0].EndPosition)
	assert.Equal(t, chunks[0].EndPosition+1, chunks[1].StartPosition)
}

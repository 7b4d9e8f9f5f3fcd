package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	text := "short message under the limit"
	chunks := Chunk(text, ChunkConfig{MaxChars: 4500, OverlapChars: 200})
	require.Equal(t, []string{text}, chunks)
}

func TestChunkLongTextRespectsMaxChars(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := Chunk(text, ChunkConfig{MaxChars: 500, OverlapChars: 50})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c)), 500)
	}
}

func TestChunkRejectsLowWordCharRatio(t *testing.T) {
	noise := strings.Repeat("@#$%^&*()~`", 50)
	chunks := Chunk(noise, ChunkConfig{MaxChars: 4500, OverlapChars: 200})
	require.Empty(t, chunks, "mostly-symbol text must be rejected as noise")
}

func TestChunkUnderMaxCharsWithParagraphBreakIsSingleChunk(t *testing.T) {
	text := strings.Repeat("Paragraph sentence here. ", 5) + "\n\n" + strings.Repeat("Another paragraph sentence. ", 5)
	chunks := Chunk(text, ChunkConfig{MaxChars: 4500, OverlapChars: 200})
	require.Len(t, chunks, 1, "text under MaxChars stays a single chunk even with paragraph breaks")
}

func TestHardSplitOverlapsOnlyOnHardBoundary(t *testing.T) {
	text := strings.Repeat("x", 1000)
	chunks := hardSplit(text, 300, 50)
	require.Greater(t, len(chunks), 1)
	// Each subsequent chunk should start with the overlap tail of the previous one.
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-50:]
		require.True(t, strings.HasPrefix(chunks[i], prevTail))
	}
}

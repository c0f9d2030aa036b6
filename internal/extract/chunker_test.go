package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkMarkdownSplitsOnHeadings(t *testing.T) {
	doc := `# Setup
Install the binary and run it once.

# Usage
Point it at a config file and start the server.`

	chunks := ChunkMarkdown(doc)
	require.Len(t, chunks, 2)
	require.Contains(t, chunks[0].Content, "Heading: Setup")
	require.Contains(t, chunks[0].Content, "Install the binary")
	require.Contains(t, chunks[1].Content, "Heading: Usage")
	require.Contains(t, chunks[1].Content, "config file")
	require.Equal(t, 0, chunks[0].Position)
	require.Equal(t, 1, chunks[1].Position)
}

func TestChunkMarkdownSplitsLongSections(t *testing.T) {
	para := strings.Repeat("word ", 120)
	doc := "# Long\n\n" + para + "\n\n" + para + "\n\n" + para + "\n\n" + para + "\n\n" + para
	chunks := ChunkMarkdown(doc)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.Contains(t, chunk.Content, "Heading: Long")
	}
}

func TestChunkMarkdownKeepsCodeBlocks(t *testing.T) {
	doc := "# Code\n\nSome intro.\n\n```go\nfunc main() {}\n```\n"
	chunks := ChunkMarkdown(doc)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Content, "```go")
	require.Contains(t, chunks[0].Content, "func main()")
}

func TestChunkMarkdownEmptyInput(t *testing.T) {
	require.Empty(t, ChunkMarkdown(""))
	require.Empty(t, ChunkMarkdown("   \n\n   "))
}

func TestEstimateTokensCountsWordsAndCJK(t *testing.T) {
	require.Equal(t, 3, estimateTokens("one two three"))
	require.Equal(t, 1, estimateTokens("x"))
	// Each CJK rune counts, plus one field for the run itself.
	require.Equal(t, 3, estimateTokens("你好"))
}

func TestSupportedExtensions(t *testing.T) {
	require.True(t, Supported("notes.md"))
	require.True(t, Supported("report.PDF"))
	require.True(t, Supported("sheet.xlsx"))
	require.False(t, Supported("archive.zip"))
	require.False(t, Supported("binary"))
}

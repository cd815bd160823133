package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixbase/fixbase/core"
)

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("The inverter converts the DC link voltage back to AC. ", 120)
	extraction := &Extraction{Text: text, Title: "manual"}
	source := core.SourceRef{URL: "https://example.com/m.pdf"}

	c := NewChunker(800, 100)

	first, err := c.Chunk(extraction, source)
	require.NoError(t, err)
	second, err := c.Chunk(extraction, source)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
	}
}

func TestChunkNeverEmptyAndIndexed(t *testing.T) {
	text := "First paragraph about drives.\n\nSecond paragraph about faults.\n\n\n\nThird paragraph about safety."
	c := NewChunker(40, 0)

	chunks, err := c.Chunk(&Extraction{Text: text, Title: "t"}, core.SourceRef{URL: "u", Page: 2})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "u", chunk.SourceURL)
		assert.Equal(t, "t", chunk.SourceTitle)
		assert.Equal(t, 2, chunk.Page)
	}
}

func TestChunkRespectsSizeBound(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	c := NewChunker(200, 20)

	chunks, err := c.Chunk(&Extraction{Text: text}, core.SourceRef{URL: "u"})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Text), 200)
	}
}

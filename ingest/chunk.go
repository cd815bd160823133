package ingest

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/fixbase/fixbase/ai"
	"github.com/fixbase/fixbase/core"
)

// Default chunk bounds. Roughly 4 characters per token-equivalent, so the
// defaults target 300-500 token segments with a small overlap.
const (
	DefaultChunkSize    = 1600
	DefaultChunkOverlap = 200
)

// Chunker splits extracted text into bounded, overlap-aware segments.
// Splitting is deterministic: the same text always yields the same chunks.
type Chunker struct {
	splitter textsplitter.TextSplitter
}

// NewChunker creates a Chunker with the given size and overlap in characters.
// Non-positive values fall back to the defaults. Paragraph and sentence
// boundaries are preferred over mid-sentence splits.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " "}),
		),
	}
}

// Chunk splits the extraction into generator-ready chunks.
// Never emits empty chunks.
func (c *Chunker) Chunk(extraction *Extraction, source core.SourceRef) ([]ai.Chunk, error) {
	parts, err := c.splitter.SplitText(extraction.Text)
	if err != nil {
		return nil, err
	}

	chunks := make([]ai.Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, ai.Chunk{
			Text:        part,
			SourceURL:   source.URL,
			SourceTitle: extraction.Title,
			Page:        source.Page,
			Index:       len(chunks),
		})
	}
	return chunks, nil
}

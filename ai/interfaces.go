package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AtomGenerator turns a chunk of extracted source text into zero or more
// knowledge atom candidates. Implementations must be thread-safe for
// concurrent use.
type AtomGenerator interface {
	// GenerateAtoms analyzes chunk text plus its source metadata and returns
	// candidate atoms conforming to the candidate shape (no id, embedding or
	// quality score; those are assigned downstream).
	//
	// Specification-heavy chunks are not forced into narrative form: the
	// generator may legitimately return zero candidates, or a specification
	// candidate with a summary-only body.
	// Returns an error if generation fails (timeout, malformed output).
	GenerateAtoms(ctx context.Context, chunk Chunk) ([]AtomCandidate, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and AtomGenerator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// AtomGenerator returns the atom generation service.
	// The returned AtomGenerator is safe for concurrent use.
	AtomGenerator() AtomGenerator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

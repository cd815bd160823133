// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.AtomGenerator,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embedding, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	mockGenerator := mock.NewMockAtomGenerator()
//	mockGenerator.GenerateFunc = func(ctx context.Context, chunk ai.Chunk) ([]ai.AtomCandidate, error) {
//	    return []ai.AtomCandidate{{Kind: "fault", Title: "F0003", Summary: "undervoltage"}}, nil
//	}
//
//	// Check call counts
//	count := mockGenerator.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockAtomGenerator: Synthesizes one concept candidate per non-empty chunk
//   - MockProvider: Aggregates mock embedder and generator
package mock

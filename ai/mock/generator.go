package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/fixbase/fixbase/ai"
)

// MockAtomGenerator is a test double for ai.AtomGenerator.
// It allows custom behavior injection via function fields.
// The pipeline fans chunks out concurrently, so the counter is atomic.
type MockAtomGenerator struct {
	// GenerateFunc is called by GenerateAtoms if set.
	// If nil, uses default simple candidate synthesis.
	GenerateFunc func(ctx context.Context, chunk ai.Chunk) ([]ai.AtomCandidate, error)

	callCount atomic.Int64
}

// NewMockAtomGenerator creates a mock generator with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockAtomGenerator() *MockAtomGenerator {
	return &MockAtomGenerator{}
}

// GenerateAtoms synthesizes mock candidates from chunk text.
// Default behavior: one concept candidate per chunk whose title is the first
// few words of the chunk. Empty chunks yield zero candidates.
func (m *MockAtomGenerator) GenerateAtoms(ctx context.Context, chunk ai.Chunk) ([]ai.AtomCandidate, error) {
	m.callCount.Add(1)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, chunk)
	}

	words := strings.Fields(chunk.Text)
	if len(words) == 0 {
		return []ai.AtomCandidate{}, nil
	}

	title := strings.Join(words[:min(len(words), 6)], " ")
	cand := ai.AtomCandidate{
		Kind:     "concept",
		Title:    title,
		Summary:  chunk.Text[:min(len(chunk.Text), 200)],
		Body:     chunk.Text,
		Keywords: lowercaseFirst(words, 5),
		Citations: []ai.CandidateCitation{
			{URL: chunk.SourceURL, Title: chunk.SourceTitle},
		},
	}
	return []ai.AtomCandidate{cand}, nil
}

// CallCount returns the number of times GenerateAtoms was called.
func (m *MockAtomGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockAtomGenerator) Reset() {
	m.callCount.Store(0)
	m.GenerateFunc = nil
}

func lowercaseFirst(words []string, n int) []string {
	out := make([]string, 0, n)
	for _, w := range words {
		if len(out) == n {
			break
		}
		w = strings.ToLower(strings.Trim(w, ".,!?;:\"'()[]{}"))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Copyright 2026 Fixbase Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/fixbase/fixbase/ai"
)

// AtomGenerator implements ai.AtomGenerator using OpenAI-compatible chat APIs.
type AtomGenerator struct {
	client           llms.Model
	maxAtomsPerChunk int
	logger           *slog.Logger
}

// candidate is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type candidate struct {
	Kind           string   `json:"kind"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Body           string   `json:"body"`
	Manufacturer   string   `json:"manufacturer"`
	ProductFamily  string   `json:"product_family"`
	ProductVersion string   `json:"product_version"`
	Difficulty     string   `json:"difficulty"`
	SafetyLevel    string   `json:"safety_level"`
	SafetyNotes    string   `json:"safety_notes"`
	Keywords       []string `json:"keywords"`
	Steps          []string `json:"steps"`
	FaultCode      string   `json:"fault_code"`
}

// generation is the wrapper structure for the LLM's JSON response.
type generation struct {
	Atoms []candidate `json:"atoms"`
}

// newAtomGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAtomGenerator(config *ai.Config) (*AtomGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/generation
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken("none"),
		openai.WithModel(config.GeneratorModel),
	)
	if err != nil {
		return nil, err
	}

	return &AtomGenerator{
		client:           client,
		maxAtomsPerChunk: config.MaxAtomsPerChunk,
		logger:           slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewAtomGenerator creates a new atom generator using the provided configuration.
//
// Returns ai.AtomGenerator interface to enforce abstraction.
func NewAtomGenerator(config *ai.Config) (ai.AtomGenerator, error) {
	return newAtomGenerator(config)
}

// GenerateAtoms extracts knowledge atom candidates from the chunk using an LLM.
// Candidates with unrecognized kinds are dropped, and at most MaxAtomsPerChunk
// candidates are returned in generator output order.
func (g *AtomGenerator) GenerateAtoms(ctx context.Context, chunk ai.Chunk) ([]ai.AtomCandidate, error) {
	systemPrompt := buildSystemPrompt()
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildChunkPrompt(chunk)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result generation
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			g.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			g.logger.Debug("no choices returned from model")
			return []ai.AtomCandidate{}, nil
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			g.logger.Warn("error parsing generator response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		g.logger.Error("failed to parse generator response after retries", "err", lastErr)
		return nil, lastErr
	}

	// Drop candidates with unknown kinds or missing required text fields.
	out := make([]ai.AtomCandidate, 0, len(result.Atoms))
	for _, c := range result.Atoms {
		kind := strings.ToLower(strings.TrimSpace(c.Kind))
		if !slices.Contains(ai.AtomKinds, kind) {
			g.logger.Debug("dropping candidate with unknown kind", "kind", c.Kind, "title", c.Title)
			continue
		}
		if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Summary) == "" {
			g.logger.Debug("dropping candidate without title or summary", "kind", kind)
			continue
		}

		cand := ai.AtomCandidate{
			Kind:           kind,
			Title:          strings.TrimSpace(c.Title),
			Summary:        strings.TrimSpace(c.Summary),
			Body:           strings.TrimSpace(c.Body),
			Manufacturer:   strings.ToLower(strings.TrimSpace(c.Manufacturer)),
			ProductFamily:  strings.ToLower(strings.TrimSpace(c.ProductFamily)),
			ProductVersion: strings.TrimSpace(c.ProductVersion),
			Difficulty:     normalizeVocab(c.Difficulty, ai.Difficulties),
			SafetyLevel:    normalizeVocab(c.SafetyLevel, ai.SafetyLevels),
			SafetyNotes:    strings.TrimSpace(c.SafetyNotes),
			Keywords:       lowercaseAll(c.Keywords),
			Steps:          trimAll(c.Steps),
			FaultCode:      strings.ToUpper(strings.TrimSpace(c.FaultCode)),
		}

		// Every candidate cites at least its own chunk source; the quality
		// gate checks for citation presence downstream.
		cand.Citations = []ai.CandidateCitation{{URL: chunk.SourceURL, Title: chunk.SourceTitle}}

		out = append(out, cand)
		if len(out) == g.maxAtomsPerChunk {
			break
		}
	}

	g.logger.Debug("generated atom candidates",
		"total", len(result.Atoms),
		"kept", len(out),
		"chunk", chunk.Index)

	return out, nil
}

// normalizeVocab lowercases v and returns it if it belongs to the vocabulary,
// otherwise the empty string.
func normalizeVocab(v string, vocab []string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if slices.Contains(vocab, v) {
		return v
	}
	return ""
}

func lowercaseAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func trimAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

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

package coverage

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/search"
	"github.com/fixbase/fixbase/storage"
)

// ErrAtomRepositoryRequired is returned when an atom repository is not provided.
var ErrAtomRepositoryRequired = errors.New("atom repository required")

// DefaultTopK is how many top matches feed the average relevance.
const DefaultTopK = 10

// Evaluation summarizes how well the stored atoms cover one query.
type Evaluation struct {
	Query                  string
	Manufacturer           string
	ManufacturerConfidence float64
	Keywords               []string
	AtomCount              int
	AvgRelevance           float64
	Matches                []*core.SearchResult
}

// Evaluator measures atom coverage for queries. It reads the atom store
// only; nothing on this path blocks on ingestion activity.
type Evaluator struct {
	atoms  storage.AtomRepository
	topK   int
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator) error

// WithTopK sets how many top matches feed the average relevance.
// Default is DefaultTopK.
func WithTopK(k int) EvaluatorOption {
	return func(e *Evaluator) error {
		if k < 1 {
			k = 1
		}
		e.topK = k
		return nil
	}
}

// WithEvaluatorLogger sets a custom logger.
// Default is slog.Default().
func WithEvaluatorLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEvaluator creates a coverage evaluator over the given atom repository.
func NewEvaluator(atoms storage.AtomRepository, opts ...EvaluatorOption) (*Evaluator, error) {
	if atoms == nil {
		return nil, ErrAtomRepositoryRequired
	}

	e := &Evaluator{
		atoms:  atoms,
		topK:   DefaultTopK,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "coverage")
	return e, nil
}

// Evaluate detects the manufacturer, retrieves candidate atoms lexically,
// filters them by the detected manufacturer, and aggregates the matches
// into an atom count and average relevance over the top-K.
func (e *Evaluator) Evaluate(ctx context.Context, query string) (*Evaluation, error) {
	det := DetectVendor(query)

	eval := &Evaluation{
		Query:                  query,
		Manufacturer:           det.Manufacturer,
		ManufacturerConfidence: det.Confidence,
		Keywords:               det.Keywords,
	}

	terms := search.Tokenize(query)
	if len(terms) == 0 {
		return eval, nil
	}

	matches, err := e.atoms.SearchKeywords(ctx, terms, e.topK)
	if err != nil {
		return nil, err
	}

	// Atoms from other manufacturers never count toward coverage of a
	// manufacturer-specific query. Unattributed atoms still count.
	if det.Manufacturer != "" {
		filtered := matches[:0]
		for _, match := range matches {
			if match.Atom.Manufacturer == "" ||
				strings.EqualFold(match.Atom.Manufacturer, det.Manufacturer) {
				filtered = append(filtered, match)
			}
		}
		matches = filtered
	}

	eval.Matches = matches
	eval.AtomCount = len(matches)

	top := matches
	if len(top) > e.topK {
		top = top[:e.topK]
	}
	if len(top) > 0 {
		var sum float64
		for _, match := range top {
			sum += float64(match.Score)
		}
		eval.AvgRelevance = sum / float64(len(top))
	}

	e.logger.Debug("coverage evaluated",
		"query", query,
		"manufacturer", det.Manufacturer,
		"atom_count", eval.AtomCount,
		"avg_relevance", eval.AvgRelevance)
	return eval, nil
}

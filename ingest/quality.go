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

package ingest

import (
	"errors"
	"strings"

	"github.com/fixbase/fixbase/core"
)

// Outcome is the quality gate's verdict for one candidate atom.
// Exactly one outcome holds per candidate, determined solely by the score
// against the two thresholds.
type Outcome int

const (
	// OutcomeAccept sends the candidate to embedding and storage.
	OutcomeAccept Outcome = iota + 1
	// OutcomeReview queues the candidate for a human decision.
	OutcomeReview
	// OutcomeDiscard drops the candidate, with the reasons logged.
	OutcomeDiscard
)

// String returns the lowercase outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccept:
		return "accept"
	case OutcomeReview:
		return "review"
	case OutcomeDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// GateConfig holds the quality gate thresholds.
// All values are tunable; the defaults suit manual-style prose sources.
type GateConfig struct {
	// AcceptThreshold is the minimum score for direct storage.
	AcceptThreshold int

	// ReviewThreshold is the minimum score for the human review queue.
	// Scores below it are discarded.
	ReviewThreshold int

	// MinBodyLength is the minimum character length of the narrative body.
	// Specification atoms may carry their content in the summary instead.
	MinBodyLength int
}

// GateOption is a functional option for configuring a Gate.
type GateOption func(*GateConfig)

// WithAcceptThreshold sets the accept threshold.
func WithAcceptThreshold(v int) GateOption {
	return func(c *GateConfig) { c.AcceptThreshold = v }
}

// WithReviewThreshold sets the review threshold.
func WithReviewThreshold(v int) GateOption {
	return func(c *GateConfig) { c.ReviewThreshold = v }
}

// WithMinBodyLength sets the minimum body length.
func WithMinBodyLength(v int) GateOption {
	return func(c *GateConfig) { c.MinBodyLength = v }
}

// DefaultGateConfig returns the default gate thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		AcceptThreshold: 75,
		ReviewThreshold: 50,
		MinBodyLength:   80,
	}
}

// ErrInvalidThresholds is returned when ReviewThreshold exceeds AcceptThreshold.
var ErrInvalidThresholds = errors.New("review threshold must not exceed accept threshold")

// Gate scores candidate atoms and partitions them into accept, review and
// discard outcomes.
type Gate struct {
	config GateConfig
}

// NewGate creates a quality gate with the given options applied over defaults.
func NewGate(opts ...GateOption) (*Gate, error) {
	config := DefaultGateConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.ReviewThreshold > config.AcceptThreshold {
		return nil, ErrInvalidThresholds
	}
	return &Gate{config: config}, nil
}

// Config returns the gate's effective configuration.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Evaluate scores the atom 0-100 and maps the score onto an outcome.
// Both threshold comparisons are inclusive on the lower bound.
func (g *Gate) Evaluate(atom *core.Atom) (int, Outcome, []string) {
	score, reasons := g.Score(atom)

	switch {
	case score >= g.config.AcceptThreshold:
		return score, OutcomeAccept, reasons
	case score >= g.config.ReviewThreshold:
		return score, OutcomeReview, reasons
	default:
		return score, OutcomeDiscard, reasons
	}
}

// Score computes the 0-100 quality score. Four checks contribute 25 points
// each: body length, artifact absence, citation presence, and structural
// completeness for the atom's kind. Reasons name the failed checks.
func (g *Gate) Score(atom *core.Atom) (int, []string) {
	score := 0
	var reasons []string

	// 1. Minimum narrative length. Specification atoms may be summary-only.
	narrative := atom.Body
	if atom.Kind == core.KindSpecification && narrative == "" {
		narrative = atom.Summary
	}
	if len(narrative) >= g.config.MinBodyLength {
		score += 25
	} else {
		reasons = append(reasons, "body too short")
	}

	// 2. Absence of un-narrated tabular or markup artifacts.
	if !containsArtifacts(atom.Body) && !containsArtifacts(atom.Summary) {
		score += 25
	} else {
		reasons = append(reasons, "contains tabular or markup artifacts")
	}

	// 3. At least one citation.
	if len(atom.Citations) > 0 {
		score += 25
	} else {
		reasons = append(reasons, "no citations")
	}

	// 4. Structural completeness for the kind.
	if kindComplete(atom) {
		score += 25
	} else {
		reasons = append(reasons, "structurally incomplete for kind "+atom.Kind.String())
	}

	return score, reasons
}

// containsArtifacts reports whether the text still carries table rows,
// markup fragments or parameter dumps the extractor should have stripped.
func containsArtifacts(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if tabularLineRE.MatchString(line) {
			return true
		}
	}
	return strings.Contains(text, "<td>") || strings.Contains(text, "</table>")
}

// kindComplete checks kind-specific structural requirements.
func kindComplete(atom *core.Atom) bool {
	if atom.Title == "" || atom.Summary == "" {
		return false
	}
	switch atom.Kind {
	case core.KindProcedure:
		return len(atom.Steps) > 0
	case core.KindFault:
		return atom.FaultCode != "" || atom.Body != ""
	default:
		return true
	}
}

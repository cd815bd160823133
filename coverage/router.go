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
	"fmt"
	"log/slog"
)

// Route is the handling strategy selected for a query.
type Route int

const (
	// RouteDirect answers from stored atoms alone (strong coverage).
	RouteDirect Route = iota + 1
	// RouteAssisted answers with atoms plus external assistance (thin coverage).
	RouteAssisted
	// RouteResearch falls back to research, with no trustworthy coverage.
	RouteResearch
	// RouteClarify asks the user to clarify an ambiguous query.
	RouteClarify
)

// String returns the route letter used in logs and operator tooling.
func (r Route) String() string {
	switch r {
	case RouteDirect:
		return "A"
	case RouteAssisted:
		return "B"
	case RouteResearch:
		return "C"
	case RouteClarify:
		return "D"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Config holds the route thresholds. All boundaries are inclusive on the
// lower bound of their tier. These are tuning knobs, not design constants;
// deployments adjust them as the atom store grows.
type Config struct {
	// StrongCount and StrongRelevance gate Route A.
	StrongCount     int
	StrongRelevance float64

	// ThinCount and ThinRelevance gate Route B; below ThinCount is Route C.
	ThinCount     int
	ThinRelevance float64

	// MinManufacturerConfidence below which no match is trusted (Route C).
	MinManufacturerConfidence float64

	// MinRouteConfidence below which Route D overrides everything.
	MinRouteConfidence float64

	// ManufacturerWeight and RelevanceWeight blend manufacturer confidence
	// and average relevance into the overall route confidence.
	ManufacturerWeight float64
	RelevanceWeight    float64
}

// DefaultConfig returns the starting thresholds.
func DefaultConfig() Config {
	return Config{
		StrongCount:               3,
		StrongRelevance:           0.5,
		ThinCount:                 1,
		ThinRelevance:             0.25,
		MinManufacturerConfidence: 0.3,
		MinRouteConfidence:        0.35,
		ManufacturerWeight:        0.5,
		RelevanceWeight:           0.5,
	}
}

// Decision is the routing outcome for one query.
type Decision struct {
	Route      Route
	Confidence float64
	Reason     string
	Evaluation *Evaluation
}

// Router is the route state machine. Route D is evaluated first and wins
// over everything; A, B and C partition the remaining space by atom count
// and relevance.
type Router struct {
	evaluator *Evaluator
	config    Config
	logger    *slog.Logger
}

// NewRouter creates a Router over the given evaluator.
func NewRouter(evaluator *Evaluator, config Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		evaluator: evaluator,
		config:    config,
		logger:    logger.With("component", "router"),
	}
}

// Config returns the active thresholds.
func (r *Router) Config() Config { return r.config }

// Select evaluates coverage for the query and picks a route. An evaluation
// failure degrades to Route D rather than propagating: answering nothing
// is worse than asking for clarification.
func (r *Router) Select(ctx context.Context, query string) *Decision {
	eval, err := r.evaluator.Evaluate(ctx, query)
	if err != nil {
		r.logger.Error("coverage evaluation failed, degrading to clarify", "query", query, "err", err)
		return &Decision{
			Route:      RouteClarify,
			Confidence: 0,
			Reason:     "coverage evaluation failed: " + err.Error(),
			Evaluation: &Evaluation{Query: query},
		}
	}

	decision := r.route(eval)
	r.logger.Info("route selected",
		"query", query,
		"route", decision.Route.String(),
		"confidence", decision.Confidence,
		"atom_count", eval.AtomCount,
		"avg_relevance", eval.AvgRelevance,
		"manufacturer", eval.Manufacturer)
	return decision
}

func (r *Router) route(eval *Evaluation) *Decision {
	cfg := r.config
	confidence := r.routeConfidence(eval)

	decision := &Decision{
		Confidence: confidence,
		Evaluation: eval,
	}

	// D first: it overrides A/B/C regardless of atom statistics
	if confidence < cfg.MinRouteConfidence {
		decision.Route = RouteClarify
		decision.Reason = fmt.Sprintf("route confidence %.2f below minimum %.2f", confidence, cfg.MinRouteConfidence)
		return decision
	}

	if eval.AtomCount >= cfg.StrongCount && eval.AvgRelevance >= cfg.StrongRelevance {
		decision.Route = RouteDirect
		decision.Reason = fmt.Sprintf("%d atoms at avg relevance %.2f meet the strong tier", eval.AtomCount, eval.AvgRelevance)
		return decision
	}

	if eval.AtomCount < cfg.ThinCount {
		decision.Route = RouteResearch
		decision.Reason = fmt.Sprintf("%d atoms below thin tier %d", eval.AtomCount, cfg.ThinCount)
		return decision
	}
	if eval.ManufacturerConfidence < cfg.MinManufacturerConfidence {
		decision.Route = RouteResearch
		decision.Reason = fmt.Sprintf("manufacturer confidence %.2f too low to trust matches", eval.ManufacturerConfidence)
		return decision
	}

	decision.Route = RouteAssisted
	decision.Reason = fmt.Sprintf("%d atoms at avg relevance %.2f fall in the thin tier", eval.AtomCount, eval.AvgRelevance)
	return decision
}

// routeConfidence blends manufacturer confidence and average relevance by
// the configured weights, clamping relevance into [0,1] first since hybrid
// scores can exceed 1.
func (r *Router) routeConfidence(eval *Evaluation) float64 {
	relevance := eval.AvgRelevance
	if relevance < 0 {
		relevance = 0
	}
	if relevance > 1 {
		relevance = 1
	}
	return r.config.ManufacturerWeight*eval.ManufacturerConfidence + r.config.RelevanceWeight*relevance
}

package coverage

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fixbase/fixbase/core"
)

// Enqueuer accepts ingestion jobs for background processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *core.IngestionJob) error
}

const (
	// DefaultRepeatThreshold is how many assisted-route hits on the same
	// manufacturer it takes before a gap job fires.
	DefaultRepeatThreshold = 3

	// DefaultGapPriority ranks gap jobs above scheduled bulk ingestion.
	DefaultGapPriority = 10
)

// GapDetector closes the feedback loop from query traffic to ingestion.
// A research-route decision enqueues a gap job immediately; assisted-route
// decisions for the same manufacturer accumulate and fire once they cross
// the repeat threshold. Enqueueing is fire-and-forget off the query path.
type GapDetector struct {
	queue           Enqueuer
	repeatThreshold int
	priority        int
	logger          *slog.Logger

	mu      sync.Mutex
	repeats map[string]int
}

// GapOption configures a GapDetector.
type GapOption func(*GapDetector)

// WithRepeatThreshold sets how many assisted-route hits on one manufacturer
// fire a gap job. Default is DefaultRepeatThreshold.
func WithRepeatThreshold(n int) GapOption {
	return func(g *GapDetector) {
		if n < 1 {
			n = 1
		}
		g.repeatThreshold = n
	}
}

// WithGapPriority sets the priority assigned to gap jobs.
// Default is DefaultGapPriority.
func WithGapPriority(priority int) GapOption {
	return func(g *GapDetector) {
		g.priority = priority
	}
}

// WithGapLogger sets a custom logger.
// Default is slog.Default().
func WithGapLogger(logger *slog.Logger) GapOption {
	return func(g *GapDetector) {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
	}
}

// NewGapDetector creates a GapDetector feeding the given queue.
func NewGapDetector(queue Enqueuer, opts ...GapOption) *GapDetector {
	g := &GapDetector{
		queue:           queue,
		repeatThreshold: DefaultRepeatThreshold,
		priority:        DefaultGapPriority,
		logger:          slog.Default(),
		repeats:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gap-detector")
	return g
}

// Observe inspects one routing decision and enqueues a gap job when it
// indicates missing coverage. It never blocks the caller on queue writes
// and never returns an error to the query path.
func (g *GapDetector) Observe(ctx context.Context, decision *Decision) {
	if decision == nil || decision.Evaluation == nil {
		return
	}

	switch decision.Route {
	case RouteResearch:
		g.fire(ctx, decision.Evaluation)
	case RouteAssisted:
		key := decision.Evaluation.Manufacturer
		if key == "" {
			return
		}
		g.mu.Lock()
		g.repeats[key]++
		hit := g.repeats[key] >= g.repeatThreshold
		if hit {
			delete(g.repeats, key)
		}
		g.mu.Unlock()

		if hit {
			g.fire(ctx, decision.Evaluation)
		}
	}
}

// fire enqueues the gap job asynchronously so the query path never waits
// on queue writes. The job survives the originating request's cancellation.
func (g *GapDetector) fire(ctx context.Context, eval *Evaluation) {
	job := g.buildJob(eval)
	bg := context.WithoutCancel(ctx)

	go func() {
		if err := g.queue.Enqueue(bg, job); err != nil {
			g.logger.Error("failed to enqueue gap job",
				"manufacturer", eval.Manufacturer, "hints", job.Hints, "err", err)
			return
		}
		g.logger.Info("gap job enqueued",
			"job", job.Id, "manufacturer", eval.Manufacturer, "hints", job.Hints)
	}()
}

func (g *GapDetector) buildJob(eval *Evaluation) *core.IngestionJob {
	hints := make([]string, 0, len(eval.Keywords)+1)
	if eval.Manufacturer != "" {
		hints = append(hints, eval.Manufacturer)
	}
	hints = append(hints, eval.Keywords...)

	return &core.IngestionJob{
		Id:         uuid.NewString(),
		Source:     core.SourceRef{URL: "gap://" + strings.Join(hints, "/")},
		Hints:      hints,
		Priority:   g.priority,
		Status:     core.JobPending,
		EnqueuedAt: core.Now(),
	}
}

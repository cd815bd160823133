package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fixbase/fixbase/backoff"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// Enqueuer accepts ingestion jobs for background processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *core.IngestionJob) error
}

// Sweeper retries failed ingestions on an exponential schedule.
// Entries past the retry cap are left unresolved for manual triage.
type Sweeper struct {
	failures storage.FailedIngestionRepository
	queue    Enqueuer
	policy   backoff.Policy
	retryCap int
	logger   *slog.Logger
}

// DefaultRetryCap bounds how many sweep retries one failure receives.
const DefaultRetryCap = 5

// NewSweeper creates a Sweeper. A retryCap of 0 uses DefaultRetryCap.
func NewSweeper(failures storage.FailedIngestionRepository, queue Enqueuer, policy backoff.Policy, retryCap int, logger *slog.Logger) *Sweeper {
	if retryCap <= 0 {
		retryCap = DefaultRetryCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		failures: failures,
		queue:    queue,
		policy:   policy,
		retryCap: retryCap,
		logger:   logger.With("component", "sweeper"),
	}
}

// Sweep re-enqueues every due failure below the retry cap and advances its
// retry schedule. Returns the number of jobs enqueued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := core.Now()
	due, err := s.failures.ListDueFailures(ctx, now)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, failure := range due {
		if failure.RetryCount >= s.retryCap {
			s.logger.Warn("failure exhausted retries, leaving for triage",
				"source", failure.Source.String(), "stage", failure.Stage, "retries", failure.RetryCount)
			continue
		}

		job := &core.IngestionJob{
			Id:         uuid.NewString(),
			Source:     failure.Source,
			Status:     core.JobPending,
			EnqueuedAt: now,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Error("failed to enqueue retry job",
				"source", failure.Source.String(), "stage", failure.Stage, "err", err)
			continue
		}

		failure.RetryCount++
		failure.NextRetryAt = now.Add(s.policy.Delay(failure.RetryCount))
		if _, err := s.failures.RecordFailure(ctx, failure); err != nil {
			s.logger.Error("failed to advance retry schedule",
				"source", failure.Source.String(), "stage", failure.Stage, "err", err)
			continue
		}
		enqueued++
	}

	s.logger.Info("sweep complete", "due", len(due), "enqueued", enqueued)
	return enqueued, nil
}

// Run sweeps on the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", "err", err)
			}
		}
	}
}

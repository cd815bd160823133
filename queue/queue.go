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

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

var (
	// ErrQueueFull is returned when the queue is at capacity and the
	// incoming job does not outrank any pending job.
	ErrQueueFull = errors.New("queue full")

	// ErrNoJobs is returned by Claim when no pending job is available.
	ErrNoJobs = errors.New("no pending jobs")
)

// DefaultCapacity bounds the number of pending jobs.
const DefaultCapacity = 256

// Queue is a durable, bounded, priority-weighted work queue for ingestion
// jobs. State lives in the job repository, so worker crashes lose nothing:
// a claimed job whose deadline lapses is swept back to pending.
type Queue struct {
	jobs     storage.JobRepository
	capacity int
	logger   *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue) error

// WithCapacity bounds the number of pending jobs.
// Default is DefaultCapacity.
func WithCapacity(capacity int) Option {
	return func(q *Queue) error {
		if capacity < 1 {
			return fmt.Errorf("capacity must be positive, got %d", capacity)
		}
		q.capacity = capacity
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger
		return nil
	}
}

// New creates a Queue backed by the given job repository.
func New(jobs storage.JobRepository, opts ...Option) (*Queue, error) {
	if jobs == nil {
		return nil, errors.New("job repository required")
	}

	q := &Queue{
		jobs:     jobs,
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	q.logger = q.logger.With("component", "queue")
	return q, nil
}

// Enqueue adds a job to the queue, assigning an ID, pending status and
// enqueue time when unset. When the queue is at capacity the lowest-priority
// pending job is dropped to make room, but only if the incoming job outranks
// it; otherwise the incoming job is rejected with ErrQueueFull.
func (q *Queue) Enqueue(ctx context.Context, job *core.IngestionJob) error {
	if job == nil {
		return errors.New("nil job")
	}
	if job.Id == "" {
		job.Id = uuid.NewString()
	}
	if job.Status == 0 {
		job.Status = core.JobPending
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = core.Now()
	}

	pending, err := q.jobs.ListJobsByStatus(ctx, core.JobPending)
	if err != nil {
		return err
	}

	if len(pending) >= q.capacity {
		// Pending list is ordered priority desc, oldest first, so the
		// tail is the lowest-priority, most recently enqueued job.
		victim := pending[len(pending)-1]
		if victim.Priority >= job.Priority {
			q.logger.Warn("queue full, rejecting job",
				"job", job.Id, "source", job.Source.String(), "priority", job.Priority)
			return ErrQueueFull
		}
		if err := q.jobs.DeleteJob(ctx, victim.Id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		q.logger.Warn("queue full, dropped lowest-priority job",
			"dropped", victim.Id, "dropped_priority", victim.Priority,
			"admitted", job.Id, "admitted_priority", job.Priority)
	}

	if err := q.jobs.PutJob(ctx, job); err != nil {
		return err
	}
	q.logger.Debug("job enqueued", "job", job.Id, "source", job.Source.String(), "priority", job.Priority)
	return nil
}

// Claim atomically claims the highest-priority pending job for the given
// worker, with the supplied liveness TTL. Jobs claimed by a racing worker
// are skipped. Returns ErrNoJobs when nothing is claimable.
func (q *Queue) Claim(ctx context.Context, worker string, ttl time.Duration) (*core.IngestionJob, error) {
	pending, err := q.jobs.ListJobsByStatus(ctx, core.JobPending)
	if err != nil {
		return nil, err
	}

	deadline := core.Now().Add(ttl)
	for _, candidate := range pending {
		job, err := q.jobs.ClaimJob(ctx, candidate.Id, worker, deadline)
		if errors.Is(err, storage.ErrJobClaimed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return job, nil
	}
	return nil, ErrNoJobs
}

// RequeueExpired sweeps running jobs whose liveness deadline has lapsed back
// to pending so another worker can retry them. Returns the number requeued.
func (q *Queue) RequeueExpired(ctx context.Context) (int, error) {
	running, err := q.jobs.ListJobsByStatus(ctx, core.JobRunning)
	if err != nil {
		return 0, err
	}

	now := core.Now()
	requeued := 0
	for _, job := range running {
		if job.Deadline.IsZero() || job.Deadline.After(now) {
			continue
		}
		q.logger.Warn("requeueing abandoned job",
			"job", job.Id, "worker", job.ClaimedBy, "deadline", job.Deadline)

		job.Status = core.JobPending
		job.ClaimedAt = time.Time{}
		job.ClaimedBy = ""
		job.Deadline = time.Time{}
		if err := q.jobs.PutJob(ctx, job); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth(ctx context.Context) (int, error) {
	return q.jobs.CountJobsByStatus(ctx, core.JobPending)
}

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
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// Handler processes one claimed job. Implementations own the job's terminal
// status: on a nil return the job record must already be in a terminal state.
// A returned error makes the workers mark the job failed.
type Handler interface {
	Handle(ctx context.Context, job *core.IngestionJob) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, job *core.IngestionJob) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, job *core.IngestionJob) error {
	return f(ctx, job)
}

const (
	// DefaultClaimTTL is the liveness deadline granted per claim. A worker
	// that dies mid-job loses its claim after this long.
	DefaultClaimTTL = 5 * time.Minute

	// DefaultPollInterval is how often idle workers look for pending jobs.
	DefaultPollInterval = time.Second
)

// Workers pulls jobs from a Queue and dispatches them to a Handler on a
// bounded goroutine pool. Independent jobs run fully in parallel; the
// atomic claim guarantees at most one active worker per job.
type Workers struct {
	queue        *Queue
	jobs         storage.JobRepository
	handler      Handler
	pool         *ants.Pool
	name         string
	claimTTL     time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
	wg           sync.WaitGroup
}

// WorkerOption configures Workers.
type WorkerOption func(*Workers) error

// WithWorkerCount sets the dispatch pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkerCount(count int) WorkerOption {
	return func(w *Workers) error {
		if count < 1 {
			count = 1
		}
		if w.pool != nil {
			w.pool.Release()
		}
		pool, err := ants.NewPool(count)
		if err != nil {
			return err
		}
		w.pool = pool
		return nil
	}
}

// WithClaimTTL sets the liveness deadline granted per claim.
// Default is DefaultClaimTTL.
func WithClaimTTL(ttl time.Duration) WorkerOption {
	return func(w *Workers) error {
		if ttl <= 0 {
			return fmt.Errorf("claim ttl must be positive, got %v", ttl)
		}
		w.claimTTL = ttl
		return nil
	}
}

// WithPollInterval sets how often idle workers poll for pending jobs.
// Default is DefaultPollInterval.
func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Workers) error {
		if interval <= 0 {
			return fmt.Errorf("poll interval must be positive, got %v", interval)
		}
		w.pollInterval = interval
		return nil
	}
}

// WithWorkerLogger sets a custom logger.
// Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Workers) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// WithWorkerName sets the worker identity recorded in job claims.
func WithWorkerName(name string) WorkerOption {
	return func(w *Workers) error {
		if name == "" {
			return errors.New("worker name must not be empty")
		}
		w.name = name
		return nil
	}
}

// NewWorkers creates a worker group draining the given queue. The job
// repository is used to mark jobs failed when the handler errors out.
func NewWorkers(q *Queue, jobs storage.JobRepository, handler Handler, opts ...WorkerOption) (*Workers, error) {
	if q == nil {
		return nil, errors.New("queue required")
	}
	if jobs == nil {
		return nil, errors.New("job repository required")
	}
	if handler == nil {
		return nil, errors.New("handler required")
	}

	w := &Workers{
		queue:        q,
		jobs:         jobs,
		handler:      handler,
		name:         fmt.Sprintf("worker-%d", time.Now().UnixNano()),
		claimTTL:     DefaultClaimTTL,
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			if w.pool != nil {
				w.pool.Release()
			}
			return nil, err
		}
	}

	if w.pool == nil {
		size := runtime.NumCPU() / 2
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return nil, err
		}
		w.pool = pool
	}

	w.logger = w.logger.With("component", "workers", "worker", w.name)
	return w, nil
}

// Run claims and processes jobs until the context is cancelled. Expired
// claims are swept back to pending on every idle poll. Run blocks; call it
// from a goroutine when the caller has other work to do.
func (w *Workers) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			break
		}

		job, err := w.queue.Claim(ctx, w.name, w.claimTTL)
		if errors.Is(err, ErrNoJobs) {
			if _, err := w.queue.RequeueExpired(ctx); err != nil {
				w.logger.Error("liveness sweep failed", "err", err)
			}
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
			continue
		}
		if err != nil {
			w.logger.Error("claim failed", "err", err)
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
			continue
		}

		w.wg.Add(1)
		claimed := job
		if err := w.pool.Submit(func() {
			defer w.wg.Done()
			w.process(ctx, claimed)
		}); err != nil {
			w.wg.Done()
			w.logger.Error("dispatch failed", "job", claimed.Id, "err", err)
		}
	}

	w.wg.Wait()
}

// Release waits for in-flight jobs and frees the dispatch pool.
func (w *Workers) Release() {
	w.wg.Wait()
	w.pool.Release()
}

func (w *Workers) process(ctx context.Context, job *core.IngestionJob) {
	w.logger.Info("processing job", "job", job.Id, "source", job.Source.String())

	if err := w.handler.Handle(ctx, job); err != nil {
		w.logger.Error("job handler failed", "job", job.Id, "err", err)
		w.markFailed(ctx, job, err)
		return
	}
	w.logger.Info("job processed", "job", job.Id, "status", job.Status.String())
}

// markFailed finalizes a job the handler could not complete. Jobs the
// handler already drove to a terminal state are left as they are.
func (w *Workers) markFailed(ctx context.Context, job *core.IngestionJob, cause error) {
	current, err := w.jobs.GetJob(ctx, job.Id)
	if err == nil && current.Status != core.JobRunning {
		return
	}

	job.Status = core.JobFailed
	job.Errors = append(job.Errors, cause.Error())
	job.FinishedAt = core.Now()
	if err := w.jobs.PutJob(ctx, job); err != nil {
		w.logger.Error("failed to mark job failed", "job", job.Id, "err", err)
	}
}

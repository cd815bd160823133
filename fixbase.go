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

package fixbase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fixbase/fixbase/ai"
	"github.com/fixbase/fixbase/ai/openai"
	"github.com/fixbase/fixbase/backoff"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/coverage"
	"github.com/fixbase/fixbase/ingest"
	"github.com/fixbase/fixbase/queue"
	"github.com/fixbase/fixbase/search"
	"github.com/fixbase/fixbase/storage"
	badgerstore "github.com/fixbase/fixbase/storage/badger"
)

// Fetcher resolves a source reference to raw payload bytes plus a
// content-type hint. Fetching itself is a collaborator concern; workers
// use a Fetcher to turn queued jobs into pipeline runs.
type Fetcher interface {
	Fetch(ctx context.Context, source core.SourceRef) (payload []byte, contentType string, err error)
}

// System wires the store, the AI provider, the ingestion pipeline, the work
// queue and the query-path components into one unit.
type System struct {
	store    storage.Store
	provider ai.AIProvider
	pipeline *ingest.Pipeline
	queue    *queue.Queue
	router   *coverage.Router
	gaps     *coverage.GapDetector
	searcher *search.Searcher
	sweeper  *ingest.Sweeper
	linker   *ingest.Linker
	logger   *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	routeConfig   coverage.Config
	retryPolicy   backoff.Policy
	queueCapacity int
	pipelineOpts  []ingest.Option
	logger        *slog.Logger
	inMemory      bool
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies a prebuilt AI provider instead of the OpenAI one.
func WithProvider(provider ai.AIProvider) SystemOption {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithRouteConfig sets the route thresholds.
// Default is coverage.DefaultConfig().
func WithRouteConfig(config coverage.Config) SystemOption {
	return func(o *systemOptions) {
		o.routeConfig = config
	}
}

// WithRetryPolicy sets the backoff policy used by the pipeline and sweeper.
// Default is backoff.DefaultPolicy().
func WithRetryPolicy(policy backoff.Policy) SystemOption {
	return func(o *systemOptions) {
		o.retryPolicy = policy
	}
}

// WithQueueCapacity bounds the pending job queue.
// Default is queue.DefaultCapacity.
func WithQueueCapacity(capacity int) SystemOption {
	return func(o *systemOptions) {
		o.queueCapacity = capacity
	}
}

// WithPipelineOptions forwards options to the ingestion pipeline, such as
// quality gate thresholds and chunk bounds.
func WithPipelineOptions(opts ...ingest.Option) SystemOption {
	return func(o *systemOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithSystemLogger sets a custom logger.
// Default is slog.Default().
func WithSystemLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInMemoryStore backs the system with an in-memory store. The path
// argument to New is ignored. Intended for tests.
func WithInMemoryStore() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// New opens a System over a store at the given path.
func New(path string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:    ai.NewConfig(),
		routeConfig: coverage.DefaultConfig(),
		retryPolicy: backoff.DefaultPolicy(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	var store storage.Store
	var err error
	if options.inMemory {
		store, err = badgerstore.NewMemoryStore()
	} else {
		store, err = badgerstore.NewStore(path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating AI provider: %w", err)
		}
	}

	pipelineOpts := append([]ingest.Option{
		ingest.WithLogger(options.logger),
		ingest.WithRetryPolicy(options.retryPolicy),
	}, options.pipelineOpts...)
	pipeline, err := ingest.NewPipeline(store, provider, pipelineOpts...)
	if err != nil {
		provider.Close()
		store.Close()
		return nil, err
	}

	queueOpts := []queue.Option{queue.WithLogger(options.logger)}
	if options.queueCapacity > 0 {
		queueOpts = append(queueOpts, queue.WithCapacity(options.queueCapacity))
	}
	jobQueue, err := queue.New(store, queueOpts...)
	if err != nil {
		pipeline.Release()
		provider.Close()
		store.Close()
		return nil, err
	}

	evaluator, err := coverage.NewEvaluator(store, coverage.WithEvaluatorLogger(options.logger))
	if err != nil {
		pipeline.Release()
		provider.Close()
		store.Close()
		return nil, err
	}
	router := coverage.NewRouter(evaluator, options.routeConfig, options.logger)
	gaps := coverage.NewGapDetector(jobQueue, coverage.WithGapLogger(options.logger))

	searcher, err := search.NewSearcher(store, provider, search.WithLogger(options.logger))
	if err != nil {
		pipeline.Release()
		provider.Close()
		store.Close()
		return nil, err
	}

	sweeper := ingest.NewSweeper(store, jobQueue, options.retryPolicy, 0, options.logger)

	return &System{
		store:    store,
		provider: provider,
		pipeline: pipeline,
		queue:    jobQueue,
		router:   router,
		gaps:     gaps,
		searcher: searcher,
		sweeper:  sweeper,
		linker:   ingest.NewLinker(store, store, options.logger),
		logger:   options.logger,
	}, nil
}

// Close releases the pipeline, the AI provider and the store.
func (s *System) Close() error {
	s.pipeline.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Ingest runs the full pipeline synchronously for one payload. Success is
// true only when atoms were created, or when the source was legitimately
// empty or duplicate with no errors.
func (s *System) Ingest(ctx context.Context, sourceURL string, payload []byte, contentType string) (*ingest.Result, error) {
	job := &core.IngestionJob{
		Source:     core.SourceRef{URL: sourceURL},
		Status:     core.JobRunning,
		EnqueuedAt: core.Now(),
		ClaimedAt:  core.Now(),
	}
	return s.pipeline.Run(ctx, job, payload, contentType)
}

// EvaluateCoverage routes a query and feeds the decision to the gap
// detector. The gap side effect is fire-and-forget; the decision returns
// immediately.
func (s *System) EvaluateCoverage(ctx context.Context, query string) *coverage.Decision {
	decision := s.router.Select(ctx, query)
	s.gaps.Observe(ctx, decision)
	return decision
}

// SearchAtoms runs a hybrid lexical and semantic search over stored atoms.
func (s *System) SearchAtoms(ctx context.Context, query string, filters search.Filters, maxHits int) ([]*core.SearchResult, error) {
	return s.searcher.Search(ctx, query, filters, maxHits)
}

// Enqueue adds an ingestion job for background processing.
func (s *System) Enqueue(ctx context.Context, job *core.IngestionJob) error {
	return s.queue.Enqueue(ctx, job)
}

// NewWorkers creates a worker group that drains the job queue through the
// pipeline, using the fetcher to resolve each job's source into bytes.
func (s *System) NewWorkers(fetcher Fetcher, opts ...queue.WorkerOption) (*queue.Workers, error) {
	handler := queue.HandlerFunc(func(ctx context.Context, job *core.IngestionJob) error {
		payload, contentType, err := fetcher.Fetch(ctx, job.Source)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", job.Source.String(), err)
		}
		_, err = s.pipeline.Run(ctx, job, payload, contentType)
		return err
	})
	return queue.NewWorkers(s.queue, s.store, handler, opts...)
}

// RunSweeper retries failed ingestions on the given interval until the
// context is cancelled.
func (s *System) RunSweeper(ctx context.Context, interval time.Duration) {
	s.sweeper.Run(ctx, interval)
}

// SweepFailures runs one sweep over due ingestion failures.
func (s *System) SweepFailures(ctx context.Context) (int, error) {
	return s.sweeper.Sweep(ctx)
}

// SupersedeAtom records that newID replaces oldID and marks the relations
// originating at the old atom as superseded.
func (s *System) SupersedeAtom(ctx context.Context, newID, oldID core.ID) error {
	return s.linker.Supersede(ctx, newID, oldID)
}

// PendingReviews lists review entries awaiting a decision.
func (s *System) PendingReviews(ctx context.Context) ([]*core.ReviewEntry, error) {
	return s.store.ListPendingReviews(ctx)
}

// ApproveReview converts a pending review entry into a stored atom. The
// atom is embedded before the upsert so it participates in vector search.
func (s *System) ApproveReview(ctx context.Context, id core.ID) (*core.Atom, error) {
	entry, err := s.store.GetReviewEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Decision != core.ReviewPending {
		return nil, fmt.Errorf("review entry %d already decided", id)
	}

	atom := entry.Atom
	text := atom.Title + "\n" + atom.Summary
	if atom.Body != "" {
		text += "\n" + atom.Body
	}
	vector, err := s.provider.Embedder().EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding approved atom: %w", err)
	}
	atom.Vector = vector

	if _, err := s.store.UpsertAtoms(ctx, &atom); err != nil {
		return nil, err
	}
	if err := s.store.DeleteReviewEntry(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("review entry approved", "atom", atom.Id, "title", atom.Title)
	return &atom, nil
}

// RejectReview discards a pending review entry.
func (s *System) RejectReview(ctx context.Context, id core.ID) error {
	entry, err := s.store.GetReviewEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.Decision != core.ReviewPending {
		return fmt.Errorf("review entry %d already decided", id)
	}

	if err := s.store.DeleteReviewEntry(ctx, id); err != nil {
		return err
	}
	s.logger.Info("review entry rejected", "atom", entry.Atom.Id, "title", entry.Atom.Title)
	return nil
}

// Store exposes the underlying repositories.
func (s *System) Store() storage.Store { return s.store }

// Queue exposes the job queue.
func (s *System) Queue() *queue.Queue { return s.queue }

// Searcher exposes the atom searcher.
func (s *System) Searcher() *search.Searcher { return s.searcher }

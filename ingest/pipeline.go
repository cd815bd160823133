package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/fixbase/fixbase/ai"
	"github.com/fixbase/fixbase/backoff"
	"github.com/fixbase/fixbase/core"
	"github.com/fixbase/fixbase/storage"
)

// candidate sequence numbers leave room for the per-chunk candidate cap while
// staying deterministic across runs.
const seqPerChunk = 100

// Result reports the outcome of one ingestion job.
type Result struct {
	AtomsCreated int
	AtomsFailed  int
	Duplicate    bool
	Errors       []string
}

// Success is true when atoms were created, or when the source was
// legitimately empty or duplicate and nothing failed.
func (r *Result) Success() bool {
	return r.AtomsCreated > 0 || len(r.Errors) == 0
}

// Pipeline runs the ingestion stages for one job: fingerprint, extract,
// chunk, generate, quality gate, embed, store, relate. Chunks are processed
// in parallel; one failing chunk never aborts the job.
type Pipeline struct {
	store     storage.Store
	provider  ai.AIProvider
	extractor *Extractor
	chunker   *Chunker
	gate      *Gate
	linker    *Linker
	pool      *ants.Pool
	retry     backoff.Policy
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the chunk worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithGate replaces the default quality gate.
func WithGate(gate *Gate) Option {
	return func(p *Pipeline) error {
		p.gate = gate
		return nil
	}
}

// WithChunkBounds sets the chunker's size and overlap in characters.
func WithChunkBounds(size, overlap int) Option {
	return func(p *Pipeline) error {
		p.chunker = NewChunker(size, overlap)
		return nil
	}
}

// WithRetryPolicy sets the backoff policy used by the generation, embedding
// and storage stages.
func WithRetryPolicy(policy backoff.Policy) Option {
	return func(p *Pipeline) error {
		p.retry = policy
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the given store and AI provider.
func NewPipeline(store storage.Store, provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	gate, err := NewGate()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		store:     store,
		provider:  provider,
		extractor: NewExtractor(),
		chunker:   NewChunker(DefaultChunkSize, DefaultChunkOverlap),
		gate:      gate,
		pool:      pool,
		retry:     backoff.DefaultPolicy(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.linker = NewLinker(store, store, p.logger)
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// Release releases the chunk worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run executes all stages for the job against an already-fetched payload.
// The job record is updated with stage timings, counters and terminal status.
// Stage failures are classified into FailedIngestion records; the returned
// error is reserved for infrastructure faults that prevent any processing.
func (p *Pipeline) Run(ctx context.Context, job *core.IngestionJob, payload []byte, contentType string) (*Result, error) {
	if job.StageTimings == nil {
		job.StageTimings = make(map[string]time.Duration)
	}
	result := &Result{}

	// Fingerprint: identical content short-circuits every later stage.
	stageStart := time.Now()
	hash := core.HashContent(payload)
	seen, err := p.store.CheckAndRecord(ctx, &core.Fingerprint{
		Hash:   hash,
		Source: job.Source,
	})
	job.StageTimings[StageFingerprint] = time.Since(stageStart)
	if err != nil {
		return p.finishJob(ctx, job, result, &StorageError{Err: err})
	}
	if seen {
		p.logger.Info("duplicate content, skipping", "source", job.Source.String(), "hash", hash)
		result.Duplicate = true
		return p.finishJob(ctx, job, result, nil)
	}

	// Extract.
	stageStart = time.Now()
	extraction, err := p.extractor.Extract(job.Source, payload, contentType)
	job.StageTimings[StageExtract] = time.Since(stageStart)
	if err != nil {
		p.recordFailure(ctx, job.Source, StageExtract, err)
		return p.finishJob(ctx, job, result, err)
	}

	// Chunk.
	stageStart = time.Now()
	chunks, err := p.chunker.Chunk(extraction, job.Source)
	job.StageTimings[StageChunk] = time.Since(stageStart)
	if err != nil {
		p.recordFailure(ctx, job.Source, StageChunk, err)
		return p.finishJob(ctx, job, result, err)
	}
	if len(chunks) == 0 {
		// Legitimately empty source
		return p.finishJob(ctx, job, result, nil)
	}

	// Generate, gate, embed and store, per chunk with failure isolation.
	stageStart = time.Now()
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		stored []*core.Atom
	)
	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			atoms, failed, chunkErrs := p.processChunk(ctx, job, hash, chunk)
			mu.Lock()
			stored = append(stored, atoms...)
			result.AtomsCreated += len(atoms)
			result.AtomsFailed += failed
			result.Errors = append(result.Errors, chunkErrs...)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.Errors = append(result.Errors, submitErr.Error())
			mu.Unlock()
		}
	}
	wg.Wait()
	job.StageTimings[StageGenerate] = time.Since(stageStart)

	// Relate: best-effort, never fails the job.
	stageStart = time.Now()
	if len(stored) > 0 {
		linked := p.linker.Link(ctx, stored)
		p.logger.Debug("relation linking done", "job", job.Id, "relations", linked)
	}
	job.StageTimings[StageRelate] = time.Since(stageStart)

	return p.finishJob(ctx, job, result, nil)
}

// processChunk runs generation, the quality gate, embedding and storage for
// one chunk. Returns stored atoms, the failed-atom count, and error strings.
func (p *Pipeline) processChunk(ctx context.Context, job *core.IngestionJob, contentHash string, chunk ai.Chunk) ([]*core.Atom, int, []string) {
	var candidates []ai.AtomCandidate
	err := p.retry.Do(ctx, func() error {
		var genErr error
		candidates, genErr = p.provider.AtomGenerator().GenerateAtoms(ctx, chunk)
		return genErr
	})
	if err != nil {
		genErr := &GenerationError{Chunk: chunk.Index, Err: err}
		p.recordFailure(ctx, job.Source, StageGenerate, genErr)
		return nil, 1, []string{genErr.Error()}
	}

	var (
		stored []*core.Atom
		errs   []string
		failed int
	)
	for j, cand := range candidates {
		atom := candidateToAtom(cand, job.Source, contentHash, chunk.Index*seqPerChunk+j)

		if err := core.ValidateAtom(atom); err != nil {
			p.logger.Debug("dropping invalid candidate", "job", job.Id, "title", cand.Title, "err", err)
			continue
		}

		score, outcome, reasons := p.gate.Evaluate(atom)
		atom.QualityScore = score

		switch outcome {
		case OutcomeDiscard:
			p.logger.Info("candidate discarded",
				"job", job.Id, "title", atom.Title, "score", score, "reasons", strings.Join(reasons, "; "))
			continue

		case OutcomeReview:
			entry := &core.ReviewEntry{
				Id:         atom.Id,
				Atom:       *atom,
				Decision:   core.ReviewPending,
				InsertedAt: core.Now(),
			}
			if err := p.store.PutReviewEntry(ctx, entry); err != nil {
				p.recordFailure(ctx, job.Source, StageStore, &StorageError{Err: err})
				errs = append(errs, err.Error())
				failed++
				continue
			}
			p.logger.Info("candidate queued for review", "job", job.Id, "title", atom.Title, "score", score)
			continue
		}

		// Accepted: embed then store.
		if err := p.embedAtom(ctx, atom); err != nil {
			p.recordFailure(ctx, job.Source, StageEmbed, err)
			errs = append(errs, err.Error())
			failed++
			continue
		}

		err := p.retry.Do(ctx, func() error {
			_, upErr := p.store.UpsertAtoms(ctx, atom)
			return upErr
		})
		if err != nil {
			stoErr := &StorageError{Err: err}
			p.recordFailure(ctx, job.Source, StageStore, stoErr)
			errs = append(errs, stoErr.Error())
			failed++
			continue
		}
		stored = append(stored, atom)
	}

	return stored, failed, errs
}

// embedAtom computes and attaches the atom's vector.
func (p *Pipeline) embedAtom(ctx context.Context, atom *core.Atom) error {
	text := atom.Title + "\n" + atom.Summary
	if atom.Body != "" {
		text += "\n" + atom.Body
	}

	err := p.retry.Do(ctx, func() error {
		vector, embErr := p.provider.Embedder().EmbedText(ctx, text)
		if embErr != nil {
			return embErr
		}
		atom.Vector = vector
		return nil
	})
	if err != nil {
		return &EmbeddingError{Err: err}
	}
	return nil
}

// finishJob assigns the terminal status, persists the job record and maps a
// fatal stage error into the result.
func (p *Pipeline) finishJob(ctx context.Context, job *core.IngestionJob, result *Result, fatal error) (*Result, error) {
	if fatal != nil {
		result.Errors = append(result.Errors, fatal.Error())
	}

	job.AtomsCreated = result.AtomsCreated
	job.AtomsFailed = result.AtomsFailed
	job.Errors = result.Errors
	job.FinishedAt = core.Now()

	switch {
	case fatal != nil && result.AtomsCreated == 0:
		job.Status = core.JobFailed
	case len(result.Errors) > 0 && result.AtomsCreated > 0:
		job.Status = core.JobPartial
	case len(result.Errors) > 0:
		job.Status = core.JobFailed
	default:
		job.Status = core.JobCompleted
	}

	if job.Id != "" {
		if err := p.store.PutJob(ctx, job); err != nil {
			p.logger.Error("failed to persist job record", "job", job.Id, "err", err)
		}
	}

	// A clean run resolves any earlier stage failures for this source.
	if job.Status == core.JobCompleted && !result.Duplicate {
		p.resolveFailures(ctx, job.Source)
	}

	p.logger.Info("job finished",
		"job", job.Id,
		"status", job.Status.String(),
		"created", result.AtomsCreated,
		"failed", result.AtomsFailed,
		"duplicate", result.Duplicate)

	return result, nil
}

// resolveFailures marks unresolved failure records for the source as
// resolved after a clean run.
func (p *Pipeline) resolveFailures(ctx context.Context, source core.SourceRef) {
	stages := []string{StageFingerprint, StageExtract, StageChunk, StageGenerate, StageQuality, StageEmbed, StageStore, StageRelate}
	for _, stage := range stages {
		id := core.FailedIngestionID(source, stage)
		failure, err := p.store.GetFailure(ctx, id)
		if err != nil || failure.Resolved {
			continue
		}
		if err := p.store.MarkResolved(ctx, id); err != nil {
			p.logger.Warn("failed to resolve ingestion failure", "source", source.String(), "stage", stage, "err", err)
		}
	}
}

// recordFailure classifies a stage error into a FailedIngestion record with
// the retry schedule advanced.
func (p *Pipeline) recordFailure(ctx context.Context, source core.SourceRef, stage string, err error) {
	now := core.Now()
	id := core.FailedIngestionID(source, stage)

	// The sweep owns the retry counter; recurrences only refresh the record
	retryCount := 0
	if old, getErr := p.store.GetFailure(ctx, id); getErr == nil {
		retryCount = old.RetryCount
	}

	failure := &core.FailedIngestion{
		Id:          id,
		Source:      source,
		Stage:       stage,
		Message:     err.Error(),
		RetryCount:  retryCount,
		NextRetryAt: now.Add(p.retry.Delay(retryCount + 1)),
	}
	if _, recErr := p.store.RecordFailure(ctx, failure); recErr != nil {
		p.logger.Error("failed to record ingestion failure",
			"source", source.String(), "stage", stage, "err", recErr)
	}
}

// candidateToAtom converts a generator candidate into a storable atom with a
// deterministic identity.
func candidateToAtom(cand ai.AtomCandidate, source core.SourceRef, contentHash string, seq int) *core.Atom {
	now := core.Now()

	citations := make([]core.Citation, 0, len(cand.Citations))
	for _, c := range cand.Citations {
		citations = append(citations, core.Citation{
			URL:        c.URL,
			Title:      c.Title,
			AccessedAt: now,
		})
	}

	return &core.Atom{
		Id:             core.AtomID(source, contentHash, seq),
		Kind:           core.ParseAtomKind(cand.Kind),
		Title:          cand.Title,
		Summary:        cand.Summary,
		Body:           cand.Body,
		Manufacturer:   cand.Manufacturer,
		ProductFamily:  cand.ProductFamily,
		ProductVersion: cand.ProductVersion,
		Difficulty:     parseDifficulty(cand.Difficulty),
		SafetyLevel:    parseSafetyLevel(cand.SafetyLevel),
		SafetyNotes:    cand.SafetyNotes,
		Keywords:       cand.Keywords,
		Steps:          cand.Steps,
		FaultCode:      cand.FaultCode,
		Source:         source,
		Citations:      citations,
	}
}

func parseDifficulty(s string) core.Difficulty {
	switch s {
	case "basic":
		return core.DifficultyBasic
	case "intermediate":
		return core.DifficultyIntermediate
	case "advanced":
		return core.DifficultyAdvanced
	default:
		return core.DifficultyBasic
	}
}

func parseSafetyLevel(s string) core.SafetyLevel {
	switch s {
	case "warning":
		return core.SafetyWarning
	case "danger":
		return core.SafetyDanger
	default:
		return core.SafetyInfo
	}
}

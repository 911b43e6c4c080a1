// Package batch drives extraction across many documents: bounded
// concurrency, inter-call throttling, per-document failure isolation, and
// fire-and-forget progress events.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gridline/contract-engine/internal/engine"
	"github.com/gridline/contract-engine/internal/types"
)

// Pipeline is the per-document extraction the orchestrator drives.
type Pipeline interface {
	ClassifyAndExtract(ctx context.Context, doc engine.Document) (*types.ExtractionResult, error)
}

// Loader resolves a document ID to its payload. Document content lives
// outside the engine; the orchestrator only ever sees IDs.
type Loader interface {
	Load(ctx context.Context, documentID string) (engine.Document, error)
}

// Config tunes the orchestrator's throttling. Defaults are conservative,
// sized for the most restrictive backend's published rate limit.
type Config struct {
	MaxConcurrency int
	InterCallDelay time.Duration
	EventBuffer    int
}

// DefaultConfig returns the default throttling configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		InterCallDelay: 500 * time.Millisecond,
		EventBuffer:    64,
	}
}

// Orchestrator runs one batch job. An instance is single-use: Run closes
// all subscriber channels when the job finishes, so build a fresh
// orchestrator (and re-subscribe) for each job.
type Orchestrator struct {
	pipeline Pipeline
	loader   Loader
	config   Config
	events   *broadcaster
	log      zerolog.Logger
	started  atomic.Bool
}

// New builds an orchestrator.
func New(pipeline Pipeline, loader Loader, config Config, log zerolog.Logger) (*Orchestrator, error) {
	if pipeline == nil || loader == nil {
		return nil, fmt.Errorf("pipeline and loader are required")
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if config.InterCallDelay < 0 {
		return nil, fmt.Errorf("inter-call delay must be non-negative")
	}
	return &Orchestrator{
		pipeline: pipeline,
		loader:   loader,
		config:   config,
		events:   newBroadcaster(config.EventBuffer),
		log:      log,
	}, nil
}

// Subscribe registers a progress observer. Events are delivered in outcome
// order with a drop-oldest policy when the observer lags; emission never
// blocks the pipeline. Subscribe before calling Run.
func (o *Orchestrator) Subscribe() <-chan Event {
	return o.events.subscribe()
}

// Run processes every document and returns the finished job. Cancelling
// ctx stops new documents from starting; in-flight pipelines are allowed
// to complete so no partial merge is ever recorded. A single document's
// failure never aborts the batch. Run may be called once per orchestrator;
// a second call returns an error.
func (o *Orchestrator) Run(ctx context.Context, documentIDs []string) (*types.BatchJob, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("at least one document ID is required")
	}
	if !o.started.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("orchestrator is single-use: Run was already called")
	}

	job := &types.BatchJob{
		JobID:       uuid.New(),
		DocumentIDs: append([]string(nil), documentIDs...),
		Status:      types.BatchPending,
		Outcomes:    make(map[string]types.DocumentOutcome, len(documentIDs)),
	}

	var limiter *rate.Limiter
	if o.config.InterCallDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(o.config.InterCallDelay), 1)
	}

	// In-flight pipelines outlive cancellation; only scheduling observes it.
	pipelineCtx := context.WithoutCancel(ctx)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.config.MaxConcurrency)

	for _, documentID := range job.DocumentIDs {
		if ctx.Err() != nil {
			o.log.Info().Str("job_id", job.JobID.String()).Msg("cancellation observed, not scheduling further documents")
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		documentID := documentID
		g.Go(func() error {
			mu.Lock()
			if job.Status == types.BatchPending {
				job.Status = types.BatchRunning
				job.StartedAt = time.Now()
				o.events.emit(Event{Kind: EventJobStarted, JobID: job.JobID, Status: job.Status, At: job.StartedAt})
			}
			mu.Unlock()

			outcome := o.processDocument(pipelineCtx, documentID)

			mu.Lock()
			job.Outcomes[documentID] = outcome
			if outcome.Result != nil {
				job.Usage.Add(outcome.Result.Usage)
			}
			mu.Unlock()

			o.events.emit(Event{
				Kind:       EventDocumentProcessed,
				JobID:      job.JobID,
				DocumentID: documentID,
				Outcome:    &outcome,
				At:         time.Now(),
			})
			return nil
		})
	}

	_ = g.Wait()

	job.CompletedAt = time.Now()
	job.Status = finalStatus(job)
	o.events.emit(Event{Kind: EventJobCompleted, JobID: job.JobID, Status: job.Status, At: job.CompletedAt})
	o.events.close()

	o.log.Info().
		Str("job_id", job.JobID.String()).
		Str("status", string(job.Status)).
		Int("documents", len(job.Outcomes)).
		Int("failures", job.FailureCount()).
		Msg("batch completed")

	return job, nil
}

// processDocument isolates one document's pipeline: any failure becomes a
// FailureRecord, never an aborted batch.
func (o *Orchestrator) processDocument(ctx context.Context, documentID string) types.DocumentOutcome {
	doc, err := o.loader.Load(ctx, documentID)
	if err != nil {
		return failureOutcome(documentID, fmt.Errorf("failed to load document: %w", err))
	}

	result, err := o.pipeline.ClassifyAndExtract(ctx, doc)
	if err != nil {
		o.log.Warn().Str("document_id", documentID).Err(err).Msg("document pipeline failed")
		return failureOutcome(documentID, err)
	}
	return types.DocumentOutcome{Result: result}
}

func failureOutcome(documentID string, err error) types.DocumentOutcome {
	return types.DocumentOutcome{Failure: &types.FailureRecord{
		DocumentID: documentID,
		Cause:      err.Error(),
		FailedAt:   time.Now(),
	}}
}

// finalStatus derives the terminal state: Completed with zero failures,
// Failed when everything failed, PartiallyFailed otherwise. A job whose
// scheduling was cancelled before any document ran completes as Failed
// only if it produced outcomes that all failed.
func finalStatus(job *types.BatchJob) types.BatchStatus {
	failures := job.FailureCount()
	switch {
	case failures == 0:
		return types.BatchCompleted
	case failures == len(job.Outcomes):
		return types.BatchFailed
	default:
		return types.BatchPartiallyFailed
	}
}

// -----------------------------------------------------------------------
// Batch Processor - Bounded concurrent content generation over the item store
// -----------------------------------------------------------------------

package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

// Processor runs one batch at a time. Each run selects the eligible items,
// drains them through a fixed pool of workers calling the content generator,
// and records every terminal transition in the store.
type Processor struct {
	store    interfaces.ItemStore
	observer Observer
	logger   arbor.ILogger

	genMu     sync.RWMutex
	generator interfaces.ContentGenerator

	// notifyMu orders progress notifications by completion count
	notifyMu sync.Mutex

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	progress models.RunProgress
	done     chan struct{}

	credentialsInvalid atomic.Bool

	newID func() string
	now   func() time.Time
}

// NewProcessor creates a processor. A nil observer is replaced by NoopObserver.
func NewProcessor(store interfaces.ItemStore, generator interfaces.ContentGenerator, observer Observer, logger arbor.ILogger) *Processor {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Processor{
		store:     store,
		generator: generator,
		observer:  observer,
		logger:    logger,
		newID:     common.NewRunID,
		now:       time.Now,
	}
}

// run is the state captured when a run claims the processor
type run struct {
	id        string
	config    models.RunConfiguration
	indices   []int
	ctx       context.Context
	cancel    context.CancelFunc
	startedAt time.Time
	done      chan struct{}

	completed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	authFail  atomic.Bool
}

// Run executes a batch synchronously and returns the final progress.
// An empty selection returns immediately with zero progress and no error.
func (p *Processor) Run(ctx context.Context, cfg models.RunConfiguration) (models.RunProgress, error) {
	r, err := p.claim(ctx, cfg)
	if err != nil || r == nil {
		return models.RunProgress{}, err
	}
	return p.execute(r), nil
}

// Start claims the processor and drains the batch in the background.
// Validation and run-slot errors are returned synchronously. The returned
// progress is the initial state of the run.
func (p *Processor) Start(ctx context.Context, cfg models.RunConfiguration) (models.RunProgress, error) {
	r, err := p.claim(ctx, cfg)
	if err != nil || r == nil {
		return models.RunProgress{}, err
	}

	initial := p.Progress()
	common.SafeGo(p.logger, "batch-run-"+r.id, func() {
		p.execute(r)
	})
	return initial, nil
}

// Cancel stops dispatching new items for the active run. In-flight items
// finish normally. Returns false when no run is active.
func (p *Processor) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running || p.cancel == nil {
		return false
	}
	p.cancel()
	p.logger.Info().Str("run_id", p.progress.RunID).Msg("Batch run cancellation requested")
	return true
}

// Wait blocks until the active run (if any) has finished or ctx is done
func (p *Processor) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a run is draining
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Progress returns the progress of the active run, or of the last one
func (p *Processor) Progress() models.RunProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Reset clears the item store. It fails with ErrRunAlreadyInProgress while a
// run is draining; the check and the clear share the run lock so no run can
// claim items in between.
func (p *Processor) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrRunAlreadyInProgress
	}
	p.store.Clear()
	p.progress = models.RunProgress{}
	return nil
}

// CredentialsInvalid reports whether any item failed with an authorization error
// since the last ResetCredentials
func (p *Processor) CredentialsInvalid() bool {
	return p.credentialsInvalid.Load()
}

// ResetCredentials clears the credentials-invalid flag
func (p *Processor) ResetCredentials() {
	p.credentialsInvalid.Store(false)
}

// SetGenerator swaps the content generator used by subsequent item calls
func (p *Processor) SetGenerator(generator interfaces.ContentGenerator) {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	p.generator = generator
}

func (p *Processor) currentGenerator() interfaces.ContentGenerator {
	p.genMu.RLock()
	defer p.genMu.RUnlock()
	return p.generator
}

// claim validates cfg, takes the run slot and selects the eligible indices.
// A nil run with a nil error means nothing was eligible.
func (p *Processor) claim(ctx context.Context, cfg models.RunConfiguration) (*run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil, ErrRunAlreadyInProgress
	}

	indices := selectEligible(p.store.Snapshot(), cfg.Selection)
	if len(indices) == 0 {
		p.logger.Info().Msg("No eligible items for batch run")
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:        p.newID(),
		config:    cfg,
		indices:   indices,
		ctx:       runCtx,
		cancel:    cancel,
		startedAt: p.now(),
		done:      make(chan struct{}),
	}

	p.running = true
	p.cancel = cancel
	p.done = r.done
	p.progress = models.RunProgress{
		RunID:   r.id,
		Total:   len(indices),
		Running: true,
	}

	return r, nil
}

// selectEligible returns the indices of Pending and Error items in store order,
// capped by the selection limit
func selectEligible(items []models.WorkItem, selection models.SelectionLimit) []int {
	eligible := make([]int, 0, len(items))
	for _, item := range items {
		if item.Status.IsEligible() {
			eligible = append(eligible, item.Index)
		}
	}
	return eligible[:selection.Apply(len(eligible))]
}

// execute drains the run's queue and releases the run slot
func (p *Processor) execute(r *run) models.RunProgress {
	workers := min(r.config.Concurrency, len(r.indices))
	queue := newIndexQueue(r.indices)

	p.logger.Info().
		Str("run_id", r.id).
		Int("selected", len(r.indices)).
		Int("workers", workers).
		Str("topic", r.config.Settings.Topic).
		Str("language", r.config.Settings.Language).
		Msg("Batch run started")

	p.observer.OnRunStarted(p.Progress())

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		worker := w
		g.Go(func() error {
			p.work(r, worker, queue)
			return nil
		})
	}
	_ = g.Wait()

	return p.finish(r, queue.Len())
}

// work pops indices until the queue is drained or the run is cancelled
func (p *Processor) work(r *run, worker int, queue *indexQueue) {
	for {
		if r.ctx.Err() != nil {
			return
		}
		index, ok := queue.Pop()
		if !ok {
			return
		}
		p.processItem(r, worker, index)
	}
}

// processItem moves one item through Processing to a terminal state
func (p *Processor) processItem(r *run, worker, index int) {
	item, err := p.store.Update(index, models.MarkProcessing())
	if err != nil {
		p.logger.Error().Err(err).Int("index", index).Msg("Failed to claim item")
		r.failed.Add(1)
		p.advance(r)
		return
	}
	p.observer.OnItemStarted(index)

	// In-flight generation is allowed to finish after a cancel
	genCtx := context.WithoutCancel(r.ctx)
	req := models.NewGenerationRequest(item, r.config.Settings)

	started := p.now()
	content, genErr := p.generate(genCtx, req)
	if genErr == nil && content == nil {
		genErr = errEmptyContent
	}

	var patch models.ItemPatch
	if genErr != nil {
		patch = models.MarkError(errorMessage(genErr))
	} else {
		patch = models.MarkCompleted(content)
	}

	updated, err := p.store.Update(index, patch)
	if err != nil {
		p.logger.Error().Err(err).Int("index", index).Msg("Failed to record item result")
	}

	if genErr != nil {
		r.failed.Add(1)
		p.logger.Warn().
			Str("run_id", r.id).
			Int("worker", worker).
			Int("index", index).
			Str("keyword", item.Keyword).
			Err(genErr).
			Msg("Item generation failed")

		if IsAuthorizationError(genErr) {
			r.authFail.Store(true)
			p.credentialsInvalid.Store(true)
			p.observer.OnCredentialsInvalid(index, genErr)
		}
	} else {
		r.succeeded.Add(1)
		p.logger.Debug().
			Str("run_id", r.id).
			Int("worker", worker).
			Int("index", index).
			Str("keyword", item.Keyword).
			Dur("elapsed", p.now().Sub(started)).
			Msg("Item generated")
	}

	if err == nil {
		p.observer.OnItemFinished(updated)
	}
	p.advance(r)
}

// generate calls the generator, converting a panic into an item error
func (p *Processor) generate(ctx context.Context, req *models.GenerationRequest) (content *models.ContentFields, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			p.logger.Error().
				Str("panic", fmt.Sprintf("%v", rec)).
				Str("stack", string(buf[:n])).
				Str("keyword", req.Keyword).
				Msg("Recovered from panic in content generator")
			content = nil
			err = fmt.Errorf("generator panic: %v", rec)
		}
	}()

	generator := p.currentGenerator()
	if generator == nil {
		return nil, fmt.Errorf("no content generator configured")
	}
	return generator.Generate(ctx, req)
}

// advance counts one terminal transition and publishes the new progress.
// Observers see Completed strictly increasing within a run.
func (p *Processor) advance(r *run) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	completed := int(r.completed.Add(1))
	total := len(r.indices)

	p.mu.Lock()
	p.progress.Completed = completed
	p.progress.Percent = models.ProgressPercent(completed, total)
	p.progress.Succeeded = int(r.succeeded.Load())
	p.progress.Failed = int(r.failed.Load())
	progress := p.progress
	p.mu.Unlock()

	p.observer.OnProgress(progress)
}

// finish releases the run slot and reports the run summary
func (p *Processor) finish(r *run, undispatched int) models.RunProgress {
	cancelled := r.ctx.Err() != nil && undispatched > 0
	r.cancel()

	record := models.RunRecord{
		ID:                 r.id,
		StartedAt:          r.startedAt,
		FinishedAt:         p.now(),
		Settings:           r.config.Settings,
		Concurrency:        r.config.Concurrency,
		Selected:           len(r.indices),
		Succeeded:          int(r.succeeded.Load()),
		Failed:             int(r.failed.Load()),
		Cancelled:          cancelled,
		CredentialsInvalid: r.authFail.Load(),
	}

	p.mu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.progress.Running = false
	p.progress.Cancelled = cancelled
	p.progress.Succeeded = record.Succeeded
	p.progress.Failed = record.Failed
	final := p.progress
	p.mu.Unlock()

	p.logger.Info().
		Str("run_id", r.id).
		Int("selected", record.Selected).
		Int("succeeded", record.Succeeded).
		Int("failed", record.Failed).
		Bool("cancelled", cancelled).
		Dur("duration", record.Duration()).
		Msg("Batch run finished")

	p.observer.OnRunFinished(record)
	close(r.done)

	return final
}

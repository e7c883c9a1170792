package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/models"
)

// ProgressAggregator coalesces run progress updates so clients receive at most
// one update per interval. The final update of a run is always delivered
// immediately. Within a run, delivered Completed values never decrease.
type ProgressAggregator struct {
	mu            sync.Mutex
	timeThreshold time.Duration

	pending     *models.RunProgress
	lastTrigger time.Time

	// Last delivered update
	sentRunID     string
	sentCompleted int

	// deliverMu serializes onTrigger so a flush cannot overtake a newer update
	deliverMu sync.Mutex
	onTrigger func(ctx context.Context, progress models.RunProgress)

	logger arbor.ILogger
}

// NewProgressAggregator creates an aggregator with time-based triggering
func NewProgressAggregator(
	timeThreshold time.Duration,
	onTrigger func(ctx context.Context, progress models.RunProgress),
	logger arbor.ILogger,
) *ProgressAggregator {
	if timeThreshold <= 0 {
		timeThreshold = 250 * time.Millisecond
	}

	return &ProgressAggregator{
		timeThreshold: timeThreshold,
		onTrigger:     onTrigger,
		logger:        logger,
	}
}

// stale reports whether progress is behind the pending or delivered update
// of the same run. Callers hold a.mu.
func (a *ProgressAggregator) stale(progress models.RunProgress) bool {
	if a.pending != nil && a.pending.RunID == progress.RunID && a.pending.Completed > progress.Completed {
		return true
	}
	return a.sentRunID == progress.RunID && a.sentCompleted > progress.Completed
}

// Record stores the latest progress. Finished runs and updates arriving after a
// quiet period are delivered straight away; others wait for the next flush.
// Updates older than one already pending or delivered are dropped.
func (a *ProgressAggregator) Record(ctx context.Context, progress models.RunProgress) {
	a.mu.Lock()
	if a.stale(progress) {
		a.mu.Unlock()
		return
	}

	final := !progress.Running || progress.Completed >= progress.Total
	if final || time.Since(a.lastTrigger) >= a.timeThreshold {
		a.pending = nil
		a.lastTrigger = time.Now()
		a.mu.Unlock()
		a.deliver(ctx, progress)
		return
	}

	p := progress
	a.pending = &p
	a.mu.Unlock()
}

// Flush delivers the pending update, if any
func (a *ProgressAggregator) Flush(ctx context.Context) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	if pending != nil {
		a.lastTrigger = time.Now()
	}
	a.mu.Unlock()

	if pending != nil {
		a.deliver(ctx, *pending)
	}
}

// deliver hands progress to onTrigger unless a newer update of the same run
// has already gone out
func (a *ProgressAggregator) deliver(ctx context.Context, progress models.RunProgress) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()

	a.mu.Lock()
	if a.sentRunID == progress.RunID && a.sentCompleted > progress.Completed {
		a.mu.Unlock()
		return
	}
	a.sentRunID = progress.RunID
	a.sentCompleted = progress.Completed
	a.mu.Unlock()

	a.safeOnTrigger(ctx, progress)
}

// safeOnTrigger wraps onTrigger with panic recovery
func (a *ProgressAggregator) safeOnTrigger(ctx context.Context, progress models.RunProgress) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("run_id", progress.RunID).
				Msg("PANIC in ProgressAggregator.onTrigger - recovered")
		}
	}()
	a.onTrigger(ctx, progress)
}

// StartPeriodicFlush flushes pending updates every timeThreshold until ctx is done
func (a *ProgressAggregator) StartPeriodicFlush(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(a.timeThreshold)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				a.Flush(context.Background())
				return
			case <-ticker.C:
				a.Flush(ctx)
			}
		}
	}()
}

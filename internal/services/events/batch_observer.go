package events

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/batch"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

const batchEventBuffer = 1024

// ItemStartedPayload is published when a worker claims an item
type ItemStartedPayload struct {
	Index int `json:"index"`
}

// CredentialsInvalidPayload is published when the generator rejects the API key
type CredentialsInvalidPayload struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type queuedEvent struct {
	event interfaces.Event
	done  chan struct{}
}

// BatchObserver publishes batch processor notifications on the event bus.
// Events are delivered one at a time, in the order the processor reported
// them, by a single dispatch goroutine: subscribers never see an item's
// started event after its finished event, or progress moving backwards.
type BatchObserver struct {
	events interfaces.EventService
	ctx    context.Context
	logger arbor.ILogger

	mu      sync.RWMutex
	closed  bool
	queue   chan queuedEvent
	stopped chan struct{}
}

var _ batch.Observer = (*BatchObserver)(nil)

// NewBatchObserver creates an observer publishing with ctx and starts its
// dispatcher. Close stops it.
func NewBatchObserver(ctx context.Context, events interfaces.EventService, logger arbor.ILogger) *BatchObserver {
	o := &BatchObserver{
		events:  events,
		ctx:     ctx,
		logger:  logger,
		queue:   make(chan queuedEvent, batchEventBuffer),
		stopped: make(chan struct{}),
	}
	go o.dispatch()
	return o
}

func (o *BatchObserver) dispatch() {
	defer close(o.stopped)
	for queued := range o.queue {
		if err := o.events.PublishSync(o.ctx, queued.event); err != nil {
			o.logger.Warn().Err(err).Str("event_type", string(queued.event.Type)).Msg("Batch event handlers failed")
		}
		if queued.done != nil {
			close(queued.done)
		}
	}
}

// enqueue hands event to the dispatcher. The returned channel is closed once
// every subscriber has handled it; it is nil when the observer is closed.
func (o *BatchObserver) enqueue(eventType interfaces.EventType, payload interface{}) chan struct{} {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.logger.Debug().Str("event_type", string(eventType)).Msg("Batch observer closed, event dropped")
		return nil
	}
	done := make(chan struct{})
	o.queue <- queuedEvent{event: interfaces.Event{Type: eventType, Payload: payload}, done: done}
	return done
}

func (o *BatchObserver) publish(eventType interfaces.EventType, payload interface{}) {
	o.enqueue(eventType, payload)
}

func (o *BatchObserver) OnRunStarted(progress models.RunProgress) {
	o.publish(interfaces.EventRunStarted, progress)
}

func (o *BatchObserver) OnItemStarted(index int) {
	o.publish(interfaces.EventItemStarted, ItemStartedPayload{Index: index})
}

func (o *BatchObserver) OnItemFinished(item models.WorkItem) {
	o.publish(interfaces.EventItemFinished, item)
}

func (o *BatchObserver) OnProgress(progress models.RunProgress) {
	o.publish(interfaces.EventRunProgress, progress)
}

func (o *BatchObserver) OnCredentialsInvalid(index int, err error) {
	o.publish(interfaces.EventCredentialsInvalid, CredentialsInvalidPayload{Index: index, Error: err.Error()})
}

// OnRunFinished waits for delivery so history is persisted before Wait returns
func (o *BatchObserver) OnRunFinished(record models.RunRecord) {
	if done := o.enqueue(interfaces.EventRunFinished, record); done != nil {
		<-done
	}
}

// Close delivers the events already queued and stops the dispatcher
func (o *BatchObserver) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		<-o.stopped
		return nil
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	<-o.stopped
	return nil
}

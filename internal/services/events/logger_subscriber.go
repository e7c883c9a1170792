package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs batch events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case models.RunProgress:
			logEvent = logEvent.
				Str("run_id", payload.RunID).
				Int("completed", payload.Completed).
				Int("total", payload.Total).
				Int("percent", payload.Percent)
		case models.WorkItem:
			logEvent = logEvent.
				Int("index", payload.Index).
				Str("status", string(payload.Status))
		case CredentialsInvalidPayload:
			logEvent = logger.Warn().
				Str("event_type", string(event.Type)).
				Int("index", payload.Index).
				Str("error", payload.Error)
		case models.RunRecord:
			logEvent = logEvent.
				Str("run_id", payload.ID).
				Int("succeeded", payload.Succeeded).
				Int("failed", payload.Failed).
				Bool("cancelled", payload.Cancelled)
		}

		logEvent.Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all batch event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventRunStarted,
		interfaces.EventItemFinished,
		interfaces.EventCredentialsInvalid,
		interfaces.EventRunFinished,
		interfaces.EventItemsImported,
		interfaces.EventItemsReset,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to batch event types")

	return nil
}

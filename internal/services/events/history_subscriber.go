package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

// NewHistorySubscriber creates an event handler that persists finished runs
func NewHistorySubscriber(runs interfaces.RunStorage, logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		record, ok := event.Payload.(models.RunRecord)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", event.Type, event.Payload)
		}

		if err := runs.SaveRun(ctx, &record); err != nil {
			logger.Error().Err(err).Str("run_id", record.ID).Msg("Failed to save run history")
			return err
		}

		logger.Debug().Str("run_id", record.ID).Msg("Run history saved")
		return nil
	}
}

// SubscribeRunHistory records every finished run in runs
func SubscribeRunHistory(eventService interfaces.EventService, runs interfaces.RunStorage, logger arbor.ILogger) error {
	if err := eventService.Subscribe(interfaces.EventRunFinished, NewHistorySubscriber(runs, logger)); err != nil {
		return fmt.Errorf("failed to subscribe run history: %w", err)
	}
	return nil
}

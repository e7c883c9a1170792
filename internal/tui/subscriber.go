package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Subscribe forwards batch events to program
func Subscribe(eventService interfaces.EventService, program Sender) error {
	handlers := map[interfaces.EventType]interfaces.EventHandler{
		interfaces.EventRunProgress: func(ctx context.Context, event interfaces.Event) error {
			if p, ok := event.Payload.(models.RunProgress); ok {
				program.Send(ProgressMsg(p))
			}
			return nil
		},
		interfaces.EventItemFinished: func(ctx context.Context, event interfaces.Event) error {
			if item, ok := event.Payload.(models.WorkItem); ok {
				program.Send(ItemMsg(item))
			}
			return nil
		},
		interfaces.EventCredentialsInvalid: func(ctx context.Context, event interfaces.Event) error {
			program.Send(CredentialsInvalidMsg{})
			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := eventService.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

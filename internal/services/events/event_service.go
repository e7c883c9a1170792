package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
)

// Service is the in-process event bus. Each handler of an event runs in its
// own goroutine; Close waits for handlers started by Publish.
type Service struct {
	mu          sync.RWMutex
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	closed      bool
	inflight    sync.WaitGroup
	logger      arbor.ILogger
}

func NewService(logger arbor.ILogger) *Service {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers handler for eventType
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("event service closed")
	}
	s.subscribers[eventType] = append(s.subscribers[eventType], handler)

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", len(s.subscribers[eventType])).
		Msg("Event handler subscribed")
	return nil
}

// Publish hands event to every subscriber without waiting.
// Events published after Close are dropped.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	handlers := s.subscribers[event.Type]
	if s.closed || len(handlers) == 0 {
		s.mu.RUnlock()
		return nil
	}
	s.inflight.Add(len(handlers))
	s.mu.RUnlock()

	for _, handler := range handlers {
		common.SafeGo(s.logger, "event:"+string(event.Type), func() {
			defer s.inflight.Done()
			s.deliver(ctx, handler, event)
		})
	}
	return nil
}

// PublishSync delivers event to every subscriber and waits. Handler errors
// and panics are joined into the returned error.
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	handlers := s.subscribers[event.Type]
	closed := s.closed
	s.mu.RUnlock()
	if closed || len(handlers) == 0 {
		return nil
	}

	errs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, handler := range handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("event handler panic: %v", r)
				}
			}()
			errs[i] = s.deliver(ctx, handler, event)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("event handlers failed: %w", err)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) error {
	err := handler(ctx, event)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Msg("Event handler failed")
	}
	return err
}

// Close drops every subscription and waits for asynchronously delivered
// events to finish
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.mu.Unlock()

	s.inflight.Wait()
	s.logger.Debug().Msg("Event service closed")
	return nil
}

// Package store holds the in-memory collection of work items shared by the
// importer, the batch processor and the presentation layer.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/models"
)

var (
	// ErrIndexOutOfRange is returned when an index does not identify a stored item
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEmptyKeyword is returned by Append when an item has a blank keyword
	ErrEmptyKeyword = errors.New("keyword cannot be empty")
)

// ItemStore is an ordered, append-only collection of work items keyed by index.
// All methods are safe for concurrent use.
type ItemStore struct {
	mu     sync.RWMutex
	items  []models.WorkItem
	logger arbor.ILogger
	now    func() time.Time
}

// NewItemStore creates an empty store
func NewItemStore(logger arbor.ILogger) *ItemStore {
	return &ItemStore{
		logger: logger,
		now:    time.Now,
	}
}

// Append adds items as Pending with sequential indices continuing from the
// current length and returns the assigned indices. If any item has a blank
// keyword nothing is appended.
func (s *ItemStore) Append(items []models.WorkItem) ([]int, error) {
	for i, item := range items {
		if strings.TrimSpace(item.Keyword) == "" {
			return nil, fmt.Errorf("item %d: %w", i, ErrEmptyKeyword)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	indices := make([]int, 0, len(items))
	for _, item := range items {
		stored := item.Clone()
		stored.Index = len(s.items)
		stored.Status = models.ItemStatusPending
		stored.Content = nil
		stored.ErrorMessage = ""
		stored.UpdatedAt = now
		s.items = append(s.items, stored)
		indices = append(indices, stored.Index)
	}

	s.logger.Debug().
		Int("appended", len(indices)).
		Int("total", len(s.items)).
		Msg("Items appended to store")

	return indices, nil
}

// Update merges patch into the item at index and returns a copy of the result
func (s *ItemStore) Update(index int, patch models.ItemPatch) (models.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return models.WorkItem{}, fmt.Errorf("update item %d: %w", index, ErrIndexOutOfRange)
	}

	item := &s.items[index]
	patch.Apply(item)
	item.UpdatedAt = s.now()

	return item.Clone(), nil
}

// Get returns a copy of the item at index
func (s *ItemStore) Get(index int) (models.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.items) {
		return models.WorkItem{}, fmt.Errorf("get item %d: %w", index, ErrIndexOutOfRange)
	}
	return s.items[index].Clone(), nil
}

// Snapshot returns a deep copy of all items in index order
func (s *ItemStore) Snapshot() []models.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.WorkItem, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out
}

// Len returns the number of stored items
func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Stats counts items by status
func (s *ItemStore) Stats() models.ItemStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CountItems(s.items)
}

// Clear removes every item. Indices restart at zero.
func (s *ItemStore) Clear() {
	s.mu.Lock()
	count := len(s.items)
	s.items = nil
	s.mu.Unlock()

	s.logger.Info().Int("removed", count).Msg("Item store cleared")
}

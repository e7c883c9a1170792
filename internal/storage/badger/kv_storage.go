package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// KVStorage keeps settings (generator API keys, config references) keyed by
// lower-cased name
type KVStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &KVStorage{db: db, logger: logger, now: time.Now}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (s *KVStorage) Get(ctx context.Context, key string) (string, error) {
	pair, err := s.GetPair(ctx, key)
	if err != nil {
		return "", err
	}
	return pair.Value, nil
}

func (s *KVStorage) GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error) {
	var pair interfaces.KeyValuePair
	if err := s.db.Store().Get(normalizeKey(key), &pair); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get %q: %w", normalizeKey(key), err)
	}
	return &pair, nil
}

// Set upserts key in one transaction so a concurrent Set cannot reset CreatedAt
func (s *KVStorage) Set(ctx context.Context, key string, value string, description string) error {
	name := normalizeKey(key)
	if name == "" {
		return fmt.Errorf("key cannot be empty")
	}

	now := s.now()
	err := s.db.Update(func(tx *badger.Txn) error {
		pair := interfaces.KeyValuePair{
			Key:         name,
			Value:       value,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		var existing interfaces.KeyValuePair
		switch err := s.db.Store().TxGet(tx, name, &existing); {
		case err == nil:
			pair.CreatedAt = existing.CreatedAt
		case !errors.Is(err, badgerhold.ErrNotFound):
			return err
		}
		return s.db.Store().TxUpsert(tx, name, &pair)
	})
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", name, err)
	}

	// Never log values
	s.logger.Debug().Str("key", name).Msg("Stored setting")
	return nil
}

func (s *KVStorage) Delete(ctx context.Context, key string) error {
	name := normalizeKey(key)
	if err := s.db.Store().Delete(name, &interfaces.KeyValuePair{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrKeyNotFound
		}
		return fmt.Errorf("failed to delete %q: %w", name, err)
	}
	return nil
}

// List returns every pair, most recently updated first
func (s *KVStorage) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	var pairs []interfaces.KeyValuePair
	if err := s.db.Store().Find(&pairs, badgerhold.Where("Key").Ne("").SortBy("UpdatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return pairs, nil
}

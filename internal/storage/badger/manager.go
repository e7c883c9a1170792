package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
)

// Manager implements interfaces.StorageManager for Badger
type Manager struct {
	db     *BadgerDB
	kv     interfaces.KeyValueStorage
	runs   interfaces.RunStorage
	logger arbor.ILogger
}

// NewManager opens the database and builds the storages on top of it
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		runs:   NewRunStorage(db, logger),
		logger: logger,
	}

	logger.Info().Str("path", db.path).Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the key/value storage
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// RunStorage returns the run history storage
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.runs
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

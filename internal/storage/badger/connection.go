package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB owns the badgerhold store shared by the settings and run storages
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// NewBadgerDB opens the database at config.Path, or an in-memory one when
// config.InMemory is set
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	options := badgerhold.DefaultOptions
	options.Logger = badgerLogger{logger: logger}

	location := config.Path
	if config.InMemory {
		location = ":memory:"
		options.Options = options.Options.WithInMemory(true).WithDir("").WithValueDir("")
	} else {
		if err := prepareDir(logger, config); err != nil {
			return nil, err
		}
		options.Dir = config.Path
		options.ValueDir = config.Path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", location, err)
	}

	logger.Debug().Str("path", location).Msg("Badger database opened")
	return &BadgerDB{store: store, logger: logger, path: location}, nil
}

func prepareDir(logger arbor.ILogger, config *common.BadgerConfig) error {
	if config.ResetOnStartup {
		logger.Info().Str("path", config.Path).Msg("Resetting database (reset_on_startup=true)")
		if err := os.RemoveAll(config.Path); err != nil {
			return fmt.Errorf("failed to reset database directory: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Update runs fn in a read-write transaction
func (b *BadgerDB) Update(fn func(tx *badger.Txn) error) error {
	return b.store.Badger().Update(fn)
}

func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	b.logger.Debug().Str("path", b.path).Msg("Closing Badger database")
	return b.store.Close()
}

// badgerLogger routes badger's internal logging into arbor. Badger's info
// output (compactions, value log GC) is demoted to debug.
type badgerLogger struct {
	logger arbor.ILogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Str("component", "badger").Msg(trimLine(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Str("component", "badger").Msg(trimLine(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Str("component", "badger").Msg(trimLine(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Str("component", "badger").Msg(trimLine(format, args))
}

func trimLine(format string, args []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}

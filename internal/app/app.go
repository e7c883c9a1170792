package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/batch"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/handlers"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/services/credentials"
	"github.com/ternarybob/seoforge/internal/services/events"
	"github.com/ternarybob/seoforge/internal/services/exporter"
	"github.com/ternarybob/seoforge/internal/services/generator"
	"github.com/ternarybob/seoforge/internal/services/importer"
	"github.com/ternarybob/seoforge/internal/services/topics"
	"github.com/ternarybob/seoforge/internal/storage"
	"github.com/ternarybob/seoforge/internal/store"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	Fs             afero.Fs
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService interfaces.EventService

	// Batch pipeline
	ItemStore   *store.ItemStore
	Topics      *topics.Registry
	Generators  *generator.Factory
	Processor   *batch.Processor
	Observer    *events.BatchObserver
	Credentials *credentials.Service
	Importer    *importer.Importer
	Exporter    *exporter.Service

	// HTTP handlers
	APIHandler         *handlers.APIHandler
	WSHandler          *handlers.WebSocketHandler
	ItemHandler        *handlers.ItemHandler
	RunHandler         *handlers.RunHandler
	ExportHandler      *handlers.ExportHandler
	CredentialsHandler *handlers.CredentialsHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	return NewWithFs(cfg, logger, afero.NewOsFs())
}

// NewWithFs initializes the application reading topic overrides and writing
// exports through fs
func NewWithFs(cfg *common.Config, logger arbor.ILogger, fs afero.Fs) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Fs:        fs,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.EventService = events.NewService(app.Logger)

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	app.WSHandler.StartProgressFlush(app.ctx)

	status := app.Credentials.Status()
	logger.Info().
		Str("provider", status.Provider).
		Bool("generator_configured", status.Configured).
		Int("topics", len(app.Topics.List())).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Replace {key-name} references in config values with stored settings.
	// Must happen before the generator factory reads the config.
	pairs, err := a.StorageManager.KeyValueStorage().List(a.ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to fetch KV map for config replacement, skipping replacement")
		return nil
	}
	if len(pairs) == 0 {
		a.Logger.Debug().Msg("No key/value pairs found, skipping config replacement")
		return nil
	}

	kvMap := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		kvMap[pair.Key] = pair.Value
	}
	if err := common.ReplaceInStruct(a.Config, kvMap, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to replace key references in config")
	} else {
		a.Logger.Debug().Int("keys", len(kvMap)).Msg("Applied key/value replacements to config")
	}

	return nil
}

// initServices builds the batch pipeline in dependency order:
// topics, store, generator factory, processor, credentials, import and export.
func (a *App) initServices() error {
	a.Topics = topics.NewRegistry(a.Logger)
	if a.Config.Topics.File != "" {
		if err := a.Topics.LoadFile(a.Fs, a.Config.Topics.File); err != nil {
			return fmt.Errorf("failed to load topic overrides: %w", err)
		}
	}

	a.ItemStore = store.NewItemStore(a.Logger)

	kv := a.StorageManager.KeyValueStorage()
	a.Generators = generator.NewFactory(a.Config, kv, a.Topics, a.Logger)

	a.Observer = events.NewBatchObserver(a.ctx, a.EventService, a.Logger)
	a.Processor = batch.NewProcessor(a.ItemStore, nil, a.Observer, a.Logger)

	a.Credentials = credentials.NewService(kv, a.Generators, a.Processor, a.Logger)
	a.Credentials.Init(a.ctx)

	a.Importer = importer.NewImporter(a.Fs, a.Logger)
	a.Exporter = exporter.NewService(&a.Config.Export, a.Fs, a.Logger)

	if err := events.SubscribeRunHistory(a.EventService, a.StorageManager.RunStorage(), a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe run history: %w", err)
	}
	if a.Config.Logging.Level == "debug" || a.Config.Logging.Level == "trace" {
		if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to subscribe event logger")
		}
	}

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
	a.WSHandler.SetStatusSource(a.Processor, a.ItemStore)

	a.APIHandler = handlers.NewAPIHandler(a.Topics, a.Config.Batch.Languages, a.Logger)
	a.ItemHandler = handlers.NewItemHandler(
		a.ItemStore,
		a.Importer,
		a.Processor,
		a.Topics,
		a.EventService,
		a.Config.Batch.Topic,
		a.Logger,
	)
	a.RunHandler = handlers.NewRunHandler(a.Processor, a.StorageManager.RunStorage(), a.Config.RunDefaults(), a.Logger)
	a.ExportHandler = handlers.NewExportHandler(a.ItemStore, a.Exporter, a.Logger)
	a.CredentialsHandler = handlers.NewCredentialsHandler(a.Credentials, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
	return nil
}

// Close cancels any active run, waits for in-flight items and releases resources
func (a *App) Close() error {
	if a.Processor != nil && a.Processor.Cancel() {
		a.Logger.Info().Msg("Waiting for in-flight items to finish")
		waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.Processor.Wait(waitCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("Batch run did not finish before shutdown")
		}
		cancel()
	}

	// Drain batch events before their subscribers go away
	if a.Observer != nil {
		if err := a.Observer.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close batch observer")
		}
	}

	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.WSHandler != nil {
		if err := a.WSHandler.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close WebSocket clients")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/handlers"
	"github.com/ternarybob/repono/internal/interfaces"
	"github.com/ternarybob/repono/internal/models"
	"github.com/ternarybob/repono/internal/services/diagnostics"
	"github.com/ternarybob/repono/internal/services/fetcher"
	"github.com/ternarybob/repono/internal/services/pipeline"
	"github.com/ternarybob/repono/internal/services/providers"
	"github.com/ternarybob/repono/internal/services/reaper"
	"github.com/ternarybob/repono/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	// Processing services
	Selector  interfaces.ProviderSelector
	Fetcher   *fetcher.Service
	Pipeline  *pipeline.Service
	Queue     *pipeline.Queue
	Reaper    *reaper.Service
	Assembler *diagnostics.Assembler

	// HTTP handlers
	APIHandler         *handlers.APIHandler
	URLHandler         *handlers.URLHandler
	DiagnosticsHandler *handlers.DiagnosticsHandler
	AdminHandler       *handlers.AdminHandler
	WSHandler          *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// WebSocket handler first so every service can publish events
	app.WSHandler = handlers.NewWebSocketHandler(logger)

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// Start workers AFTER all handlers are wired
	app.Queue.Start()
	if err := app.Reaper.Start(); err != nil {
		return nil, fmt.Errorf("failed to start reaper: %w", err)
	}

	logger.Info().
		Int("workers", cfg.Queue.Concurrency).
		Bool("reaper_enabled", cfg.Reaper.Enabled).
		Bool("fetcher_enabled", cfg.Fetcher.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.Storage = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return a.seedBootstrapKey()
}

// seedBootstrapKey stores the configured API key so a fresh install can
// authenticate without a separate provisioning step
func (a *App) seedBootstrapKey() error {
	key := a.Config.Auth.BootstrapAPIKey
	if key == "" {
		return nil
	}

	account := a.Config.Auth.BootstrapAccount
	if account == "" {
		account = "default"
	}

	err := a.Storage.APIKeys().Put(context.Background(), &models.APIKey{
		Key:       key,
		Account:   account,
		Label:     "bootstrap",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to seed bootstrap API key: %w", err)
	}

	a.Logger.Debug().Str("account", account).Msg("Bootstrap API key seeded")
	return nil
}

func (a *App) initServices() error {
	a.Selector = providers.NewConfigSelector(a.Config, a.Logger)

	if a.Config.Fetcher.Enabled {
		a.Fetcher = fetcher.NewService(&a.Config.Fetcher, a.Logger)
	}

	a.Pipeline = pipeline.NewService(
		a.Storage.URLs(),
		a.Storage.ProcessingLogs(),
		a.Selector,
		a.Fetcher,
		a.WSHandler,
		&a.Config.LLM,
		a.Logger,
	)

	a.Queue = pipeline.NewQueue(a.Pipeline, &a.Config.Queue, a.Logger)

	a.Reaper = reaper.NewService(
		a.Storage.URLs(),
		a.Storage.ProcessingLogs(),
		a.WSHandler,
		&a.Config.Reaper,
		a.Logger,
	)

	a.Assembler = diagnostics.NewAssembler(a.Storage.ProcessingLogs(), a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.URLHandler = handlers.NewURLHandler(
		a.Storage.URLs(),
		a.Storage.ProcessingLogs(),
		a.Queue,
		a.WSHandler,
		a.Logger,
	)
	a.DiagnosticsHandler = handlers.NewDiagnosticsHandler(a.Storage.URLs(), a.Assembler, a.Logger)
	a.AdminHandler = handlers.NewAdminHandler(a.Reaper, a.Logger)
}

// Close stops background work and releases storage
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application...")

	a.Reaper.Stop()
	a.Queue.Stop()

	if err := a.Storage.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}

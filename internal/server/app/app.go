// Package app assembles the geopunkt server: config, database, table
// registry, services and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartenwerk/geopunkt/internal/server/blob"
	httpapi "github.com/kartenwerk/geopunkt/internal/server/http"
	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/store/drivers/sqlite"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the server with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	registry *tables.Registry
	blobs    *blob.Store
	sessions *service.SessionRegistry

	keyExchangeService *service.KeyExchangeService
	tokenService       *service.TokenService
	authService        *service.AuthService
	rowService         *service.RowService
	upsertService      *service.UpsertService
	migrationService   *service.MigrationService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized: database
// migrated, config documents loaded and family tables brought up to date.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "geopunkt",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initRegistry(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.blobs = blob.NewStore(cfg.ImagesDir)
	app.initServices()

	if err := app.migrationService.EnsureAll(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to migrate family tables: %w", err)
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("geopunkt server starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"families", app.registry.Names(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down geopunkt server...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("geopunkt server stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initRegistry() error {
	app.registry = tables.NewRegistry()

	if _, err := os.Stat(app.cfg.ConfigDir); os.IsNotExist(err) {
		app.logger.Warn("config directory does not exist, starting with no table families",
			"dir", app.cfg.ConfigDir)
		return nil
	}

	// Broken documents are logged and skipped; one bad config must not
	// take the whole service down.
	for _, err := range app.registry.LoadDir(app.cfg.ConfigDir) {
		app.logger.Error("skipping config document", "error", err)
	}

	app.logger.Info("table-family configs loaded", "families", app.registry.Names())
	return nil
}

func (app *Application) initServices() {
	app.sessions = service.NewSessionRegistry()

	app.keyExchangeService = &service.KeyExchangeService{Sessions: app.sessions}
	app.tokenService = &service.TokenService{Sessions: app.sessions}
	app.authService = &service.AuthService{
		Store:    app.db,
		Sessions: app.sessions,
		Tokens:   app.tokenService,
	}
	app.rowService = &service.RowService{
		Store:    app.db,
		Registry: app.registry,
	}
	app.upsertService = &service.UpsertService{
		Store:     app.db,
		Registry:  app.registry,
		AdminUser: app.cfg.AdminUser,
	}
	app.migrationService = &service.MigrationService{
		Store:    app.db,
		Registry: app.registry,
	}
}

func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(
		app.cfg.AdminUser,
		BuildVersion,
		app.db,
		app.registry,
		app.blobs,
		app.logger,
	)
	app.router.ConfigDir = app.cfg.ConfigDir
	app.router.KeyExchangeService = app.keyExchangeService
	app.router.AuthService = app.authService
	app.router.TokenService = app.tokenService
	app.router.RowService = app.rowService
	app.router.UpsertService = app.upsertService
	app.router.MigrationService = app.migrationService
	app.router.ApplyRoutes()

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

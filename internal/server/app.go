// Package server initializes and runs the processing backend: it opens the
// database, runs migrations, builds the object store gateway, AI client,
// extractor, metering service and batch worker, and serves the HTTP API
// until interrupted.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notecompanion/pipeline/internal/logging"
	"github.com/notecompanion/pipeline/internal/server/ai"
	"github.com/notecompanion/pipeline/internal/server/config"
	"github.com/notecompanion/pipeline/internal/server/extraction"
	"github.com/notecompanion/pipeline/internal/server/httpapi"
	"github.com/notecompanion/pipeline/internal/server/metering"
	"github.com/notecompanion/pipeline/internal/server/objectstore"
	"github.com/notecompanion/pipeline/internal/server/repositories/repomanager"
	"github.com/notecompanion/pipeline/internal/server/worker"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	router http.Handler
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	store, err := objectstore.NewS3Gateway(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	uploadsRepo := rm.Uploads(db)
	meter := metering.NewService(rm.Usage(db))
	provider := ai.NewHTTPClient(cfg.AIBaseURL, cfg.AIAPIKey)
	extractor := extraction.New(store, provider)
	batchWorker := worker.New(uploadsRepo, extractor, meter, logger)

	handlers := httpapi.NewHandlers(db, rm, meter, store, batchWorker, logger)
	router := httpapi.NewRouter(handlers, logger, []byte(cfg.JWTSecret), cfg.CronSecret)

	return &App{config: cfg, logger: logger, db: db, router: router}, nil
}

// Run serves the HTTP API until the context is cancelled or a termination
// signal arrives, then shuts down gracefully.
func (app *App) Run(ctx context.Context) error {

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.router,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		app.logger.Info(context.Background(), "shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	return nil
}

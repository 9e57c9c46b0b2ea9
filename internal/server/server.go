// Package server wires configuration, storage, services and the HTTP
// router together. Both binaries start the catalogue through it.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mmrzaf/sdcatalog/internal/api"
	"github.com/mmrzaf/sdcatalog/internal/app"
	"github.com/mmrzaf/sdcatalog/internal/config"
	"github.com/mmrzaf/sdcatalog/internal/infra/repos/datasets"
	"github.com/mmrzaf/sdcatalog/internal/infra/repos/tasks"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
	"github.com/mmrzaf/sdcatalog/internal/logging"
)

const shutdownTimeout = 10 * time.Second

type Deps struct {
	DB        *sql.DB
	Catalogue *app.CatalogueService
	Tasks     *app.TaskService
}

// Open validates cfg, connects to the store and applies migrations. logger
// must not carry a component yet; each layer tags its own.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	storeLog := logger.WithComponent("store")
	storeLog.Infow("store.opening", map[string]any{
		"driver": cfg.DBDriver,
		"dsn":    config.RedactDSN(cfg.DataSource()),
	})
	db, err := store.Open(ctx, store.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DataSource(),
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if v, err := store.CurrentVersion(ctx, db); err == nil {
		storeLog.Infow("store.ready", map[string]any{"schema_version": v})
	}

	policy := app.TaskPolicy{
		DefaultStatus:     cfg.DefaultStatus,
		StrictTransitions: cfg.StrictTransition,
	}
	return &Deps{
		DB:        db,
		Catalogue: app.NewCatalogueService(datasets.New(db, cfg.DBDriver), logger),
		Tasks:     app.NewTaskService(tasks.New(db, cfg.DBDriver), policy, logger),
	}, nil
}

func (d *Deps) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

func (d *Deps) Router(logger *logging.Logger) http.Handler {
	return api.NewRouter(api.NewHandler(d.Catalogue, d.Tasks, logger), logger)
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *logging.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serveListener(ctx, ln, handler, logger)
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler, logger *logging.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("startup.listening", map[string]any{"bind": ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Infow("shutdown.started", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Infow("shutdown.completed", nil)
	return nil
}

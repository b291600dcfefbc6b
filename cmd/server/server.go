package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Run listens on the configured port and serves until ctx is done
func (app *application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.Serve(ctx, ln)
}

// Serve starts the background components, serves HTTP on ln and shuts
// everything down once ctx is done or the server fails.
func (app *application) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	app.pool.Start()
	if app.config.ASR.AutoStart {
		app.watcher.Start()
	}

	g, gctx := errgroup.WithContext(ctx)

	// errgroup keeps only the first error; a failed shutdown after a failed
	// serve is reported alongside it.
	var shutdownErr error

	g.Go(func() error {
		app.logger.Info("starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.janitor.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := multierr.Combine(g.Wait(), shutdownErr)
	app.cleanup()
	app.logger.Info("server shutdown completed")
	return err
}

// cleanup stops the background components. New submissions are refused
// first, so workers see a closed queue rather than new work.
func (app *application) cleanup() {
	app.watcher.Stop()
	app.registry.Close()
	app.pool.Stop()

	// Closing the hub ends every websocket session; sessions were hijacked
	// and are not tracked by http.Server.Shutdown.
	app.hub.Close()

	if counts := app.registry.Counts(); counts.Active() > 0 {
		app.logger.Warn("tasks abandoned at shutdown",
			"pending", counts.Pending,
			"processing", counts.Processing)
	}

	app.logger.Info("application shutdown completed",
		"dropped_deliveries", app.hub.Dropped(),
		"system_notifications", app.broadcaster.StoredOnly())
}

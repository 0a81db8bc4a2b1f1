package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start serves HTTP in the background. The returned channel is closed once
// SIGINT or SIGTERM arrives, after the root context has been canceled so the
// janitor and the notification consumers stop picking up new work.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	go func() {
		slog.Info("otpgate listening", "address", a.httpServer.Addr)

		err := a.httpServer.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}

		slog.Error("http server stopped unexpectedly", "error", err)
		os.Exit(1)
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		received := <-sig
		slog.Info("shutdown requested", "signal", received.String())

		a.cancel()
		close(done)
	}()

	return done
}

// Stop drains in-flight requests first, then background workers, then the
// external resources in the order they were registered.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to drain http server", "error", err)
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background worker returned an error", "error", err)
	}

	for _, c := range a.closers {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "otpgate stopped")
}

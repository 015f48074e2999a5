// Package health exposes the liveness HTTP endpoint. It answers every
// request with a fixed 200 body and deliberately reflects nothing about
// sync health — only that the process is alive.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	livenessBody    = "ok"
	shutdownTimeout = 5 * time.Second
	readTimeout     = 10 * time.Second
)

// Run serves the liveness endpoint on addr until the context is canceled,
// then shuts the server down gracefully.
func Run(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, livenessBody)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("liveness endpoint listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("health: serving %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health: shutting down: %w", err)
	}

	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const shutdownGrace = 10 * time.Second

// Serve runs the HTTP API until ctx is canceled, then drains in-flight
// requests for up to shutdownGrace before returning.
func (a *App) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.Config.Host, a.Config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Server.Handler(a.Logger),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: SSE streams are long-lived and bounded by the
		// client or the turn itself.
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("http server draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return <-errCh
}

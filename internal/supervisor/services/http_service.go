// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/sensorgate/internal/logging"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under a supervisor.
//
// ListenAndServe runs in a goroutine; when ctx is cancelled the server is
// shut down with shutdownTimeout to drain in-flight requests. Client
// requests that are still waiting on the internal service are cancelled
// through their request contexts.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
	addr            string
}

// NewHTTPServerService creates the service. A non-positive shutdownTimeout
// defaults to 10s.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	svc := &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
	if s, ok := server.(*http.Server); ok {
		svc.addr = s.Addr
	}
	return svc
}

// Serve implements suture.Service. http.ErrServerClosed is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logging.Info().Str("addr", h.addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		logging.Info().Dur("timeout", h.shutdownTimeout).Msg("Shutting down HTTP server")

		// The supervisor context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer; suture uses it in log messages.
func (h *HTTPServerService) String() string {
	return h.name
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// SupervisorTree is the gateway's supervisor hierarchy: a maintenance layer
// for background housekeeping and an API layer for the HTTP server.
type SupervisorTree struct {
	root        *suture.Supervisor
	maintenance *suture.Supervisor
	api         *suture.Supervisor
	config      TreeConfig
}

// NewSupervisorTree creates a supervisor tree. Zero config fields take the
// DefaultTreeConfig values.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config = config.withDefaults()

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	rootSpec := childSpec
	rootSpec.EventHook = handler.MustHook()

	root := suture.New("sensorgate", rootSpec)
	maintenance := suture.New("maintenance-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(maintenance)
	root.Add(api)

	return &SupervisorTree{
		root:        root,
		maintenance: maintenance,
		api:         api,
		config:      config,
	}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddMaintenanceService adds a background housekeeping service, such as
// the rate-limit sweeper.
func (t *SupervisorTree) AddMaintenanceService(svc suture.Service) suture.ServiceToken {
	return t.maintenance.Add(svc)
}

// AddAPIService adds a service to the API layer. Use this for the HTTP server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a goroutine. The channel receives the
// result of Serve.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that did not stop within the
// shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

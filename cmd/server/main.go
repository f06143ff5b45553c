// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package main is the entry point for the Sensorgate server.
//
// Sensorgate sits between browsers or API clients and the internal
// users/sensors service. It authenticates callers (session tokens for the
// browser frontend, API keys for sensor clients), rate limits them, and
// forwards validated requests with the shared internal key attached.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml and environment (koanf v2)
//  2. Logging: zerolog, JSON or console
//  3. Upstream client: shared key, circuit breaker, optional outbound throttle
//  4. Auth components: token issuer, credential verifier, session resolver, key guard
//  5. Query-template proxy
//  6. HTTP router and supervisor tree (HTTP server, rate-limit sweeper)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor context. The HTTP server stops
// accepting connections and drains in-flight requests for
// HTTP_SHUTDOWN_TIMEOUT.
//
// # Example
//
//	export UPSTREAM_URL=http://users-sensors.internal:3000
//	export UPSTREAM_API_KEY=change-me
//	export API_KEYS=client-key-1,client-key-2
//	./sensorgate
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"github.com/tomtom215/sensorgate/internal/api"
	"github.com/tomtom215/sensorgate/internal/auth"
	"github.com/tomtom215/sensorgate/internal/config"
	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
	"github.com/tomtom215/sensorgate/internal/proxy"
	"github.com/tomtom215/sensorgate/internal/supervisor"
	"github.com/tomtom215/sensorgate/internal/supervisor/services"
	"github.com/tomtom215/sensorgate/internal/upstream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("upstream_url", logging.RedactURL(cfg.Upstream.URL)).
		Str("key_validation", cfg.Security.KeyValidation).
		Int("trusted_proxies", len(cfg.Security.TrustedProxies)).
		Msg("Starting Sensorgate")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Server stopped")
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	client, err := upstream.New(upstream.Config{
		BaseURL:              cfg.Upstream.URL,
		APIKey:               cfg.Upstream.APIKey,
		Timeout:              cfg.Upstream.Timeout,
		MaxRequestsPerSecond: cfg.Upstream.MaxRequestsPerSecond,
		Burst:                cfg.Upstream.Burst,
		Breaker: upstream.BreakerSettings{
			MaxRequests:  cfg.Upstream.Breaker.MaxRequests,
			Interval:     cfg.Upstream.Breaker.Interval,
			Timeout:      cfg.Upstream.Breaker.Timeout,
			MinRequests:  cfg.Upstream.Breaker.MinRequests,
			FailureRatio: cfg.Upstream.Breaker.FailureRatio,
		},
	})
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	var keys auth.KeyChecker
	switch cfg.Security.KeyValidation {
	case config.KeyValidationUpstream:
		keys = client
		logging.Info().Msg("API keys are validated by the internal service")
	default:
		keys = auth.NewStaticKeys(cfg.Security.APIKeys)
		logging.Info().Int("keys", len(cfg.Security.APIKeys)).Msg("API keys are validated against the configured list")
	}

	cookie := auth.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.MaxAge,
	}
	crypto := auth.DefaultProvider()
	sessions := auth.NewSessionResolver(client, cookie)

	dataProxy, err := proxy.New(client, client, proxy.Config{
		AllowedPaths: cfg.Proxy.AllowedPaths,
		MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
	})
	if err != nil {
		return fmt.Errorf("create proxy: %w", err)
	}

	chiMw := api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg))
	router := api.NewRouter(api.RouterDeps{
		Middleware: chiMw,
		KeyGuard:   auth.NewKeyGuard(keys),
		Sensors:    api.NewSensorHandlers(client),
		Data:       api.NewDataHandlers(dataProxy, cookie),
		Auth: api.NewAuthHandlers(
			auth.NewCredentialVerifier(client, crypto),
			auth.NewTokenIssuer(client, crypto),
			sessions,
		),
		Health: api.NewHealthHandlers(client),
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	if !cfg.Security.RateLimitDisabled {
		tree.AddMaintenanceService(services.NewRateLimitSweeperService(chiMw, cfg.Security.RateLimitWindow))
	}

	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	return err
}

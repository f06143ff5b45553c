// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/sensorgate/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Setup configures all HTTP routes.
//
// The per-IP API rate limiter is created once and shared by the /sensors,
// /data and /auth groups so a caller has a single budget across them. It runs
// before the API-key guard, so rejected callers never reach the internal
// service. The optional per-key limiter runs after the guard and only ever
// sees validated keys.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(router.chiMiddleware.RealIP())
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(APISecurityHeaders())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	apiLimit := router.chiMiddleware.RateLimit()

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", router.health.Live)
		r.Get("/ready", router.health.Ready)
	})
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Session Endpoints
	// ========================
	r.Route("/auth", func(r chi.Router) {
		r.Use(apiLimit)
		r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", router.auth.Login)
		r.Post("/logout", router.auth.Logout)
		r.Get("/session", router.auth.Session)
	})

	// ========================
	// Sensor Endpoints
	// ========================
	r.Route("/sensors", func(r chi.Router) {
		r.Use(apiLimit)
		r.Use(router.keyGuard.Require)
		r.Use(router.chiMiddleware.RateLimitByKey())

		r.Get("/", router.sensors.List)
		r.Post("/", router.sensors.Create)

		r.Route("/{sensor_id}", func(r chi.Router) {
			r.Get("/", router.sensors.Get)
			r.Delete("/", router.sensors.Delete)
			r.Put("/", router.sensors.AddData)
			r.Get("/status", router.sensors.Status)
			r.Put("/status/{status}", router.sensors.SetStatus)
			r.Get("/name", router.sensors.Name)
			r.Get("/lastUpdated", router.sensors.LastUpdated)
			r.Get("/lastReading", router.sensors.LastReading)
			r.Get("/readings", router.sensors.Readings)
		})
	})

	// ========================
	// Query-Template Proxy
	// ========================
	r.Route("/data", func(r chi.Router) {
		r.Use(apiLimit)
		r.Post("/", router.data.Get)
		r.Post("/put", router.data.Put)
		r.Post("/post", router.data.Post)
		r.Post("/delete", router.data.Delete)
	})

	return r
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors cover the inbound API surface, the rate limiter, the upstream
// client and its circuit breaker, the query-template proxy and session
// resolution.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	RateLimitTrackedCallers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limit_tracked_callers",
			Help: "Number of caller keys with a live rate limit window",
		},
	)

	// API Key Guard Metrics
	APIKeyChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_key_checks_total",
			Help: "Total number of API key checks",
		},
		[]string{"result"}, // "accepted", "missing", "invalid", "error"
	)

	// Session Metrics
	SessionResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_resolutions_total",
			Help: "Total number of session cookie resolutions",
		},
		[]string{"result"}, // "authenticated", "no_token", "invalid_token", "upstream_error"
	)

	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_tokens_issued_total",
			Help: "Total number of session tokens issued at login",
		},
		[]string{"result"}, // "stored", "store_failed"
	)

	// Upstream Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of requests sent to the internal service",
		},
		[]string{"operation", "method", "status_code"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Internal service request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_errors_total",
			Help: "Total number of failed internal service calls",
		},
		[]string{"operation", "error_type"}, // error_type: "timeout", "transport", "status", "circuit_open", "canceled"
	)

	// Proxy Metrics
	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "Total number of query-template proxy requests",
		},
		[]string{"method", "outcome"}, // outcome: "forwarded", "rejected_template", "unauthenticated", "upstream_error"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one completed call to the internal service.
// statusCode is 0 when no response was received.
func RecordUpstreamRequest(operation, method string, statusCode int, duration time.Duration) {
	code := "none"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	UpstreamRequestsTotal.WithLabelValues(operation, method, code).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordUpstreamError records a failed call to the internal service.
func RecordUpstreamError(operation, errorType string) {
	UpstreamErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordRateLimitHit records a request rejected by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordProxyRequest records the outcome of a query-template proxy request.
func RecordProxyRequest(method, outcome string) {
	ProxyRequestsTotal.WithLabelValues(method, outcome).Inc()
}

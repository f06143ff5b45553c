// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"fmt"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/sensorgate/internal/auth"
	"github.com/tomtom215/sensorgate/internal/config"
	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
	"github.com/tomtom215/sensorgate/internal/middleware"
	"github.com/tomtom215/sensorgate/internal/models"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// Rate limiting configuration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// RateLimitByKey adds a second budget per validated API key on the
	// sensor routes. The per-IP budget always applies.
	RateLimitByKey bool

	// TrustedProxies are the peers whose forwarding headers are honoured
	// when identifying the client IP.
	TrustedProxies []netip.Prefix

	// Login limiter, keyed by IP.
	LoginRateLimitRequests int
	LoginRateLimitWindow   time.Duration

	// Now is the clock used by rate-limit windows.
	Now func() time.Time
}

// DefaultChiMiddlewareConfig returns a secure default configuration.
// CORS origins default to empty, requiring explicit configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins:   []string{},
		CORSAllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		CORSExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,

		LoginRateLimitRequests: 5,
		LoginRateLimitWindow:   5 * time.Minute,
	}
}

// NewChiMiddlewareConfig bridges the application configuration.
func NewChiMiddlewareConfig(cfg *config.Config) *ChiMiddlewareConfig {
	mc := DefaultChiMiddlewareConfig()
	mc.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mc.CORSAllowCredentials = len(cfg.Security.CORSOrigins) > 0 && !containsWildcard(cfg.Security.CORSOrigins)
	mc.RateLimitRequests = cfg.Security.RateLimitReqs
	mc.RateLimitWindow = cfg.Security.RateLimitWindow
	mc.RateLimitDisabled = cfg.Security.RateLimitDisabled
	if cfg.Security.LoginRateLimitReqs > 0 {
		mc.LoginRateLimitRequests = cfg.Security.LoginRateLimitReqs
	}
	if cfg.Security.LoginRateLimitWindow > 0 {
		mc.LoginRateLimitWindow = cfg.Security.LoginRateLimitWindow
	}
	mc.RateLimitByKey = cfg.Security.RateLimitKey == config.RateLimitKeyKey
	// Validate has already rejected malformed entries.
	mc.TrustedProxies, _ = cfg.Security.TrustedProxyPrefixes()
	return mc
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler

	mu       sync.Mutex
	counters []*FixedWindowCounter
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		ExposedHeaders:   config.CORSExposedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns a Chi-compatible CORS middleware using go-chi/cors.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RealIP identifies the client address, honouring forwarding headers only
// from trusted proxies. It must run before any limiter.
func (m *ChiMiddleware) RealIP() func(http.Handler) http.Handler {
	return middleware.TrustedRealIP(m.config.TrustedProxies)
}

// RateLimit returns the gateway-wide per-IP limiter. Requests over the limit
// are answered with 429 before any later middleware or handler runs.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limiter("api", m.config.RateLimitRequests, m.config.RateLimitWindow, httprate.KeyByIP)
}

// RateLimitByKey returns the per-API-key limiter. It is mounted after the
// key guard so only validated keys get a budget of their own; without
// RateLimitByKey it passes requests through.
func (m *ChiMiddleware) RateLimitByKey() func(http.Handler) http.Handler {
	if !m.config.RateLimitByKey {
		return passThrough
	}
	return m.limiter("api_key", m.config.RateLimitRequests, m.config.RateLimitWindow, KeyByAPIKey)
}

// RateLimitLogin returns the strict per-IP limiter for login attempts.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limiter("login", m.config.LoginRateLimitRequests, m.config.LoginRateLimitWindow, httprate.KeyByIP)
}

func (m *ChiMiddleware) limiter(name string, requests int, window time.Duration, keyFunc httprate.KeyFunc) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return passThrough
	}

	counter := NewFixedWindowCounter(window, m.config.Now)
	m.mu.Lock()
	m.counters = append(m.counters, counter)
	m.mu.Unlock()

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitCounter(counter),
		httprate.WithLimitHandler(rateLimitExceeded(name)),
		httprate.WithErrorHandler(rateLimitFailed(name)),
	)
}

func passThrough(next http.Handler) http.Handler {
	return next
}

// SweepRateLimits drops expired rate-limit windows from every limiter and
// returns the number of callers still tracked.
func (m *ChiMiddleware) SweepRateLimits() int {
	m.mu.Lock()
	counters := append([]*FixedWindowCounter(nil), m.counters...)
	m.mu.Unlock()

	tracked := 0
	for _, c := range counters {
		tracked += c.Sweep()
	}
	metrics.RateLimitTrackedCallers.Set(float64(tracked))
	return tracked
}

// rateLimitExceeded answers 429 in the gateway's error format. httprate has
// already set Retry-After.
func rateLimitExceeded(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordRateLimitHit(name)
		logging.Ctx(r.Context()).Debug().
			Str("limiter", name).
			Str("remote_addr", r.RemoteAddr).
			Msg("Rate limit exceeded")
		respondError(w, r, http.StatusTooManyRequests, models.CodeTooManyRequests, msgTooManyRequests, nil)
	}
}

// rateLimitFailed answers a key-function or counter failure in the gateway's
// error format instead of httprate's plain-text 428.
func rateLimitFailed(name string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		respondError(w, r, http.StatusInternalServerError, models.CodeInternalError, msgInternalError,
			fmt.Errorf("%s rate limit: %w", name, err))
	}
}

// KeyByAPIKey keys callers by their "key" query parameter, falling back to
// the client IP for requests without one. RateLimitByKey mounts it behind
// the key guard, so made-up keys never get a budget of their own.
func KeyByAPIKey(r *http.Request) (string, error) {
	if key := r.URL.Query().Get(auth.KeyParam); key != "" {
		return "key:" + key, nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}

// APISecurityHeaders returns a middleware that adds security headers to API responses.
//
// Headers added:
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Referrer-Policy: strict-origin-when-cross-origin
//   - Strict-Transport-Security when the request arrived over HTTPS
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateUpstream(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateProxy(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.URL == "" {
		return fmt.Errorf("UPSTREAM_URL is required")
	}
	if err := validateHTTPURL(c.Upstream.URL, "UPSTREAM_URL"); err != nil {
		return fmt.Errorf("UPSTREAM_URL is invalid: %w", err)
	}
	if c.Upstream.APIKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is required")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.Upstream.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RPS must not be negative")
	}
	if c.Upstream.MaxRequestsPerSecond > 0 && c.Upstream.Burst < 1 {
		return fmt.Errorf("UPSTREAM_BURST must be at least 1 when UPSTREAM_MAX_RPS is set")
	}
	return c.validateBreaker()
}

func (c *Config) validateBreaker() error {
	b := c.Upstream.Breaker
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", b.FailureRatio)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	if b.MaxRequests == 0 {
		return fmt.Errorf("BREAKER_MAX_REQUESTS must be at least 1")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateKeyValidation(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	if _, err := c.Security.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateKeyValidation() error {
	switch c.Security.KeyValidation {
	case KeyValidationStatic:
		for _, key := range c.Security.APIKeys {
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("API_KEYS must not contain empty keys")
			}
		}
		if len(c.Security.APIKeys) == 0 {
			return fmt.Errorf("API_KEYS is required when KEY_VALIDATION=static")
		}
		return nil
	case KeyValidationUpstream:
		return nil
	default:
		return fmt.Errorf("KEY_VALIDATION must be one of: static, upstream")
	}
}

// validateCORS rejects wildcard origins in production, where the session
// cookie would otherwise be usable from any site.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	switch c.Security.RateLimitKey {
	case RateLimitKeyIP, RateLimitKeyKey:
	default:
		return fmt.Errorf("RATE_LIMIT_KEY must be one of: ip, key")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}

	if err := validateRateLimit(c.Security.RateLimitReqs, c.Security.RateLimitWindow, "RATE_LIMIT"); err != nil {
		return err
	}
	return validateRateLimit(c.Security.LoginRateLimitReqs, c.Security.LoginRateLimitWindow, "LOGIN_RATE_LIMIT")
}

func validateRateLimit(requests int, window time.Duration, prefix string) error {
	if requests < minRateLimitRequests || requests > maxRateLimitRequests {
		return fmt.Errorf("%s_REQUESTS must be between %d and %d", prefix, minRateLimitRequests, maxRateLimitRequests)
	}
	if window < minRateLimitWindow || window > maxRateLimitWindow {
		return fmt.Errorf("%s_WINDOW must be between %v and %v", prefix, minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Session.MaxAge < 0 {
		return fmt.Errorf("SESSION_MAX_AGE must not be negative")
	}
	return nil
}

func (c *Config) validateProxy() error {
	if len(c.Proxy.AllowedPaths) == 0 {
		return fmt.Errorf("PROXY_ALLOWED_PATHS must list at least one path pattern")
	}
	for _, p := range c.Proxy.AllowedPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("PROXY_ALLOWED_PATHS entry %q must start with /", p)
		}
	}
	if c.Proxy.MaxBodyBytes < 1 {
		return fmt.Errorf("PROXY_MAX_BODY_BYTES must be positive")
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

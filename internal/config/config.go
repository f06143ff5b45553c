// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package config loads and validates Sensorgate configuration.
//
// Values are layered with koanf: struct defaults, then an optional YAML file,
// then environment variables. See LoadWithKoanf for the precedence rules and
// envTransformFunc for the supported environment variable names.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Security SecurityConfig `koanf:"security"`
	Session  SessionConfig  `koanf:"session"`
	Proxy    ProxyConfig    `koanf:"proxy"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// UpstreamConfig describes the internal users/sensors service.
type UpstreamConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`

	// MaxRequestsPerSecond throttles outbound calls; 0 disables throttling.
	MaxRequestsPerSecond float64 `koanf:"max_requests_per_second"`
	Burst                int     `koanf:"burst"`

	Breaker BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the circuit breaker guarding the upstream service.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`  // probes allowed while half-open
	Interval     time.Duration `koanf:"interval"`      // closed-state counter reset period
	Timeout      time.Duration `koanf:"timeout"`       // open-state duration before half-open
	MinRequests  uint32        `koanf:"min_requests"`  // requests required before tripping
	FailureRatio float64       `koanf:"failure_ratio"` // failure ratio that trips the breaker
}

// SecurityConfig holds API key and rate limiting settings.
type SecurityConfig struct {
	APIKeys       []string `koanf:"api_keys"`
	KeyValidation string   `koanf:"key_validation"` // static, upstream

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	RateLimitKey      string        `koanf:"rate_limit_key"` // ip, key

	LoginRateLimitReqs   int           `koanf:"login_rate_limit_reqs"`
	LoginRateLimitWindow time.Duration `koanf:"login_rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists the addresses or CIDR ranges of reverse proxies
	// whose forwarding headers identify the client. Empty means the
	// connecting address is always the client.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// SessionConfig controls the browser session cookie.
type SessionConfig struct {
	CookieName   string        `koanf:"cookie_name"`
	CookieSecure bool          `koanf:"cookie_secure"`
	MaxAge       time.Duration `koanf:"max_age"`
}

// ProxyConfig constrains the query templates accepted by the /data endpoints.
type ProxyConfig struct {
	AllowedPaths []string `koanf:"allowed_paths"`
	MaxBodyBytes int64    `koanf:"max_body_bytes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json, console
	Caller bool   `koanf:"caller"`
}

// Key validation modes.
const (
	KeyValidationStatic   = "static"
	KeyValidationUpstream = "upstream"
)

// Rate limit caller identities.
const (
	RateLimitKeyIP  = "ip"
	RateLimitKeyKey = "key"
)

// Load reads configuration from defaults, an optional config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is treated as a
// single-host prefix.
func (s SecurityConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

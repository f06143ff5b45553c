// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sensorgate/config.yaml",
	"/etc/sensorgate/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. The upstream URL and key have
// no sensible default and must be supplied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Upstream: UpstreamConfig{
			URL:                  "",
			APIKey:               "",
			Timeout:              10 * time.Second,
			MaxRequestsPerSecond: 0,
			Burst:                20,
			Breaker: BreakerConfig{
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  10,
				FailureRatio: 0.6,
			},
		},
		Security: SecurityConfig{
			APIKeys:              []string{},
			KeyValidation:        KeyValidationStatic,
			RateLimitReqs:        100,
			RateLimitWindow:      time.Minute,
			RateLimitDisabled:    false,
			RateLimitKey:         RateLimitKeyIP,
			LoginRateLimitReqs:   5,
			LoginRateLimitWindow: 5 * time.Minute,
			CORSOrigins:          []string{},
			TrustedProxies:       []string{},
		},
		Session: SessionConfig{
			CookieName:   "token",
			CookieSecure: false,
			MaxAge:       24 * time.Hour,
		},
		Proxy: ProxyConfig{
			AllowedPaths: []string{
				"/sensors",
				"/sensors/**",
				"/users/:user_id",
				"/users/:user_id/**",
			},
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" when none is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from the environment.
var sliceConfigPaths = []string{
	"security.api_keys",
	"security.cors_origins",
	"security.trusted_proxies",
	"proxy.allowed_paths",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"upstream_url":          "upstream.url",
	"upstream_api_key":      "upstream.api_key",
	"upstream_timeout":      "upstream.timeout",
	"upstream_max_rps":      "upstream.max_requests_per_second",
	"upstream_burst":        "upstream.burst",
	"breaker_max_requests":  "upstream.breaker.max_requests",
	"breaker_interval":      "upstream.breaker.interval",
	"breaker_timeout":       "upstream.breaker.timeout",
	"breaker_min_requests":  "upstream.breaker.min_requests",
	"breaker_failure_ratio": "upstream.breaker.failure_ratio",

	"api_keys":                  "security.api_keys",
	"key_validation":            "security.key_validation",
	"rate_limit_requests":       "security.rate_limit_reqs",
	"rate_limit_window":         "security.rate_limit_window",
	"disable_rate_limit":        "security.rate_limit_disabled",
	"rate_limit_key":            "security.rate_limit_key",
	"login_rate_limit_requests": "security.login_rate_limit_reqs",
	"login_rate_limit_window":   "security.login_rate_limit_window",
	"cors_origins":              "security.cors_origins",
	"trusted_proxies":           "security.trusted_proxies",

	"session_cookie_name":   "session.cookie_name",
	"session_cookie_secure": "session.cookie_secure",
	"session_max_age":       "session.max_age",

	"proxy_allowed_paths":  "proxy.allowed_paths",
	"proxy_max_body_bytes": "proxy.max_body_bytes",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - UPSTREAM_URL -> upstream.url
//   - RATE_LIMIT_REQUESTS -> security.rate_limit_reqs
//   - DISABLE_RATE_LIMIT -> security.rate_limit_disabled
//   - PATH -> "" (ignored)
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

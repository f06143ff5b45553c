// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for a valid configuration.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("UPSTREAM_URL", "http://users.internal:3000")
	t.Setenv("UPSTREAM_API_KEY", "shared-secret")
	t.Setenv("API_KEYS", "client-key-1")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Upstream.URL != "" || cfg.Upstream.APIKey != "" {
		t.Error("Upstream URL and APIKey should be empty by default")
	}
	if cfg.Upstream.Breaker.FailureRatio != 0.6 {
		t.Errorf("Breaker.FailureRatio = %v, want 0.6", cfg.Upstream.Breaker.FailureRatio)
	}
	if cfg.Security.KeyValidation != KeyValidationStatic {
		t.Errorf("Security.KeyValidation = %q, want static", cfg.Security.KeyValidation)
	}
	if cfg.Security.RateLimitReqs != 100 || cfg.Security.RateLimitWindow != time.Minute {
		t.Errorf("rate limit = %d/%v, want 100/1m", cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow)
	}
	if cfg.Session.CookieName != "token" {
		t.Errorf("Session.CookieName = %q, want token", cfg.Session.CookieName)
	}
	if len(cfg.Proxy.AllowedPaths) != 4 {
		t.Errorf("Proxy.AllowedPaths = %v, want 4 default patterns", cfg.Proxy.AllowedPaths)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"UPSTREAM_URL", "upstream.url"},
		{"UPSTREAM_API_KEY", "upstream.api_key"},
		{"HTTP_PORT", "server.port"},
		{"RATE_LIMIT_REQUESTS", "security.rate_limit_reqs"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"BREAKER_FAILURE_RATIO", "upstream.breaker.failure_ratio"},
		{"PROXY_ALLOWED_PATHS", "proxy.allowed_paths"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	customPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(customPath, []byte("server:\n  port: 9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Run("env var path", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, customPath)
		if got := findConfigFile(); got != customPath {
			t.Errorf("findConfigFile() = %q, want %q", got, customPath)
		}
	})

	t.Run("missing env var path", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "nope.yaml"))
		if got := findConfigFile(); got == filepath.Join(dir, "nope.yaml") {
			t.Errorf("findConfigFile() returned a missing file: %q", got)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_REQUESTS", "25")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("API_KEYS", "alpha, beta ,gamma")
	t.Setenv("UPSTREAM_MAX_RPS", "12.5")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Security.RateLimitReqs != 25 {
		t.Errorf("RateLimitReqs = %d, want 25", cfg.Security.RateLimitReqs)
	}
	if cfg.Security.RateLimitWindow != 30*time.Second {
		t.Errorf("RateLimitWindow = %v, want 30s", cfg.Security.RateLimitWindow)
	}
	if got := strings.Join(cfg.Security.APIKeys, "|"); got != "alpha|beta|gamma" {
		t.Errorf("APIKeys = %q, want alpha|beta|gamma", got)
	}
	if cfg.Upstream.MaxRequestsPerSecond != 12.5 {
		t.Errorf("MaxRequestsPerSecond = %v, want 12.5", cfg.Upstream.MaxRequestsPerSecond)
	}
	if cfg.Upstream.URL != "http://users.internal:3000" {
		t.Errorf("Upstream.URL = %q", cfg.Upstream.URL)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	setRequiredEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
proxy:
  allowed_paths:
    - /sensors/**
session:
  cookie_secure: true
logging:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if len(cfg.Proxy.AllowedPaths) != 1 || cfg.Proxy.AllowedPaths[0] != "/sensors/**" {
		t.Errorf("Proxy.AllowedPaths = %v, want [/sensors/**]", cfg.Proxy.AllowedPaths)
	}
	if !cfg.Session.CookieSecure {
		t.Error("Session.CookieSecure should be true from file")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 7070\nlogging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env should override file)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn (file value kept)", cfg.Logging.Level)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing upstream url",
			env:     map[string]string{"UPSTREAM_URL": ""},
			wantErr: "UPSTREAM_URL is required",
		},
		{
			name:    "non-http upstream url",
			env:     map[string]string{"UPSTREAM_URL": "ftp://users.internal"},
			wantErr: "UPSTREAM_URL is invalid",
		},
		{
			name:    "missing upstream key",
			env:     map[string]string{"UPSTREAM_API_KEY": ""},
			wantErr: "UPSTREAM_API_KEY is required",
		},
		{
			name:    "invalid port",
			env:     map[string]string{"HTTP_PORT": "70000"},
			wantErr: "HTTP_PORT",
		},
		{
			name:    "unknown key validation",
			env:     map[string]string{"KEY_VALIDATION": "ldap"},
			wantErr: "KEY_VALIDATION",
		},
		{
			name:    "rate limit too small",
			env:     map[string]string{"RATE_LIMIT_REQUESTS": "0"},
			wantErr: "RATE_LIMIT_REQUESTS",
		},
		{
			name:    "wildcard cors in production",
			env:     map[string]string{"CORS_ORIGINS": "*", "ENVIRONMENT": "production"},
			wantErr: "CORS_ORIGINS",
		},
		{
			name:    "relative allowed path",
			env:     map[string]string{"PROXY_ALLOWED_PATHS": "sensors"},
			wantErr: "PROXY_ALLOWED_PATHS",
		},
		{
			name:    "malformed trusted proxy",
			env:     map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8,not-an-ip"},
			wantErr: "TRUSTED_PROXIES",
		},
		{
			name:    "bad failure ratio",
			env:     map[string]string{"BREAKER_FAILURE_RATIO": "1.5"},
			wantErr: "BREAKER_FAILURE_RATIO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatalf("LoadWithKoanf() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadWithKoanf() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadWithKoanf_UpstreamKeyValidationNeedsNoStaticKeys(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_KEYS", "")
	t.Setenv("KEY_VALIDATION", "upstream")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Security.KeyValidation != KeyValidationUpstream {
		t.Errorf("KeyValidation = %q, want upstream", cfg.Security.KeyValidation)
	}
}

func TestLoadWithKoanf_DisabledRateLimitSkipsBounds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISABLE_RATE_LIMIT", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if !cfg.Security.RateLimitDisabled {
		t.Error("RateLimitDisabled should be true")
	}
}

func TestLoadWithKoanf_TrustedProxies(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.7 ,2001:db8::/32")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	prefixes, err := cfg.Security.TrustedProxyPrefixes()
	if err != nil {
		t.Fatalf("TrustedProxyPrefixes() error = %v", err)
	}

	want := []string{"10.0.0.0/8", "192.0.2.7/32", "2001:db8::/32"}
	if len(prefixes) != len(want) {
		t.Fatalf("prefixes = %v, want %v", prefixes, want)
	}
	for i, p := range prefixes {
		if p.String() != want[i] {
			t.Errorf("prefixes[%d] = %s, want %s", i, p, want[i])
		}
	}
}

func TestDefaultConfig_TrustsNoProxies(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	prefixes, err := cfg.Security.TrustedProxyPrefixes()
	if err != nil || len(prefixes) != 0 {
		t.Errorf("TrustedProxyPrefixes() = (%v, %v), want none", prefixes, err)
	}
}

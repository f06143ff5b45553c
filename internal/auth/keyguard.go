// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
	"github.com/tomtom215/sensorgate/internal/models"
)

// KeyParam is the query parameter carrying client API keys.
const KeyParam = "key"

// KeyChecker validates client API keys. Satisfied by *upstream.Client and
// StaticKeys.
type KeyChecker interface {
	CheckKey(ctx context.Context, key string) (bool, error)
}

// StaticKeys validates against a fixed list of keys.
type StaticKeys struct {
	keys [][]byte
}

// NewStaticKeys creates a StaticKeys checker. Empty entries are ignored.
func NewStaticKeys(keys []string) *StaticKeys {
	s := &StaticKeys{}
	for _, k := range keys {
		if k != "" {
			s.keys = append(s.keys, []byte(k))
		}
	}
	return s
}

// CheckKey compares key against every configured key in constant time.
func (s *StaticKeys) CheckKey(_ context.Context, key string) (bool, error) {
	candidate := []byte(key)
	match := 0
	for _, k := range s.keys {
		match |= subtle.ConstantTimeCompare(candidate, k)
	}
	return match == 1, nil
}

// KeyGuard rejects requests that do not carry a valid API key.
type KeyGuard struct {
	checker KeyChecker
}

// NewKeyGuard creates a KeyGuard.
func NewKeyGuard(checker KeyChecker) *KeyGuard {
	return &KeyGuard{checker: checker}
}

// CheckKey validates key. On failure it writes the response (400 when the
// key is missing, 401 when it is invalid or cannot be checked) and returns
// false; the caller must stop processing.
func (g *KeyGuard) CheckKey(w http.ResponseWriter, r *http.Request, key string) bool {
	if key == "" {
		metrics.APIKeyChecks.WithLabelValues("missing").Inc()
		writeError(w, r, http.StatusBadRequest, models.CodeValidationFailed, "API key required.")
		return false
	}

	ok, err := g.checker.CheckKey(r.Context(), key)
	if err != nil {
		metrics.APIKeyChecks.WithLabelValues("error").Inc()
		logging.Ctx(r.Context()).Warn().Err(err).Msg("API key check failed; denying")
		writeError(w, r, http.StatusUnauthorized, models.CodeUnauthorized, "Invalid API key.")
		return false
	}
	if !ok {
		metrics.APIKeyChecks.WithLabelValues("invalid").Inc()
		logging.Ctx(r.Context()).Debug().
			Str("path", logging.SanitizeValue(r.URL.Path)).
			Msg("Rejected invalid API key")
		writeError(w, r, http.StatusUnauthorized, models.CodeUnauthorized, "Invalid API key.")
		return false
	}

	metrics.APIKeyChecks.WithLabelValues("valid").Inc()
	return true
}

// Require runs CheckKey on the "key" query parameter before next.
func (g *KeyGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.CheckKey(w, r, r.URL.Query().Get(KeyParam)) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

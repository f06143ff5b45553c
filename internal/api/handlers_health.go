// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"net/http"

	"github.com/tomtom215/sensorgate/internal/models"
)

// UpstreamStatus reports the internal service's breaker state. Satisfied by
// *upstream.Client.
type UpstreamStatus interface {
	Available() bool
	BreakerState() string
}

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	upstream UpstreamStatus
}

// NewHealthHandlers creates HealthHandlers.
func NewHealthHandlers(upstream UpstreamStatus) *HealthHandlers {
	return &HealthHandlers{upstream: upstream}
}

// Live handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, models.HealthResponse{Status: "ok"})
}

// Ready handles readiness probe requests. Returns 503 while the upstream
// circuit breaker is open, since every route would fail.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	state := h.upstream.BreakerState()
	if !h.upstream.Available() {
		respondJSON(w, r, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable", Upstream: state})
		return
	}
	respondJSON(w, r, http.StatusOK, models.HealthResponse{Status: "ready", Upstream: state})
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/models"
)

// writeError writes a models.ErrorResponse.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := models.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode error response")
	}
}

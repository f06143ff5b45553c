// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/models"
	"github.com/tomtom215/sensorgate/internal/proxy"
	"github.com/tomtom215/sensorgate/internal/upstream"
	"github.com/tomtom215/sensorgate/internal/validation"
)

// Client-facing messages shared by several handlers.
const (
	msgInvalidArguments    = "Invalid arguments."
	msgSensorNotFound      = "Sensor not found"
	msgUpstreamUnavailable = "Upstream service unavailable."
	msgTooManyRequests     = "Too many requests."
	msgInternalError       = "Internal server error."
)

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondRaw relays an already-encoded JSON body.
func respondRaw(w http.ResponseWriter, r *http.Request, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write relayed response")
	}
}

// respondMessage sends {"message": msg}.
func respondMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, models.MessageResponse{Message: msg})
}

// respondError sends a models.ErrorResponse. err, when set, is logged but
// never sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Err(err).
			Str("code", code).
			Str("path", logging.SanitizeValue(r.URL.Path)).
			Msg("API Error")
	}

	respondJSON(w, r, status, models.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// respondValidationError sends 400 {"error":"Invalid arguments."} with
// per-field details.
func respondValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	logging.Ctx(r.Context()).Debug().
		Str("path", logging.SanitizeValue(r.URL.Path)).
		Str("reason", logging.SanitizeValue(verr.Error())).
		Msg("Rejected invalid arguments")

	respondJSON(w, r, http.StatusBadRequest, models.ErrorResponse{
		Error:     msgInvalidArguments,
		Code:      models.CodeValidationFailed,
		RequestID: logging.RequestIDFromContext(r.Context()),
		Details:   verr.FieldMessages(),
	})
}

// respondUnavailable answers transport failures and open breakers with 502.
// It reports false for any other error.
func respondUnavailable(w http.ResponseWriter, r *http.Request, err error) bool {
	if !upstream.IsUnavailable(err) {
		return false
	}
	respondError(w, r, http.StatusBadGateway, models.CodeExternalServiceFailed, msgUpstreamUnavailable, err)
	return true
}

// respondProxyError maps a *proxy.Error to its status and code.
func respondProxyError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *proxy.Error
	if !errors.As(err, &pe) {
		respondError(w, r, http.StatusInternalServerError, models.CodeInternalError, msgInternalError, err)
		return
	}

	code := models.CodeExternalServiceFailed
	switch pe.Kind {
	case proxy.KindValidation:
		code = models.CodeValidationFailed
	case proxy.KindAuth:
		code = models.CodeUnauthorized
	case proxy.KindNotFound:
		code = models.CodeNotFound
	case proxy.KindTimeout:
		code = models.CodeGatewayTimeout
	}

	resp := models.ErrorResponse{
		Error:     pe.Message,
		Code:      code,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if pe.Kind == proxy.KindValidation && pe.Detail != "" {
		resp.Details = map[string]string{"query": pe.Detail}
	}

	if pe.Status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(pe).Str("path", r.URL.Path).Msg("Proxy request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(pe).Str("path", r.URL.Path).Msg("Proxy request rejected")
	}
	respondJSON(w, r, pe.Status, resp)
}

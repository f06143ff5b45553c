// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package middleware holds HTTP middleware shared by every gateway route.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/tomtom215/sensorgate/internal/logging"
)

// RequestIDHeader is the header used to propagate request IDs.
const RequestIDHeader = "X-Request-ID"

// validRequestID limits client-supplied IDs to a safe, bounded alphabet.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestID assigns every request an ID, echoes it in the response header
// and stores it (plus a fresh correlation ID) in the request context for
// logging.Ctx. A well-formed X-Request-ID from a fronting proxy is reused.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(requestID) {
			requestID = logging.GenerateRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)

		next(w, r.WithContext(ctx))
	}
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package models holds the JSON wire types of the gateway's HTTP surface.
//
// Response shapes are kept compatible with the browser frontend and existing
// API clients: failures carry an "error" string, sensor mutations carry a
// "message" string.
package models

import "github.com/goccy/go-json"

// ErrorResponse is the body of every gateway-generated 4xx/5xx response
// except the sensor mutation failures, which use MessageResponse.
//
//	{"error":"Invalid arguments.","code":"VALIDATION_FAILED","request_id":"..."}
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Machine-readable error codes carried in ErrorResponse.Code.
const (
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeTooManyRequests       = "TOO_MANY_REQUESTS"
	CodeExternalServiceFailed = "EXTERNAL_SERVICE_FAILED"
	CodeGatewayTimeout        = "GATEWAY_TIMEOUT"
	CodeInternalError         = "INTERNAL_ERROR"
)

// MessageResponse is a plain {"message": "..."} body.
type MessageResponse struct {
	Message string `json:"message"`
}

// DataRequest is the body of the /data proxy endpoints.
//
// Token may be empty, in which case the session cookie is used instead.
// Body is forwarded verbatim for PUT and POST.
type DataRequest struct {
	Token string          `json:"token"`
	Query string          `json:"query"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// LoginResponse is returned after a session cookie has been set.
type LoginResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// SessionStatus is returned by GET /auth/session.
type SessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	UserID        *int64 `json:"user_id,omitempty"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Upstream string `json:"upstream,omitempty"`
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package proxy

import (
	"fmt"
	"net/http"
)

// Kind classifies proxy failures.
type Kind int

const (
	KindValidation Kind = iota // malformed template, method or body
	KindAuth                   // unknown or missing token
	KindNotFound               // upstream reported the entity absent (GET only)
	KindUpstream               // upstream unreachable, breaker open or failed
	KindTimeout                // upstream did not answer in time
)

// String returns the metric label for k.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "invalid"
	case KindAuth:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is returned by Forward and ParseTemplate. Message is safe to show
// to clients; Detail and Err are not always.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("proxy: %s: %v", msg, e.Err)
	}
	return "proxy: " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, detail string, err error) *Error {
	e := &Error{Kind: kind, Detail: detail, Err: err}
	switch kind {
	case KindValidation:
		e.Status, e.Message = http.StatusBadRequest, "Invalid arguments."
	case KindAuth:
		e.Status, e.Message = http.StatusUnauthorized, "Invalid or expired token."
	case KindNotFound:
		e.Status, e.Message = http.StatusNotFound, "Not found."
	case KindTimeout:
		e.Status, e.Message = http.StatusGatewayTimeout, "Upstream service timed out."
	default:
		e.Status, e.Message = http.StatusBadGateway, "Upstream service unavailable."
	}
	return e
}

func invalid(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

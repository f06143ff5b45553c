// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound means the internal service answered but the entity does not
	// exist (HTTP 404, or an empty/sentinel body such as "-1" or "null").
	ErrNotFound = errors.New("upstream: not found")

	// ErrRejected means the internal service answered 2xx with a falsy
	// result (for example "false" from a store or mutation call).
	ErrRejected = errors.New("upstream: operation rejected")

	// ErrCircuitOpen means the call was not attempted because the circuit
	// breaker is open or saturated while half-open.
	ErrCircuitOpen = errors.New("upstream: circuit breaker open")

	// ErrMalformedResponse means a 2xx body could not be interpreted.
	ErrMalformedResponse = errors.New("upstream: malformed response")
)

// StatusError is returned when the internal service answers with an
// unexpected non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: unexpected status %d", e.Op, e.StatusCode)
}

// TransportError wraps network failures, timeouts and cancellations. The
// wrapped error never contains the request URL, so it is safe to log.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or client timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsUnavailable reports whether err means the internal service could not be
// reached at all, as opposed to answering with a failure.
func IsUnavailable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, ErrCircuitOpen)
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout()
}

// errorType classifies err for the upstream_errors_total metric.
func errorType(err error) string {
	var te *TransportError
	var se *StatusError
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &te) && te.Timeout():
		return "timeout"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &se):
		return "status"
	default:
		return "other"
	}
}

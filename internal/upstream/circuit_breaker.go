// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package upstream

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
)

// BreakerSettings configures the circuit breaker in front of the internal service.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // closed-state counter reset period
	Timeout      time.Duration // open-state duration before probing
	MinRequests  uint32        // requests observed before the breaker may trip
	FailureRatio float64       // failure ratio that trips the breaker
}

// DefaultBreakerSettings mirrors the configuration defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "upstream-api",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// breaker wraps gobreaker with logging and Prometheus state tracking.
//
// Only transport failures and 5xx answers count as failures. A caller that
// hangs up (context.Canceled) says nothing about upstream health.
type breaker struct {
	cb   *gobreaker.CircuitBreaker[*Response]
	name string
}

func newBreaker(s BreakerSettings) *breaker {
	d := DefaultBreakerSettings()
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = d.FailureRatio
	}
	if s.MinRequests == 0 {
		s.MinRequests = d.MinRequests
	}

	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRatio
			if shouldTrip {
				logging.Warn().
					Str("breaker", s.Name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &breaker{cb: cb, name: s.Name}
}

// execute runs fn under breaker protection. Breaker rejections are mapped to
// ErrCircuitOpen.
func (b *breaker) execute(fn func() (*Response, error)) (*Response, error) {
	resp, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return nil, ErrCircuitOpen
		}
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).
			Set(float64(b.cb.Counts().ConsecutiveFailures))
		return resp, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return resp, nil
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package services

import (
	"context"
	"time"

	"github.com/tomtom215/sensorgate/internal/logging"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

// RateLimitSweeper drops expired rate-limit windows and reports how many
// callers are still tracked. Satisfied by *api.ChiMiddleware.
type RateLimitSweeper interface {
	SweepRateLimits() int
}

// RateLimitSweeperService calls SweepRateLimits every interval.
type RateLimitSweeperService struct {
	sweeper  RateLimitSweeper
	interval time.Duration
}

// NewRateLimitSweeperService creates the service. A non-positive interval
// defaults to DefaultSweepInterval.
func NewRateLimitSweeperService(sweeper RateLimitSweeper, interval time.Duration) *RateLimitSweeperService {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &RateLimitSweeperService{sweeper: sweeper, interval: interval}
}

// Serve implements suture.Service. It sweeps once more on shutdown so the
// tracked-callers gauge is current.
func (s *RateLimitSweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.sweeper.SweepRateLimits()
			return ctx.Err()
		case <-ticker.C:
			tracked := s.sweeper.SweepRateLimits()
			logging.Debug().Int("tracked_callers", tracked).Msg("Swept rate-limit windows")
		}
	}
}

// String implements fmt.Stringer.
func (s *RateLimitSweeperService) String() string {
	return "rate-limit-sweeper"
}

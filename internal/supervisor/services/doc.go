// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

/*
Package services adapts gateway components to suture.Service.

Each wrapper translates its component's lifecycle into suture's
Serve(ctx) error contract:

  - HTTPServerService runs an *http.Server and shuts it down gracefully when
    the context is cancelled.
  - RateLimitSweeperService periodically drops expired rate-limit windows so
    the limiter's memory stays bounded by the number of recent callers.

Services return ctx.Err() on cancellation and a wrapped error on failure,
which suture counts toward its restart backoff.
*/
package services

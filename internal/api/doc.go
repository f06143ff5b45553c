// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

/*
Package api provides the HTTP surface of the gateway.

Routes are mounted on a chi router by Router.Setup:

  - /health/live, /health/ready: probes; ready reports the upstream breaker
  - /metrics: Prometheus exposition
  - /auth/login, /auth/logout, /auth/session: browser sessions (cookie "token")
  - /sensors/...: sensor reads and mutations, guarded by the "key" query parameter
  - /data, /data/put, /data/post, /data/delete: the query-template proxy

Middleware Order:

Every request gets a request ID, the client IP, panic recovery, CORS,
security headers and HTTP metrics. Forwarding headers only set the client
IP when the connecting peer is a configured trusted proxy. The /sensors,
/data and /auth groups then share one per-IP fixed-window rate limiter
(httprate with FixedWindowCounter). It runs before the API-key guard, so a
limited or unauthenticated caller never reaches the internal service. With
rate_limit_key=key a second per-key limiter runs after the guard on
/sensors.

Responses:

Gateway-generated failures use models.ErrorResponse:

	{"error": "Invalid arguments.", "code": "VALIDATION_FAILED", "request_id": "..."}

Sensor mutations answer {"message": "..."} on both success and upstream
failure. Successful reads relay the internal service's JSON unchanged.
*/
package api

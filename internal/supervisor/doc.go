// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

/*
Package supervisor runs the gateway's long-lived services under suture v4.

# Overview

The tree has two layers:

	RootSupervisor ("sensorgate")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── RateLimitSweeperService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A panicking or failing sweeper is restarted without touching the HTTP server.
Supervisor events are logged through sutureslog, which writes to the
zerolog-backed slog logger from the logging package.

# Shutdown

Cancelling the context passed to Serve stops every service. The HTTP server
drains in-flight requests for up to its shutdown timeout; suture waits at most
TreeConfig.ShutdownTimeout for each service before reporting it as unstopped.
*/
package supervisor

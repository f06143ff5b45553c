// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"github.com/tomtom215/sensorgate/internal/auth"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	chiMiddleware *ChiMiddleware
	keyGuard      *auth.KeyGuard

	sensors *SensorHandlers
	data    *DataHandlers
	auth    *AuthHandlers
	health  *HealthHandlers
}

// RouterDeps carries the handler groups and middleware mounted by Setup.
type RouterDeps struct {
	Middleware *ChiMiddleware
	KeyGuard   *auth.KeyGuard
	Sensors    *SensorHandlers
	Data       *DataHandlers
	Auth       *AuthHandlers
	Health     *HealthHandlers
}

// NewRouter creates a Router. A nil Middleware falls back to the default
// middleware configuration.
func NewRouter(deps RouterDeps) *Router {
	mw := deps.Middleware
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		chiMiddleware: mw,
		keyGuard:      deps.KeyGuard,
		sensors:       deps.Sensors,
		data:          deps.Data,
		auth:          deps.Auth,
		health:        deps.Health,
	}
}

// Middleware returns the middleware factory, for the rate-limit sweeper.
func (router *Router) Middleware() *ChiMiddleware {
	return router.chiMiddleware
}

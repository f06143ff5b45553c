// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
	"github.com/tomtom215/sensorgate/internal/upstream"
)

// SessionState is the outcome of resolving a request's session cookie.
type SessionState int

const (
	// StateNoToken means the request carried no session cookie.
	StateNoToken SessionState = iota
	// StateInvalidToken means the token could not be resolved; the cookie
	// has been cleared.
	StateInvalidToken
	// StateValid means the token resolved to a user.
	StateValid
)

// String returns the metric label for s.
func (s SessionState) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateInvalidToken:
		return "invalid"
	case StateValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Session is the result of CheckLoggedIn.
type Session struct {
	State  SessionState
	UserID int64
	Token  string

	// Err is the resolution error for StateInvalidToken.
	Err error
}

// Authenticated reports whether the session resolved to a user.
func (s Session) Authenticated() bool {
	return s.State == StateValid
}

// TokenResolver maps tokens to user ids. Satisfied by *upstream.Client.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (int64, error)
}

// SessionResolver resolves session cookies.
type SessionResolver struct {
	tokens TokenResolver
	cookie CookieConfig
}

// NewSessionResolver creates a SessionResolver.
func NewSessionResolver(tokens TokenResolver, cookie CookieConfig) *SessionResolver {
	return &SessionResolver{tokens: tokens, cookie: cookie}
}

// Cookie returns the cookie settings in use.
func (s *SessionResolver) Cookie() CookieConfig {
	return s.cookie
}

// CheckLoggedIn resolves the session cookie of r exactly once. When the
// token is unknown, or cannot be resolved, the cookie is cleared on w.
func (s *SessionResolver) CheckLoggedIn(w http.ResponseWriter, r *http.Request) Session {
	token := s.cookie.Token(r)
	if token == "" {
		metrics.SessionResolutions.WithLabelValues(StateNoToken.String()).Inc()
		return Session{State: StateNoToken}
	}

	userID, err := s.tokens.ResolveToken(r.Context(), token)
	if err != nil {
		s.cookie.Clear(w)
		metrics.SessionResolutions.WithLabelValues(StateInvalidToken.String()).Inc()

		event := logging.Ctx(r.Context()).Debug()
		if !errors.Is(err, upstream.ErrNotFound) {
			event = logging.Ctx(r.Context()).Warn()
		}
		event.Err(err).Str("token", logging.RedactToken(token)).
			Msg("Session token rejected; cookie cleared")
		return Session{State: StateInvalidToken, Token: token, Err: err}
	}

	metrics.SessionResolutions.WithLabelValues(StateValid.String()).Inc()
	return Session{State: StateValid, UserID: userID, Token: token}
}

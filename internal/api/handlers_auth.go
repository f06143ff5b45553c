// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/auth"
	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/models"
	"github.com/tomtom215/sensorgate/internal/validation"
)

const maxLoginBodyBytes = 16 << 10

// Authenticator checks login credentials. Satisfied by
// *auth.CredentialVerifier.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (int64, error)
}

// SessionIssuer creates stored session tokens. Satisfied by
// *auth.TokenIssuer.
type SessionIssuer interface {
	Issue(ctx context.Context, userID int64) (string, error)
}

// AuthHandlers serves /auth/login, /auth/logout and /auth/session.
type AuthHandlers struct {
	credentials Authenticator
	issuer      SessionIssuer
	sessions    *auth.SessionResolver
}

// NewAuthHandlers creates AuthHandlers.
func NewAuthHandlers(credentials Authenticator, issuer SessionIssuer, sessions *auth.SessionResolver) *AuthHandlers {
	return &AuthHandlers{credentials: credentials, issuer: issuer, sessions: sessions}
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, r, validation.NewFieldError("body", "body must be a JSON object with email and password"))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	userID, err := h.credentials.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Info().
			Str("email", logging.SanitizeValue(req.Email)).
			Msg("Login rejected")
		respondError(w, r, http.StatusUnauthorized, models.CodeUnauthorized, "Invalid email or password.", nil)
		return
	}

	token, err := h.issuer.Issue(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotEstablished) {
			respondError(w, r, http.StatusInternalServerError, models.CodeInternalError, msgInternalError, err)
			return
		}
		respondError(w, r, http.StatusBadGateway, models.CodeExternalServiceFailed,
			"Login succeeded but the session could not be established.", err)
		return
	}

	h.sessions.Cookie().Set(w, token)
	logging.Ctx(r.Context()).Info().Int64("user_id", userID).Msg("User logged in")
	respondJSON(w, r, http.StatusOK, models.LoginResponse{Message: "Logged in.", UserID: userID})
}

// Logout handles POST /auth/logout by clearing the session cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Cookie().Clear(w)
	respondMessage(w, r, http.StatusOK, "Logged out.")
}

// Session handles GET /auth/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.CheckLoggedIn(w, r)
	if !session.Authenticated() {
		respondJSON(w, r, http.StatusUnauthorized, models.SessionStatus{Authenticated: false})
		return
	}
	userID := session.UserID
	respondJSON(w, r, http.StatusOK, models.SessionStatus{Authenticated: true, UserID: &userID})
}

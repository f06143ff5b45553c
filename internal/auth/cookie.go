// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"net/http"
	"time"
)

// DefaultCookieName is the name of the session cookie.
const DefaultCookieName = "token"

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// DefaultCookieConfig returns the cookie settings used by the browser
// frontend.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:   DefaultCookieName,
		MaxAge: 24 * time.Hour,
	}
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Token returns the session token carried by r, or "".
func (c CookieConfig) Token(r *http.Request) string {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Set writes the session cookie.
func (c CookieConfig) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear overwrites the session cookie with an empty value and Max-Age=0.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

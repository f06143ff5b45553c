// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"hash"

	"github.com/tomtom215/sensorgate/internal/logging"
)

// ErrInvalidCredentials is returned for unknown emails, wrong passwords and
// any failure while checking them.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CredentialStore looks up users and compares password digests. Satisfied
// by *upstream.Client.
type CredentialStore interface {
	UserIDByEmail(ctx context.Context, email string) (int64, error)
	CheckPassword(ctx context.Context, userID int64, hashedPassword string) (bool, error)
}

// HashPassword returns the hex digest of the UTF-8 bytes of password.
// The digest is unsalted; see the package documentation.
func HashPassword(newHash func() hash.Hash, password string) string {
	h := newHash()
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// CredentialVerifier checks email/password pairs against the internal
// service.
type CredentialVerifier struct {
	store   CredentialStore
	newHash func() hash.Hash
}

// NewCredentialVerifier creates a CredentialVerifier.
func NewCredentialVerifier(store CredentialStore, p Provider) *CredentialVerifier {
	p = p.withDefaults()
	return &CredentialVerifier{store: store, newHash: p.NewHash}
}

// Hash digests password with the verifier's hash.
func (v *CredentialVerifier) Hash(password string) string {
	return HashPassword(v.newHash, password)
}

// CheckPassword reports whether password matches the stored digest of
// userID. Transport and service failures report false.
func (v *CredentialVerifier) CheckPassword(ctx context.Context, userID int64, password string) bool {
	ok, err := v.store.CheckPassword(ctx, userID, v.Hash(password))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).
			Msg("Password check failed; denying")
		return false
	}
	return ok
}

// Authenticate resolves email to a user id and checks password. It returns
// ErrInvalidCredentials for every failure.
func (v *CredentialVerifier) Authenticate(ctx context.Context, email, password string) (int64, error) {
	userID, err := v.store.UserIDByEmail(ctx, email)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Login email lookup failed")
		return 0, ErrInvalidCredentials
	}
	if !v.CheckPassword(ctx, userID, password) {
		return 0, ErrInvalidCredentials
	}
	return userID, nil
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
)

// TokenBytes is the amount of randomness in a session token.
const TokenBytes = 32

// TokenLength is the length of an encoded session token.
const TokenLength = TokenBytes * 2

// ErrSessionNotEstablished is returned by Issue when the internal service
// could not store the new token. The caller's credentials were valid.
var ErrSessionNotEstablished = errors.New("session could not be established")

// TokenStore binds tokens to users. Satisfied by *upstream.Client.
type TokenStore interface {
	StoreToken(ctx context.Context, userID int64, token string) error
}

// GenerateToken reads TokenBytes from random and hex-encodes them.
func GenerateToken(random io.Reader) (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// TokenIssuer creates session tokens and stores them upstream.
type TokenIssuer struct {
	store  TokenStore
	random io.Reader
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(store TokenStore, p Provider) *TokenIssuer {
	p = p.withDefaults()
	return &TokenIssuer{store: store, random: p.Random}
}

// Generate returns a fresh token without storing it.
func (i *TokenIssuer) Generate() (string, error) {
	return GenerateToken(i.random)
}

// Issue generates a token and binds it to userID, replacing any previous
// token of that user. Any failure is reported as ErrSessionNotEstablished.
func (i *TokenIssuer) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := i.Generate()
	if err != nil {
		metrics.TokensIssued.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("%w: %v", ErrSessionNotEstablished, err)
	}

	if err := i.store.StoreToken(ctx, userID, token); err != nil {
		metrics.TokensIssued.WithLabelValues("failure").Inc()
		logging.Ctx(ctx).Error().Err(err).
			Int64("user_id", userID).
			Str("token", logging.RedactToken(token)).
			Msg("Failed to store session token")
		return "", fmt.Errorf("%w: %w", ErrSessionNotEstablished, err)
	}

	metrics.TokensIssued.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Debug().
		Int64("user_id", userID).
		Str("token", logging.RedactToken(token)).
		Msg("Issued session token")
	return token, nil
}

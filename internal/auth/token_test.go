// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/sensorgate/internal/upstream"
)

var errNotFoundForTest = upstream.ErrNotFound

// ====================================================================================
// GenerateToken
// ====================================================================================

func TestGenerateToken_Deterministic(t *testing.T) {
	t.Parallel()

	src := bytes.NewReader(bytes.Repeat([]byte{0xab}, TokenBytes))
	token, err := GenerateToken(src)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if want := strings.Repeat("ab", TokenBytes); token != want {
		t.Errorf("GenerateToken() = %q, want %q", token, want)
	}
	if len(token) != TokenLength {
		t.Errorf("len = %d, want %d", len(token), TokenLength)
	}
}

func TestGenerateToken_ShortSource(t *testing.T) {
	t.Parallel()

	if _, err := GenerateToken(bytes.NewReader(make([]byte, 10))); err == nil {
		t.Error("GenerateToken() should fail when the source runs dry")
	}
}

func TestGenerateToken_Unique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		token, err := GenerateToken(rand.Reader)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		if _, err := hex.DecodeString(token); err != nil || len(token) != TokenLength {
			t.Fatalf("token %q is not 64 hex characters", token)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}

// ====================================================================================
// TokenIssuer
// ====================================================================================

func TestTokenIssuer_Issue(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	issuer := NewTokenIssuer(users, Provider{Random: bytes.NewReader(bytes.Repeat([]byte{1}, TokenBytes))})

	token, err := issuer.Issue(context.Background(), 42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if users.stored[42] != token {
		t.Errorf("stored token = %q, want %q", users.stored[42], token)
	}
	if want := strings.Repeat("01", TokenBytes); token != want {
		t.Errorf("Issue() = %q, want %q", token, want)
	}
}

func TestTokenIssuer_StoreFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		storeErr error
	}{
		{"rejected", upstream.ErrRejected},
		{"unreachable", &upstream.TransportError{Op: "store_token", Err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			users := newFakeUsers()
			users.storeErr = tt.storeErr
			issuer := NewTokenIssuer(users, DefaultProvider())

			_, err := issuer.Issue(context.Background(), 7)
			if !errors.Is(err, ErrSessionNotEstablished) {
				t.Errorf("Issue() error = %v, want ErrSessionNotEstablished", err)
			}
			if !errors.Is(err, tt.storeErr) {
				t.Errorf("Issue() error = %v, want it to wrap %v", err, tt.storeErr)
			}
		})
	}
}

func TestTokenIssuer_EntropyFailure(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	issuer := NewTokenIssuer(users, Provider{Random: bytes.NewReader(nil)})

	if _, err := issuer.Issue(context.Background(), 1); !errors.Is(err, ErrSessionNotEstablished) {
		t.Errorf("Issue() error = %v, want ErrSessionNotEstablished", err)
	}
	if users.callCount() != 0 {
		t.Error("no token may be stored when generation fails")
	}
}

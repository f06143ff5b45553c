// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"hash"
	"io"
)

// Provider supplies the randomness and digest primitives used by the token
// issuer and the credential verifier.
type Provider struct {
	// Random is the source for session tokens. It must be cryptographically
	// secure outside of tests.
	Random io.Reader

	// NewHash constructs the password digest.
	NewHash func() hash.Hash
}

// DefaultProvider returns crypto/rand and SHA-256.
func DefaultProvider() Provider {
	return Provider{
		Random:  rand.Reader,
		NewHash: sha256.New,
	}
}

// withDefaults fills unset fields from DefaultProvider.
func (p Provider) withDefaults() Provider {
	d := DefaultProvider()
	if p.Random == nil {
		p.Random = d.Random
	}
	if p.NewHash == nil {
		p.NewHash = d.NewHash
	}
	return p
}

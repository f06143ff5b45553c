// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

/*
Package auth implements the gateway's identity layer.

The gateway holds no credentials of its own. Tokens, password digests and
client API keys all live in the internal users service; this package
generates tokens, hashes passwords, resolves session cookies and guards
resource routes, delegating every lookup to that service through small
interfaces satisfied by *upstream.Client.

Components:

  - TokenIssuer: generates 64-character hex session tokens from an injected
    random source and binds them to a user id upstream.
  - CredentialVerifier: hashes passwords with an injected digest and asks the
    internal service to compare them. Every failure denies.
  - SessionResolver: reads the session cookie, resolves it to a user id and
    clears the cookie when the token is unknown or cannot be resolved.
  - KeyGuard: validates the "key" query parameter before any resource
    handler runs, writing the 400/401 response itself.

Cryptographic primitives are supplied through Provider so tests can use
deterministic sources:

	p := auth.DefaultProvider()              // crypto/rand + SHA-256
	issuer := auth.NewTokenIssuer(client, p)
	verifier := auth.NewCredentialVerifier(client, p)

Password digests are unsalted SHA-256 because that is the format stored by
the internal users service. They offer no protection against precomputed
dictionary attacks if the user store leaks.
*/
package auth

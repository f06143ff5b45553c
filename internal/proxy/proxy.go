// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package proxy forwards client query templates to the internal service on
// behalf of an authenticated user.
//
// A template such as "/sensors/:user_id/readings?dataType=temp" is parsed
// against a strict grammar, checked against an allow-list of path shapes,
// and rendered with the user id resolved from the caller's own token. The
// client never supplies the internal origin or the shared key; the upstream
// client adds both.
package proxy

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
	"github.com/tomtom215/sensorgate/internal/upstream"
)

// DefaultMaxBodyBytes bounds forwarded request bodies.
const DefaultMaxBodyBytes = 1 << 20

// DefaultAllowedPaths is the allow-list used when none is configured.
var DefaultAllowedPaths = []string{
	"/sensors",
	"/sensors/**",
	"/users/:user_id",
	"/users/:user_id/**",
}

// TokenResolver maps session tokens to user ids.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (int64, error)
}

// Doer performs raw upstream calls.
type Doer interface {
	Do(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Config configures a Proxy.
type Config struct {
	AllowedPaths []string
	MaxBodyBytes int64
}

// Request is one proxied call.
type Request struct {
	Token  string
	Query  string
	Method string

	// Body is forwarded for PUT and POST when non-empty.
	Body []byte
}

// Result is the relayed upstream answer.
type Result struct {
	Status int
	Body   json.RawMessage
}

// Proxy forwards templated queries.
type Proxy struct {
	tokens  TokenResolver
	client  Doer
	allow   *Allowlist
	maxBody int64
}

// New creates a Proxy.
func New(tokens TokenResolver, client Doer, cfg Config) (*Proxy, error) {
	paths := cfg.AllowedPaths
	if len(paths) == 0 {
		paths = DefaultAllowedPaths
	}
	allow, err := NewAllowlist(paths)
	if err != nil {
		return nil, err
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Proxy{tokens: tokens, client: client, allow: allow, maxBody: maxBody}, nil
}

// MaxBodyBytes returns the forwarded body limit.
func (p *Proxy) MaxBodyBytes() int64 {
	return p.maxBody
}

// Forward validates req, resolves its token, substitutes the user id and
// relays the upstream answer. GET answers are relayed with 200 when the
// upstream succeeded; PUT, POST and DELETE relay the upstream status.
//
// Failures are returned as *Error. The template is validated before the
// token is resolved, so malformed queries never reach the internal service.
func (p *Proxy) Forward(ctx context.Context, req Request) (*Result, error) {
	res, err := p.forward(ctx, req)
	outcome := "ok"
	var pe *Error
	if errors.As(err, &pe) {
		outcome = pe.Kind.String()
	}
	metrics.RecordProxyRequest(req.Method, outcome)
	return res, err
}

func (p *Proxy) forward(ctx context.Context, req Request) (*Result, error) {
	switch req.Method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
	default:
		return nil, invalid("method %q is not supported", req.Method)
	}

	tmpl, err := ParseTemplate(req.Query)
	if err != nil {
		return nil, err
	}
	if !p.allow.Allows(tmpl) {
		return nil, invalid("query path is not allowed")
	}

	var body []byte
	if req.Method == http.MethodPut || req.Method == http.MethodPost {
		if int64(len(req.Body)) > p.maxBody {
			return nil, invalid("body exceeds %d bytes", p.maxBody)
		}
		if len(req.Body) > 0 {
			body = req.Body
		}
	}

	if req.Token == "" {
		return nil, newError(KindAuth, "missing token", nil)
	}
	userID, err := p.tokens.ResolveToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			logging.Ctx(ctx).Debug().Str("token", logging.RedactToken(req.Token)).
				Msg("Proxy token not recognised")
			return nil, newError(KindAuth, "token not recognised", err)
		}
		return nil, upstreamFailure(err)
	}

	path := tmpl.Render(userID)
	logging.Ctx(ctx).Debug().
		Str("method", req.Method).
		Str("path", logging.RedactURL(path)).
		Int64("user_id", userID).
		Msg("Forwarding proxied query")

	resp, err := p.client.Do(ctx, upstream.Request{
		Op:     "proxy",
		Method: req.Method,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		return nil, upstreamFailure(err)
	}

	if req.Method != http.MethodGet {
		return &Result{Status: resp.StatusCode, Body: upstream.AsJSON(resp.Body)}, nil
	}
	switch {
	case resp.OK():
		return &Result{Status: http.StatusOK, Body: upstream.AsJSON(resp.Body)}, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, newError(KindNotFound, "", upstream.ErrNotFound)
	default:
		return nil, newError(KindUpstream, "", &upstream.StatusError{Op: "proxy", StatusCode: resp.StatusCode})
	}
}

func upstreamFailure(err error) *Error {
	if upstream.IsTimeout(err) {
		return newError(KindTimeout, "", err)
	}
	return newError(KindUpstream, "", err)
}

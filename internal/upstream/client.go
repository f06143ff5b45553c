// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

// Package upstream is the HTTP client for the internal users and sensors
// service.
//
// Every call carries the shared service key as a "key" query parameter,
// passes through an optional outbound token bucket and a circuit breaker,
// and is bound to the caller's context so that a client disconnect aborts
// the in-flight request. Nothing is retried; failures surface immediately.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/metrics"
)

const (
	// maxResponseBytes caps upstream bodies relayed to clients.
	maxResponseBytes = 10 << 20

	// maxErrorBodySize caps the error body kept for logs.
	maxErrorBodySize = 64 * 1024
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// MaxRequestsPerSecond enables an outbound token bucket when > 0.
	MaxRequestsPerSecond float64
	Burst                int

	Breaker BreakerSettings

	// HTTPClient overrides the default client (Timeout is then ignored).
	HTTPClient *http.Client
}

// Client talks to the internal service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker
}

// Request describes one call. Path is the already-escaped path, optionally
// followed by "?query". The shared key is appended by the client.
type Request struct {
	Op     string // metric and log label, e.g. "resolve_token"
	Method string
	Path   string
	Body   []byte
}

// Response is a completed upstream exchange, whatever its status.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("upstream: invalid base URL")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("upstream: API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.MaxRequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		limiter: limiter,
		breaker: newBreaker(cfg.Breaker),
	}, nil
}

// Do performs req and returns the response for any HTTP status. Only
// failures to obtain a response are returned as errors: *TransportError,
// or ErrCircuitOpen when the breaker refuses the call.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			err = &TransportError{Op: req.Op, Err: err}
			metrics.RecordUpstreamError(req.Op, errorType(err))
			return nil, err
		}
	}

	var resp *Response
	_, err := c.breaker.execute(func() (*Response, error) {
		var rtErr error
		resp, rtErr = c.roundTrip(ctx, req)
		if rtErr != nil {
			return nil, rtErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &StatusError{Op: req.Op, StatusCode: resp.StatusCode}
		}
		return resp, nil
	})

	var statusErr *StatusError
	if err != nil && !errors.As(err, &statusErr) {
		metrics.RecordUpstreamError(req.Op, errorType(err))
		logging.Ctx(ctx).Warn().Err(err).
			Str("op", req.Op).
			Str("method", req.Method).
			Str("path", logging.RedactURL(req.Path)).
			Msg("Upstream call failed")
		return nil, err
	}

	if !resp.OK() {
		logging.Ctx(ctx).Debug().
			Str("op", req.Op).
			Int("status", resp.StatusCode).
			Str("body", logging.SanitizeValue(string(truncate(resp.Body, maxErrorBodySize)))).
			Msg("Upstream returned non-2xx status")
	}
	return resp, nil
}

// roundTrip performs the HTTP exchange without breaker accounting.
func (c *Client) roundTrip(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.buildURL(req.Path), body)
	if err != nil {
		return nil, &TransportError{Op: req.Op, Err: errors.New("invalid request")}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if requestID := logging.RequestIDFromContext(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RecordUpstreamRequest(req.Op, req.Method, 0, time.Since(start))
		return nil, &TransportError{Op: req.Op, Err: stripURL(err)}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes+1))
	metrics.RecordUpstreamRequest(req.Op, req.Method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &TransportError{Op: req.Op, Err: stripURL(err)}
	}
	if len(data) > maxResponseBytes {
		return nil, &TransportError{Op: req.Op, Err: errors.New("response body too large")}
	}

	return &Response{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// buildURL prefixes path with the fixed origin and appends the shared key,
// joining with '&' when path already carries a query string.
func (c *Client) buildURL(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return c.baseURL + path + sep + "key=" + url.QueryEscape(c.apiKey)
}

// Available reports whether the breaker currently admits calls.
func (c *Client) Available() bool {
	return c.breaker.state() != gobreaker.StateOpen
}

// BreakerState returns the breaker state as a string (closed, half-open, open).
func (c *Client) BreakerState() string {
	return stateToString(c.breaker.state())
}

// stripURL drops the *url.Error wrapper, whose message embeds the full
// request URL including the shared key.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

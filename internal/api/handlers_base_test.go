// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"crypto/sha256"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/auth"
	"github.com/tomtom215/sensorgate/internal/proxy"
	"github.com/tomtom215/sensorgate/internal/upstream"
)

const (
	testSharedKey = "shared-secret"
	testClientKey = "VALIDKEY"
	testPassword  = "hunter2"
)

// ========================================
// Fake internal service
// ========================================

type internalCall struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeInternal is an httptest-backed internal service that records every
// call it receives.
type fakeInternal struct {
	server *httptest.Server
	calls  atomic.Int32

	mu      sync.Mutex
	history []internalCall
}

func newFakeInternal(t *testing.T, handler http.HandlerFunc) *fakeInternal {
	t.Helper()
	if handler == nil {
		handler = defaultInternal
	}
	f := &fakeInternal{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.history = append(f.history, internalCall{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		f.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeInternal) callCount() int {
	return int(f.calls.Load())
}

func (f *fakeInternal) last() internalCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return internalCall{}
	}
	return f.history[len(f.history)-1]
}

// find returns the first recorded call whose path starts with prefix.
func (f *fakeInternal) find(prefix string) (internalCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.history {
		if strings.HasPrefix(c.Path, prefix) {
			return c, true
		}
	}
	return internalCall{}, false
}

// defaultInternal knows sensor 5, user 7 (ada@example.com / hunter2) and the
// token "abc" bound to user 42.
func defaultInternal(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/users/token/abc":
		_, _ = io.WriteString(w, "42")
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/users/token/"):
		_, _ = io.WriteString(w, "-1")
	case r.Method == http.MethodGet && path == "/users/email/ada@example.com":
		_, _ = io.WriteString(w, "7")
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/users/email/"):
		_, _ = io.WriteString(w, "-1")
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/users/7/password/"):
		match := strings.TrimPrefix(path, "/users/7/password/") == auth.HashPassword(sha256.New, testPassword)
		_ = json.NewEncoder(w).Encode(match)
	case r.Method == http.MethodGet && path == "/users/key/"+testClientKey:
		_, _ = io.WriteString(w, "true")
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/users/key/"):
		_, _ = io.WriteString(w, "false")
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/users/7/token/"):
		_, _ = io.WriteString(w, "true")
	case r.Method == http.MethodGet && path == "/sensors":
		_, _ = io.WriteString(w, `[{"id":5,"name":"Greenhouse"}]`)
	case r.Method == http.MethodGet && path == "/sensors/5":
		_, _ = io.WriteString(w, `{"id":5,"name":"Greenhouse"}`)
	case r.Method == http.MethodGet && path == "/sensors/5/name":
		_, _ = io.WriteString(w, "Greenhouse")
	case r.Method == http.MethodGet && path == "/sensors/5/lastUpdated":
		_, _ = io.WriteString(w, `"2026-01-02T03:04:05Z"`)
	case r.Method == http.MethodGet && path == "/sensors/42":
		_, _ = io.WriteString(w, `{"id":42,"owner":42}`)
	case r.Method == http.MethodGet && path == "/sensors/42/readings":
		_, _ = io.WriteString(w, `[{"time":50,"value":21.5}]`)
	case r.Method == http.MethodPut && path == "/sensors/42":
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"queued":true}`)
	case r.Method != http.MethodGet && strings.HasPrefix(path, "/sensors"):
		_, _ = io.WriteString(w, "true")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ========================================
// Gateway harness
// ========================================

// fakeClock is a manually advanced clock for rate-limit windows.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testGateway struct {
	handler  http.Handler
	internal *fakeInternal
	clock    *fakeClock
	router   *Router
}

// newTestGateway wires the full router against a fake internal service,
// validating API keys against a static list holding testClientKey.
func newTestGateway(t *testing.T, handler http.HandlerFunc, mutate ...func(*ChiMiddlewareConfig)) *testGateway {
	t.Helper()
	return newTestGatewayWithKeys(t, handler, nil, mutate...)
}

// newTestGatewayWithKeys is newTestGateway with a custom key checker built
// from the upstream client. A nil keys uses the static list.
func newTestGatewayWithKeys(t *testing.T, handler http.HandlerFunc, keys func(*upstream.Client) auth.KeyChecker, mutate ...func(*ChiMiddlewareConfig)) *testGateway {
	t.Helper()

	internal := newFakeInternal(t, handler)
	client, err := upstream.New(upstream.Config{
		BaseURL: internal.server.URL,
		APIKey:  testSharedKey,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("upstream.New() error = %v", err)
	}

	clock := newFakeClock()
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.Now = clock.Now
	for _, m := range mutate {
		m(mwCfg)
	}

	cookie := auth.DefaultCookieConfig()
	sessions := auth.NewSessionResolver(client, cookie)
	p, err := proxy.New(client, client, proxy.Config{})
	if err != nil {
		t.Fatalf("proxy.New() error = %v", err)
	}

	var checker auth.KeyChecker = auth.NewStaticKeys([]string{testClientKey})
	if keys != nil {
		checker = keys(client)
	}

	router := NewRouter(RouterDeps{
		Middleware: NewChiMiddleware(mwCfg),
		KeyGuard:   auth.NewKeyGuard(checker),
		Sensors:    NewSensorHandlers(client),
		Data:       NewDataHandlers(p, cookie),
		Auth: NewAuthHandlers(
			auth.NewCredentialVerifier(client, auth.DefaultProvider()),
			auth.NewTokenIssuer(client, auth.DefaultProvider()),
			sessions,
		),
		Health: NewHealthHandlers(client),
	})

	return &testGateway{
		handler:  router.Setup(),
		internal: internal,
		clock:    clock,
		router:   router,
	}
}

func (g *testGateway) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	g.handler.ServeHTTP(rec, req)
	return rec
}

// decodeBody decodes a JSON response body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

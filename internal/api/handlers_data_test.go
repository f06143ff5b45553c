// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/sensorgate/internal/auth"
)

func TestDataHandlers_SubstitutesUserID(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, nil)
	rec := g.do(t, http.MethodPost, "/data",
		`{"token":"abc","query":"/sensors/:user_id/readings?dataType=temp&timeStart=0&timeEnd=100"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := rec.Body.String(); got != `[{"time":50,"value":21.5}]` {
		t.Errorf("body = %s, want the upstream readings", got)
	}

	call, ok := g.internal.find("/sensors/")
	if !ok {
		t.Fatal("no data call reached the internal service")
	}
	if call.Path != "/sensors/42/readings" {
		t.Errorf("upstream path = %q, want /sensors/42/readings", call.Path)
	}
	wantQuery := "dataType=temp&timeStart=0&timeEnd=100&key=" + testSharedKey
	if call.Query != wantQuery {
		t.Errorf("upstream query = %q, want %q", call.Query, wantQuery)
	}
}

func TestDataHandlers_CookieFallback(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, nil)
	cookie := &http.Cookie{Name: auth.DefaultCookieName, Value: "abc"}
	rec := g.do(t, http.MethodPost, "/data", `{"query":"/sensors/:user_id"}`, cookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := g.internal.last().Path; got != "/sensors/42" {
		t.Errorf("upstream path = %q, want /sensors/42", got)
	}
}

func TestDataHandlers_RelaysMutationStatus(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, nil)
	rec := g.do(t, http.MethodPost, "/data/put",
		`{"token":"abc","query":"/sensors/:user_id","body":{"name":"Porch"}}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if got := rec.Body.String(); got != `{"queued":true}` {
		t.Errorf("body = %s, want the upstream body", got)
	}
	call := g.internal.last()
	if call.Method != http.MethodPut {
		t.Errorf("upstream method = %s, want PUT", call.Method)
	}
	if call.Body != `{"name":"Porch"}` {
		t.Errorf("upstream body = %s, want the forwarded body", call.Body)
	}
}

func TestDataHandlers_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{"malformed body", `{"token":`, http.StatusBadRequest, 0},
		{"empty query", `{"token":"abc","query":""}`, http.StatusBadRequest, 0},
		{"absolute url", `{"token":"abc","query":"http://evil.example/x"}`, http.StatusBadRequest, 0},
		{"client supplied key", `{"token":"abc","query":"/sensors/:user_id?key=mine"}`, http.StatusBadRequest, 0},
		{"path traversal", `{"token":"abc","query":"/sensors/../users/1"}`, http.StatusBadRequest, 0},
		{"foreign placeholder", `{"token":"abc","query":"/users/:id"}`, http.StatusBadRequest, 0},
		{"outside allow-list", `{"token":"abc","query":"/admin/:user_id"}`, http.StatusBadRequest, 0},
		{"missing token", `{"query":"/sensors/:user_id"}`, http.StatusUnauthorized, 0},
		{"unknown token", `{"token":"nope","query":"/sensors/:user_id"}`, http.StatusUnauthorized, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := newTestGateway(t, nil)
			rec := g.do(t, http.MethodPost, "/data", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if n := g.internal.callCount(); n != tt.wantCalls {
				t.Errorf("upstream calls = %d, want %d", n, tt.wantCalls)
			}
			if _, ok := g.internal.find("/sensors"); ok {
				t.Error("a rejected request reached a data endpoint")
			}
		})
	}
}

func TestDataHandlers_UnknownTokenMessage(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, nil)
	rec := g.do(t, http.MethodPost, "/data", `{"token":"nope","query":"/sensors/:user_id"}`)
	body := decodeBody(t, rec)
	if body["error"] != "Invalid or expired token." {
		t.Errorf("error = %v, want %q", body["error"], "Invalid or expired token.")
	}
	if strings.Contains(rec.Body.String(), "nope") {
		t.Errorf("response echoes the token: %s", rec.Body.String())
	}
}

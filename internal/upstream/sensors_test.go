// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestSensorsNear_Query(t *testing.T) {
	t.Parallel()

	svc := newMockService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})
	c := newTestClient(t, svc.server.URL)

	data, err := c.SensorsNear(context.Background(), 10, 20.5, 1000)
	if err != nil {
		t.Fatalf("SensorsNear() error = %v", err)
	}
	if string(data) != `[{"id":1}]` {
		t.Errorf("SensorsNear() = %s", data)
	}

	q, _ := url.ParseQuery(svc.lastCall().Query)
	if q.Get("longitude") != "10" || q.Get("latitude") != "20.5" || q.Get("distance") != "1000" {
		t.Errorf("query = %v", q)
	}
	if q.Get("key") != testSharedKey {
		t.Errorf("key = %q, want shared key", q.Get("key"))
	}
}

func TestSensor_NotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404", http.StatusNotFound, ""},
		{"null body", http.StatusOK, "null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newMockService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestClient(t, svc.server.URL)

			if _, err := c.Sensor(context.Background(), 5); !errors.Is(err, ErrNotFound) {
				t.Errorf("Sensor() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSensorName_PlainTextBecomesJSONString(t *testing.T) {
	t.Parallel()

	svc := newMockService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("Greenhouse"))
	})
	c := newTestClient(t, svc.server.URL)

	data, err := c.SensorName(context.Background(), 5)
	if err != nil {
		t.Fatalf("SensorName() error = %v", err)
	}
	if string(data) != `"Greenhouse"` {
		t.Errorf("SensorName() = %s, want \"Greenhouse\"", data)
	}
	if path := svc.lastCall().Path; path != "/sensors/5/name" {
		t.Errorf("path = %q", path)
	}
}

func TestReadings_Query(t *testing.T) {
	t.Parallel()

	svc := newMockService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	c := newTestClient(t, svc.server.URL)

	if _, err := c.Readings(context.Background(), 42, "temp", 0, 100); err != nil {
		t.Fatalf("Readings() error = %v", err)
	}

	call := svc.lastCall()
	if call.Path != "/sensors/42/readings" {
		t.Errorf("path = %q", call.Path)
	}
	q, _ := url.ParseQuery(call.Query)
	if q.Get("dataType") != "temp" || q.Get("timeStart") != "0" || q.Get("timeEnd") != "100" {
		t.Errorf("query = %v", q)
	}
}

func TestMutations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		call       func(*Client) error
		wantMethod string
		wantPath   string
		wantBody   string
	}{
		{
			name:       "create",
			call:       func(c *Client) error { return c.CreateSensor(context.Background(), "Foo", 10, 20) },
			wantMethod: http.MethodPost,
			wantPath:   "/sensors",
			wantBody:   `{"latitude":20,"longitude":10,"name":"Foo"}`,
		},
		{
			name:       "delete",
			call:       func(c *Client) error { return c.DeleteSensor(context.Background(), 8) },
			wantMethod: http.MethodDelete,
			wantPath:   "/sensors/8",
		},
		{
			name:       "add data",
			call:       func(c *Client) error { return c.AddSensorData(context.Background(), 8, "battery", 99.5) },
			wantMethod: http.MethodPut,
			wantPath:   "/sensors/8",
			wantBody:   `{"datatype":"battery","value":99.5}`,
		},
		{
			name:       "set status",
			call:       func(c *Client) error { return c.SetSensorStatus(context.Background(), 8, "offline") },
			wantMethod: http.MethodPut,
			wantPath:   "/sensors/8/status/offline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newMockService(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("true"))
			})
			c := newTestClient(t, svc.server.URL)

			if err := tt.call(c); err != nil {
				t.Fatalf("mutation error = %v", err)
			}
			call := svc.lastCall()
			if call.Method != tt.wantMethod || call.Path != tt.wantPath {
				t.Errorf("call = %s %s, want %s %s", call.Method, call.Path, tt.wantMethod, tt.wantPath)
			}
			if tt.wantBody != "" && call.Body != tt.wantBody {
				t.Errorf("body = %s, want %s", call.Body, tt.wantBody)
			}
		})
	}
}

func TestMutation_FalseIsRejected(t *testing.T) {
	t.Parallel()

	svc := newMockService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("false"))
	})
	c := newTestClient(t, svc.server.URL)

	if err := c.DeleteSensor(context.Background(), 1); !errors.Is(err, ErrRejected) {
		t.Errorf("DeleteSensor() error = %v, want ErrRejected", err)
	}
}

func TestAsJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", "null"},
		{`{"a":1}`, `{"a":1}`},
		{"12", "12"},
		{"online", `"online"`},
	}
	for _, tt := range tests {
		if got := string(AsJSON([]byte(tt.in))); got != tt.want {
			t.Errorf("AsJSON(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

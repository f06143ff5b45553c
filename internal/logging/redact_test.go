// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package logging

import (
	"strings"
	"testing"
)

const testToken = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestRedactToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"short", "abc", "[REDACTED]"},
		{"full token", testToken, "01234567..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RedactToken(tt.in); got != tt.want {
				t.Errorf("RedactToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	raw := "http://users.internal:3000/users/token/" + testToken + "?key=s3cret"
	got := RedactURL(raw)

	if strings.Contains(got, "s3cret") {
		t.Errorf("RedactURL() leaked the key: %s", got)
	}
	if strings.Contains(got, testToken) {
		t.Errorf("RedactURL() leaked the token: %s", got)
	}
	if !strings.Contains(got, "/users/token/01234567...") {
		t.Errorf("RedactURL() = %s, want redacted token prefix", got)
	}

	if got := RedactURL("/sensors/42/readings?dataType=temp"); got != "/sensors/42/readings?dataType=temp" {
		t.Errorf("RedactURL() altered a clean path: %s", got)
	}
}

func TestSanitizeValue(t *testing.T) {
	t.Parallel()

	got := SanitizeValue("line1\nfake=\"entry\"\x00")
	if strings.ContainsAny(got, "\n\x00") {
		t.Errorf("SanitizeValue() kept control characters: %q", got)
	}
	if !strings.Contains(got, `\n`) || !strings.Contains(got, `\x00`) {
		t.Errorf("SanitizeValue() = %q, want escaped control characters", got)
	}

	long := strings.Repeat("a", 400)
	if got := SanitizeValue(long); !strings.HasSuffix(got, "...[truncated]") {
		t.Errorf("SanitizeValue() did not truncate long input")
	}
}

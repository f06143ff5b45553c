// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package logging

import (
	"net/url"
	"regexp"
	"strings"
)

// redactedTokenPrefix is how many leading characters of a token survive redaction.
const redactedTokenPrefix = 8

// maxLogValueLength bounds client-supplied strings attached to log lines.
const maxLogValueLength = 256

// tokenSegment matches 64-character hex tokens embedded in upstream paths.
var tokenSegment = regexp.MustCompile(`[0-9a-fA-F]{64}`)

// RedactToken keeps a short prefix of a session token so that log lines can be
// correlated without exposing a usable credential.
//
//	logging.RedactToken("5e884898da2804...") // "5e884898..."
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= redactedTokenPrefix {
		return "[REDACTED]"
	}
	return token[:redactedTokenPrefix] + "..."
}

// RedactURL strips the shared service key and embedded tokens from an
// upstream URL or path before it is logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[UNPARSEABLE URL]"
	}

	if q := u.Query(); q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	u.User = nil
	u.Path = tokenSegment.ReplaceAllStringFunc(u.Path, RedactToken)
	u.RawPath = ""

	return u.String()
}

// SanitizeValue escapes control characters and truncates a client-supplied
// value so it cannot forge log lines.
func SanitizeValue(s string) string {
	if len(s) > maxLogValueLength {
		s = s[:maxLogValueLength] + "...[truncated]"
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			b.WriteString(`\x`)
			b.WriteByte("0123456789abcdef"[r>>4])
			b.WriteByte("0123456789abcdef"[r&0xf])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package proxy

import (
	"regexp"
	"strconv"
	"strings"
)

// UserIDPlaceholder is the only placeholder a template may contain.
const UserIDPlaceholder = ":user_id"

// MaxTemplateLength bounds client-supplied templates.
const MaxTemplateLength = 2048

var (
	literalSegment = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)
	queryName      = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	queryValue     = regexp.MustCompile(`^(?:[A-Za-z0-9._~,-]|%[0-9A-Fa-f]{2})*$`)
	encodedSlash   = regexp.MustCompile(`(?i)%2f|%5c`)
)

type queryPair struct {
	name  string
	value string
}

// Template is a parsed query template. The zero value is not usable; build
// one with ParseTemplate.
type Template struct {
	segments []string
	query    []queryPair
}

// ParseTemplate validates raw against the template grammar:
//
//	template = path [ "?" query ]
//	path     = 1*( "/" segment )
//	segment  = literal / ":user_id"
//	query    = pair *( "&" pair )
//	pair     = name "=" value
//	value    = ":user_id" / *( unreserved / "," / pct-encoded )
//
// Absolute URLs, fragments, other placeholders, encoded slashes and a
// client-supplied "key" parameter are rejected.
func ParseTemplate(raw string) (*Template, error) {
	switch {
	case raw == "":
		return nil, invalid("query is empty")
	case len(raw) > MaxTemplateLength:
		return nil, invalid("query exceeds %d characters", MaxTemplateLength)
	case !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//"):
		return nil, invalid("query must be a path starting with a single /")
	case strings.ContainsAny(raw, "\\#"):
		return nil, invalid("query contains a backslash or fragment")
	case encodedSlash.MatchString(raw):
		return nil, invalid("query contains an encoded slash")
	}
	for _, r := range raw {
		if r <= ' ' || r == 0x7f {
			return nil, invalid("query contains whitespace or control characters")
		}
	}

	path, rawQuery, hasQuery := strings.Cut(raw, "?")

	t := &Template{}
	for _, seg := range strings.Split(path[1:], "/") {
		switch {
		case seg == UserIDPlaceholder:
		case strings.Contains(seg, ":"):
			return nil, invalid("unrecognized placeholder in path segment %q", seg)
		case seg == "." || seg == "..":
			return nil, invalid("dot segments are not allowed")
		case !literalSegment.MatchString(seg):
			return nil, invalid("invalid path segment %q", seg)
		}
		t.segments = append(t.segments, seg)
	}

	if hasQuery {
		for _, pair := range strings.Split(rawQuery, "&") {
			name, value, ok := strings.Cut(pair, "=")
			switch {
			case !ok || !queryName.MatchString(name):
				return nil, invalid("invalid query parameter %q", pair)
			case strings.EqualFold(name, "key"):
				return nil, invalid("the key parameter is reserved")
			case value == UserIDPlaceholder:
			case strings.Contains(value, ":"):
				return nil, invalid("unrecognized placeholder in parameter %q", name)
			case !queryValue.MatchString(value):
				return nil, invalid("invalid value for parameter %q", name)
			}
			t.query = append(t.query, queryPair{name: name, value: value})
		}
	}

	return t, nil
}

// Render substitutes userID for every placeholder and returns the
// path-and-query string.
func (t *Template) Render(userID int64) string {
	id := strconv.FormatInt(userID, 10)

	var b strings.Builder
	for _, seg := range t.segments {
		b.WriteByte('/')
		if seg == UserIDPlaceholder {
			b.WriteString(id)
		} else {
			b.WriteString(seg)
		}
	}
	for i, p := range t.query {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.name)
		b.WriteByte('=')
		if p.value == UserIDPlaceholder {
			b.WriteString(id)
		} else {
			b.WriteString(p.value)
		}
	}
	return b.String()
}

// Allowlist restricts the path shapes a template may target. Pattern
// segments are literals, "*" (any one segment), "**" (any remaining
// segments, last only) or ":user_id" (the placeholder itself).
type Allowlist struct {
	patterns [][]string
}

// NewAllowlist parses patterns such as "/sensors/**".
func NewAllowlist(patterns []string) (*Allowlist, error) {
	a := &Allowlist{}
	for _, p := range patterns {
		if !strings.HasPrefix(p, "/") {
			return nil, invalid("allowed path %q must start with /", p)
		}
		segs := strings.Split(strings.TrimPrefix(p, "/"), "/")
		for i, s := range segs {
			if s == "" {
				return nil, invalid("allowed path %q has an empty segment", p)
			}
			if s == "**" && i != len(segs)-1 {
				return nil, invalid("allowed path %q: ** must be the last segment", p)
			}
		}
		a.patterns = append(a.patterns, segs)
	}
	return a, nil
}

// Allows reports whether t matches any pattern.
func (a *Allowlist) Allows(t *Template) bool {
	for _, p := range a.patterns {
		if matchSegments(p, t.segments) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, segments []string) bool {
	for i, p := range pattern {
		if p == "**" {
			return true
		}
		if i >= len(segments) {
			return false
		}
		if p != "*" && p != segments[i] {
			return false
		}
	}
	return len(pattern) == len(segments)
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// StoreToken binds token to userID in the internal service, replacing any
// previous token for that user.
func (c *Client) StoreToken(ctx context.Context, userID int64, token string) error {
	resp, err := c.Do(ctx, Request{
		Op:     "store_token",
		Method: http.MethodPut,
		Path:   fmt.Sprintf("/users/%d/token/%s", userID, url.PathEscape(token)),
	})
	if err != nil {
		return err
	}
	return expectSuccess("store_token", resp)
}

// ResolveToken returns the user id bound to token. It returns ErrNotFound
// when the service does not know the token.
func (c *Client) ResolveToken(ctx context.Context, token string) (int64, error) {
	return c.lookupUserID(ctx, "resolve_token", "/users/token/"+url.PathEscape(token))
}

// UserIDByEmail returns the user id registered for email, or ErrNotFound.
func (c *Client) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	return c.lookupUserID(ctx, "user_by_email", "/users/email/"+url.PathEscape(email))
}

// CheckPassword asks the internal service whether hashedPassword matches the
// stored digest for userID. An unknown user is reported as a mismatch.
func (c *Client) CheckPassword(ctx context.Context, userID int64, hashedPassword string) (bool, error) {
	return c.lookupBool(ctx, "check_password",
		fmt.Sprintf("/users/%d/password/%s", userID, url.PathEscape(hashedPassword)))
}

// CheckKey asks the internal service whether key is a valid client API key.
func (c *Client) CheckKey(ctx context.Context, key string) (bool, error) {
	return c.lookupBool(ctx, "check_key", "/users/key/"+url.PathEscape(key))
}

func (c *Client) lookupUserID(ctx context.Context, op, path string) (int64, error) {
	resp, err := c.Do(ctx, Request{Op: op, Method: http.MethodGet, Path: path})
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrNotFound
	}
	if !resp.OK() {
		return 0, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	return parseUserID(resp.Body)
}

func (c *Client) lookupBool(ctx context.Context, op, path string) (bool, error) {
	resp, err := c.Do(ctx, Request{Op: op, Method: http.MethodGet, Path: path})
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if !resp.OK() {
		return false, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	return parseBool(resp.Body)
}

// parseUserID accepts a bare integer ("42"), a JSON string ("\"42\"") or an
// object with a user_id or id field. Empty bodies, null, false and negative
// ids mean the lookup found nothing.
func parseUserID(body []byte) (int64, error) {
	body = bytes.TrimSpace(body)
	if isEmptyResult(body) {
		return 0, ErrNotFound
	}

	var raw json.RawMessage = body
	if body[0] == '{' {
		var obj struct {
			UserID json.RawMessage `json:"user_id"`
			ID     json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(body, &obj); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		raw = obj.UserID
		if len(raw) == 0 {
			raw = obj.ID
		}
		if isEmptyResult(raw) {
			return 0, ErrNotFound
		}
	}

	text := string(raw)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: user id is not an integer", ErrMalformedResponse)
	}
	if id < 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

// parseBool accepts JSON true/false, optionally quoted.
func parseBool(body []byte) (bool, error) {
	switch string(bytes.Trim(bytes.TrimSpace(body), `"`)) {
	case "true":
		return true, nil
	case "false", "", "null":
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected boolean", ErrMalformedResponse)
	}
}

// isEmptyResult reports whether body is one of the sentinel "nothing" values.
func isEmptyResult(body []byte) bool {
	switch string(bytes.TrimSpace(body)) {
	case "", "null", "false", `""`, "-1", `"-1"`:
		return true
	default:
		return false
	}
}

// expectSuccess maps a mutation response to nil, ErrNotFound, ErrRejected or
// a *StatusError.
func expectSuccess(op string, resp *Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case !resp.OK():
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(truncate(resp.Body, 512))}
	}

	switch string(bytes.TrimSpace(resp.Body)) {
	case "false", "null":
		return ErrRejected
	default:
		return nil
	}
}

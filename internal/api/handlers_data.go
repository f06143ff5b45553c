// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/auth"
	"github.com/tomtom215/sensorgate/internal/models"
	"github.com/tomtom215/sensorgate/internal/proxy"
	"github.com/tomtom215/sensorgate/internal/validation"
)

// envelopeOverhead is the allowance for the token and query around a
// forwarded body.
const envelopeOverhead = 8 << 10

// Forwarder forwards query templates. Satisfied by *proxy.Proxy.
type Forwarder interface {
	Forward(ctx context.Context, req proxy.Request) (*proxy.Result, error)
	MaxBodyBytes() int64
}

// DataHandlers serves the /data proxy routes used by the browser frontend.
type DataHandlers struct {
	proxy  Forwarder
	cookie auth.CookieConfig
}

// NewDataHandlers creates DataHandlers. cookie supplies the session token
// when the request body carries none.
func NewDataHandlers(p Forwarder, cookie auth.CookieConfig) *DataHandlers {
	return &DataHandlers{proxy: p, cookie: cookie}
}

// Get handles POST /data: forwards the template as GET and answers 200 with
// the upstream body.
func (h *DataHandlers) Get(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodGet)
}

// Put handles POST /data/put and relays the upstream status.
func (h *DataHandlers) Put(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodPut)
}

// Post handles POST /data/post and relays the upstream status.
func (h *DataHandlers) Post(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodPost)
}

// Delete handles POST /data/delete and relays the upstream status.
func (h *DataHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, http.MethodDelete)
}

func (h *DataHandlers) forward(w http.ResponseWriter, r *http.Request, method string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.proxy.MaxBodyBytes()+envelopeOverhead)

	var req models.DataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondValidationError(w, r, validation.NewFieldError("body", "body must be a JSON object with token and query"))
		return
	}

	token := req.Token
	if token == "" {
		token = h.cookie.Token(r)
	}

	var body []byte
	if trimmed := bytes.TrimSpace(req.Body); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		body = trimmed
	}

	res, err := h.proxy.Forward(r.Context(), proxy.Request{
		Token:  token,
		Query:  req.Query,
		Method: method,
		Body:   body,
	})
	if err != nil {
		respondProxyError(w, r, err)
		return
	}
	respondRaw(w, r, res.Status, res.Body)
}

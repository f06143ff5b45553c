// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sensorgate/internal/validation"
)

// Typed request structs for the sensor routes. Every query or path value is
// parsed into its field first; a value that does not parse is reported as a
// validation error before the struct tags run.

// SensorsNearRequest is GET /sensors.
type SensorsNearRequest struct {
	Longitude float64 `json:"longitude" validate:"longitude"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Distance  float64 `json:"distance" validate:"gte=0"`
}

// SensorIDRequest is any route addressing a single sensor.
type SensorIDRequest struct {
	SensorID int64 `json:"sensor_id" validate:"gte=0"`
}

// CreateSensorRequest is POST /sensors.
type CreateSensorRequest struct {
	Name      string  `json:"sensor" validate:"required,max=128"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
}

// AddSensorDataRequest is PUT /sensors/{sensor_id}.
type AddSensorDataRequest struct {
	SensorID int64   `json:"sensor_id" validate:"gte=0"`
	DataType string  `json:"datatype" validate:"required,identifier"`
	Value    float64 `json:"value"`
}

// SetStatusRequest is PUT /sensors/{sensor_id}/status/{status}.
type SetStatusRequest struct {
	SensorID int64  `json:"sensor_id" validate:"gte=0"`
	Status   string `json:"status" validate:"required,identifier"`
}

// LastReadingRequest is GET /sensors/{sensor_id}/lastReading.
type LastReadingRequest struct {
	SensorID int64  `json:"sensor_id" validate:"gte=0"`
	DataType string `json:"dataType" validate:"required,identifier"`
}

// ReadingsRequest is GET /sensors/{sensor_id}/readings.
type ReadingsRequest struct {
	SensorID  int64  `json:"sensor_id" validate:"gte=0"`
	DataType  string `json:"dataType" validate:"required,identifier"`
	TimeStart int64  `json:"timeStart" validate:"gte=0"`
	TimeEnd   int64  `json:"timeEnd" validate:"gtefield=TimeStart"`
}

// paramParser collects typed values from a request and remembers the first
// value that failed to parse.
type paramParser struct {
	r     *http.Request
	query url.Values
	err   *validation.RequestValidationError
}

func newParamParser(r *http.Request) *paramParser {
	return &paramParser{r: r, query: r.URL.Query()}
}

func (p *paramParser) fail(name, message string) {
	if p.err == nil {
		p.err = validation.NewFieldError(name, message)
	}
}

// Query returns a trimmed query value.
func (p *paramParser) Query(name string) string {
	return strings.TrimSpace(p.query.Get(name))
}

// QueryFloat parses a required finite float query value.
func (p *paramParser) QueryFloat(name string) float64 {
	return p.float(name, p.Query(name))
}

// QueryInt parses a required integer query value.
func (p *paramParser) QueryInt(name string) int64 {
	return p.int(name, p.Query(name))
}

// PathInt parses an integer chi URL parameter.
func (p *paramParser) PathInt(name string) int64 {
	return p.int(name, chi.URLParam(p.r, name))
}

// Path returns a chi URL parameter.
func (p *paramParser) Path(name string) string {
	return chi.URLParam(p.r, name)
}

func (p *paramParser) float(name, raw string) float64 {
	if raw == "" {
		p.fail(name, name+" is required")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(name, name+" must be a number")
		return 0
	}
	return v
}

func (p *paramParser) int(name, raw string) int64 {
	if raw == "" {
		p.fail(name, name+" is required")
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(name, name+" must be an integer")
		return 0
	}
	return v
}

// Validate returns the first parse error, or the struct validation result.
func (p *paramParser) Validate(req interface{}) *validation.RequestValidationError {
	if p.err != nil {
		return p.err
	}
	return validation.ValidateStruct(req)
}

// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorgate/internal/logging"
	"github.com/tomtom215/sensorgate/internal/models"
	"github.com/tomtom215/sensorgate/internal/upstream"
)

// SensorService is the subset of the internal service used by the sensor
// routes. Satisfied by *upstream.Client.
type SensorService interface {
	SensorsNear(ctx context.Context, longitude, latitude, distance float64) (json.RawMessage, error)
	Sensor(ctx context.Context, sensorID int64) (json.RawMessage, error)
	SensorStatus(ctx context.Context, sensorID int64) (json.RawMessage, error)
	SensorName(ctx context.Context, sensorID int64) (json.RawMessage, error)
	LastUpdated(ctx context.Context, sensorID int64) (json.RawMessage, error)
	LastReading(ctx context.Context, sensorID int64, dataType string) (json.RawMessage, error)
	Readings(ctx context.Context, sensorID int64, dataType string, timeStart, timeEnd int64) (json.RawMessage, error)
	CreateSensor(ctx context.Context, name string, longitude, latitude float64) error
	DeleteSensor(ctx context.Context, sensorID int64) error
	AddSensorData(ctx context.Context, sensorID int64, dataType string, value float64) error
	SetSensorStatus(ctx context.Context, sensorID int64, status string) error
}

// SensorHandlers serves the /sensors routes. The API-key guard runs before
// every handler; each handler parses its typed request before calling the
// internal service.
type SensorHandlers struct {
	sensors SensorService
}

// NewSensorHandlers creates SensorHandlers.
func NewSensorHandlers(sensors SensorService) *SensorHandlers {
	return &SensorHandlers{sensors: sensors}
}

// List handles GET /sensors?longitude=&latitude=&distance=.
func (h *SensorHandlers) List(w http.ResponseWriter, r *http.Request) {
	p := newParamParser(r)
	req := SensorsNearRequest{
		Longitude: p.QueryFloat("longitude"),
		Latitude:  p.QueryFloat("latitude"),
		Distance:  p.QueryFloat("distance"),
	}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	data, err := h.sensors.SensorsNear(r.Context(), req.Longitude, req.Latitude, req.Distance)
	h.relayRead(w, r, data, err, "Error getting sensors.")
}

// Get handles GET /sensors/{sensor_id}.
func (h *SensorHandlers) Get(w http.ResponseWriter, r *http.Request) {
	req, ok := parseSensorID(w, r)
	if !ok {
		return
	}
	data, err := h.sensors.Sensor(r.Context(), req.SensorID)
	h.relayRead(w, r, data, err, "Error getting sensor.")
}

// Status handles GET /sensors/{sensor_id}/status.
func (h *SensorHandlers) Status(w http.ResponseWriter, r *http.Request) {
	req, ok := parseSensorID(w, r)
	if !ok {
		return
	}
	data, err := h.sensors.SensorStatus(r.Context(), req.SensorID)
	h.relayRead(w, r, data, err, "Error getting sensor status.")
}

// Name handles GET /sensors/{sensor_id}/name.
func (h *SensorHandlers) Name(w http.ResponseWriter, r *http.Request) {
	req, ok := parseSensorID(w, r)
	if !ok {
		return
	}
	data, err := h.sensors.SensorName(r.Context(), req.SensorID)
	h.relayRead(w, r, data, err, "Error getting sensor name.")
}

// LastUpdated handles GET /sensors/{sensor_id}/lastUpdated. An empty answer
// is reported as 500, matching the frontend's expectations.
func (h *SensorHandlers) LastUpdated(w http.ResponseWriter, r *http.Request) {
	req, ok := parseSensorID(w, r)
	if !ok {
		return
	}

	data, err := h.sensors.LastUpdated(r.Context(), req.SensorID)
	if err != nil {
		if respondUnavailable(w, r, err) {
			return
		}
		h.logFailure(r, "last_updated", err)
		respondMessage(w, r, http.StatusInternalServerError, "Error getting last update")
		return
	}
	respondRaw(w, r, http.StatusOK, data)
}

// LastReading handles GET /sensors/{sensor_id}/lastReading?dataType=.
func (h *SensorHandlers) LastReading(w http.ResponseWriter, r *http.Request) {
	p := newParamParser(r)
	req := LastReadingRequest{
		SensorID: p.PathInt("sensor_id"),
		DataType: p.Query("dataType"),
	}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	data, err := h.sensors.LastReading(r.Context(), req.SensorID, req.DataType)
	h.relayRead(w, r, data, err, "Error getting last reading.")
}

// Readings handles GET /sensors/{sensor_id}/readings?dataType=&timeStart=&timeEnd=.
func (h *SensorHandlers) Readings(w http.ResponseWriter, r *http.Request) {
	p := newParamParser(r)
	req := ReadingsRequest{
		SensorID:  p.PathInt("sensor_id"),
		DataType:  p.Query("dataType"),
		TimeStart: p.QueryInt("timeStart"),
		TimeEnd:   p.QueryInt("timeEnd"),
	}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	data, err := h.sensors.Readings(r.Context(), req.SensorID, req.DataType, req.TimeStart, req.TimeEnd)
	h.relayRead(w, r, data, err, "Error getting readings.")
}

// Create handles POST /sensors?sensor=&longitude=&latitude=.
func (h *SensorHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p := newParamParser(r)
	req := CreateSensorRequest{
		Name:      p.Query("sensor"),
		Longitude: p.QueryFloat("longitude"),
		Latitude:  p.QueryFloat("latitude"),
	}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	err := h.sensors.CreateSensor(r.Context(), req.Name, req.Longitude, req.Latitude)
	if !h.mutationOK(w, r, "create", err, "Error creating sensor.") {
		return
	}
	respondMessage(w, r, http.StatusCreated, "Sensor created successfully.")
}

// Delete handles DELETE /sensors/{sensor_id}.
func (h *SensorHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := parseSensorID(w, r)
	if !ok {
		return
	}

	err := h.sensors.DeleteSensor(r.Context(), req.SensorID)
	if !h.mutationOK(w, r, "delete", err, "Error deleting sensor.") {
		return
	}
	respondMessage(w, r, http.StatusOK, "Sensor deleted successfully.")
}

// AddData handles PUT /sensors/{sensor_id}?datatype=&value=.
func (h *SensorHandlers) AddData(w http.ResponseWriter, r *http.Request) {
	p := newParamParser(r)
	req := AddSensorDataRequest{
		SensorID: p.PathInt("sensor_id"),
		DataType: p.Query("datatype"),
		Value:    p.QueryFloat("value"),
	}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	err := h.sensors.AddSensorData(r.Context(), req.SensorID, req.DataType, req.Value)
	if !h.mutationOK(w, r, "add_data", err, "Error adding data to sensor.") {
		return
	}
	respondMessage(w, r, http.StatusOK, fmt.Sprintf("Added %s to %s for sensor %d.",
		strconv.FormatFloat(req.Value, 'f', -1, 64), req.DataType, req.SensorID))
}

// SetStatus handles PUT /sensors/{sensor_id}/status/{status}.
func (h *SensorHandlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	p := newParamParser(r)
	req := SetStatusRequest{
		SensorID: p.PathInt("sensor_id"),
		Status:   p.Path("status"),
	}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	err := h.sensors.SetSensorStatus(r.Context(), req.SensorID, req.Status)
	if !h.mutationOK(w, r, "set_status", err, "Error changing sensor status.") {
		return
	}
	respondMessage(w, r, http.StatusOK, fmt.Sprintf("Changed sensor %d to status %s.", req.SensorID, req.Status))
}

func parseSensorID(w http.ResponseWriter, r *http.Request) (SensorIDRequest, bool) {
	p := newParamParser(r)
	req := SensorIDRequest{SensorID: p.PathInt("sensor_id")}
	if verr := p.Validate(&req); verr != nil {
		respondValidationError(w, r, verr)
		return req, false
	}
	return req, true
}

// relayRead writes data, or maps err: absent sensors are 404, unreachable
// upstreams 502 and any other failure 500 with failMsg.
func (h *SensorHandlers) relayRead(w http.ResponseWriter, r *http.Request, data json.RawMessage, err error, failMsg string) {
	if err == nil {
		respondRaw(w, r, http.StatusOK, data)
		return
	}
	if errors.Is(err, upstream.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, models.CodeNotFound, msgSensorNotFound, nil)
		return
	}
	if respondUnavailable(w, r, err) {
		return
	}
	respondError(w, r, http.StatusInternalServerError, models.CodeExternalServiceFailed, failMsg, err)
}

// mutationOK reports whether err is nil. Otherwise it answers 404 for an
// absent sensor, 502 for an unreachable upstream and 500 {"message":
// failMsg} for anything else.
func (h *SensorHandlers) mutationOK(w http.ResponseWriter, r *http.Request, op string, err error, failMsg string) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, upstream.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, models.CodeNotFound, msgSensorNotFound, nil)
		return false
	}
	if !respondUnavailable(w, r, err) {
		h.logFailure(r, op, err)
		respondMessage(w, r, http.StatusInternalServerError, failMsg)
	}
	return false
}

func (h *SensorHandlers) logFailure(r *http.Request, op string, err error) {
	logging.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("Sensor operation failed")
}

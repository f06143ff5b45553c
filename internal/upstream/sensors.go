// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// SensorsNear lists sensors within distance meters of (longitude, latitude).
func (c *Client) SensorsNear(ctx context.Context, longitude, latitude, distance float64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("longitude", formatFloat(longitude))
	q.Set("latitude", formatFloat(latitude))
	q.Set("distance", formatFloat(distance))
	return c.fetchJSON(ctx, "sensors_near", "/sensors?"+q.Encode(), false)
}

// Sensor returns the full record of one sensor.
func (c *Client) Sensor(ctx context.Context, sensorID int64) (json.RawMessage, error) {
	return c.fetchJSON(ctx, "sensor_get", sensorPath(sensorID, ""), true)
}

// SensorStatus returns the sensor's current status.
func (c *Client) SensorStatus(ctx context.Context, sensorID int64) (json.RawMessage, error) {
	return c.fetchJSON(ctx, "sensor_status", sensorPath(sensorID, "/status"), true)
}

// SensorName returns the sensor's display name.
func (c *Client) SensorName(ctx context.Context, sensorID int64) (json.RawMessage, error) {
	return c.fetchJSON(ctx, "sensor_name", sensorPath(sensorID, "/name"), true)
}

// LastUpdated returns the sensor's most recent update.
func (c *Client) LastUpdated(ctx context.Context, sensorID int64) (json.RawMessage, error) {
	return c.fetchJSON(ctx, "sensor_last_updated", sensorPath(sensorID, "/lastUpdated"), true)
}

// LastReading returns the newest reading of dataType.
func (c *Client) LastReading(ctx context.Context, sensorID int64, dataType string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("dataType", dataType)
	return c.fetchJSON(ctx, "sensor_last_reading", sensorPath(sensorID, "/lastReading")+"?"+q.Encode(), false)
}

// Readings returns readings of dataType between timeStart and timeEnd.
func (c *Client) Readings(ctx context.Context, sensorID int64, dataType string, timeStart, timeEnd int64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("dataType", dataType)
	q.Set("timeStart", strconv.FormatInt(timeStart, 10))
	q.Set("timeEnd", strconv.FormatInt(timeEnd, 10))
	return c.fetchJSON(ctx, "sensor_readings", sensorPath(sensorID, "/readings")+"?"+q.Encode(), false)
}

// CreateSensor registers a new sensor.
func (c *Client) CreateSensor(ctx context.Context, name string, longitude, latitude float64) error {
	body, err := json.Marshal(map[string]any{
		"name":      name,
		"longitude": longitude,
		"latitude":  latitude,
	})
	if err != nil {
		return fmt.Errorf("encode sensor: %w", err)
	}
	return c.mutate(ctx, Request{Op: "sensor_create", Method: http.MethodPost, Path: "/sensors", Body: body})
}

// DeleteSensor removes a sensor.
func (c *Client) DeleteSensor(ctx context.Context, sensorID int64) error {
	return c.mutate(ctx, Request{Op: "sensor_delete", Method: http.MethodDelete, Path: sensorPath(sensorID, "")})
}

// AddSensorData appends a value of dataType to a sensor.
func (c *Client) AddSensorData(ctx context.Context, sensorID int64, dataType string, value float64) error {
	body, err := json.Marshal(map[string]any{
		"datatype": dataType,
		"value":    value,
	})
	if err != nil {
		return fmt.Errorf("encode sensor data: %w", err)
	}
	return c.mutate(ctx, Request{Op: "sensor_add_data", Method: http.MethodPut, Path: sensorPath(sensorID, ""), Body: body})
}

// SetSensorStatus changes a sensor's status.
func (c *Client) SetSensorStatus(ctx context.Context, sensorID int64, status string) error {
	return c.mutate(ctx, Request{
		Op:     "sensor_set_status",
		Method: http.MethodPut,
		Path:   sensorPath(sensorID, "/status/"+url.PathEscape(status)),
	})
}

func (c *Client) mutate(ctx context.Context, req Request) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return expectSuccess(req.Op, resp)
}

// fetchJSON performs a GET and returns the body as JSON. When emptyIsMissing
// is set, a sentinel body (null, false, "") is reported as ErrNotFound.
func (c *Client) fetchJSON(ctx context.Context, op, path string, emptyIsMissing bool) (json.RawMessage, error) {
	resp, err := c.Do(ctx, Request{Op: op, Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !resp.OK() {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode}
	}
	if emptyIsMissing && isEmptyResult(resp.Body) {
		return nil, ErrNotFound
	}
	return AsJSON(resp.Body), nil
}

// AsJSON returns body unchanged when it is valid JSON, "null" when it is
// empty, and otherwise the body encoded as a JSON string (plain-text answers
// such as a sensor name).
func AsJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	encoded, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage("null")
	}
	return encoded
}

func sensorPath(sensorID int64, suffix string) string {
	return "/sensors/" + strconv.FormatInt(sensorID, 10) + suffix
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

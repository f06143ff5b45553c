// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"sync"
	"time"

	"github.com/go-chi/httprate"
)

var _ httprate.LimitCounter = (*FixedWindowCounter)(nil)

// FixedWindowCounter is an in-memory httprate.LimitCounter that counts each
// caller in a fixed window starting at the caller's first request. It never
// reports a previous-window count, so httprate's sliding estimate reduces to
// a plain fixed window.
//
// State is ephemeral; Sweep drops expired windows.
type FixedWindowCounter struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[string]*windowEntry
}

type windowEntry struct {
	start time.Time
	count int
}

// NewFixedWindowCounter creates a counter. now defaults to time.Now.
func NewFixedWindowCounter(window time.Duration, now func() time.Time) *FixedWindowCounter {
	if now == nil {
		now = time.Now
	}
	return &FixedWindowCounter{
		window:  window,
		now:     now,
		entries: make(map[string]*windowEntry),
	}
}

// Config is called by httprate with the limiter's settings.
func (c *FixedWindowCounter) Config(_ int, windowLength time.Duration) {
	c.mu.Lock()
	c.window = windowLength
	c.mu.Unlock()
}

// Increment counts one request for key.
func (c *FixedWindowCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

// IncrementBy counts amount requests for key, opening a new window when the
// previous one has expired.
func (c *FixedWindowCounter) IncrementBy(key string, _ time.Time, amount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e := c.entries[key]
	if e == nil || c.expired(e, now) {
		e = &windowEntry{start: now}
		c.entries[key] = e
	}
	e.count += amount
	return nil
}

// Get returns the count of key's current window. The previous-window count
// is always zero.
func (c *FixedWindowCounter) Get(key string, _, _ time.Time) (int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entries[key]
	if e == nil || c.expired(e, c.now()) {
		return 0, 0, nil
	}
	return e.count, 0, nil
}

// Sweep removes expired windows and returns how many callers remain.
func (c *FixedWindowCounter) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, key)
		}
	}
	return len(c.entries)
}

func (c *FixedWindowCounter) expired(e *windowEntry, now time.Time) bool {
	return !now.Before(e.start.Add(c.window))
}

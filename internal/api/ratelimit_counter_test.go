// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package api

import (
	"sync"
	"testing"
	"time"
)

func TestFixedWindowCounter_CountsWithinWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewFixedWindowCounter(time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		if err := c.Increment("caller", time.Time{}); err != nil {
			t.Fatalf("Increment() error = %v", err)
		}
	}
	if err := c.IncrementBy("caller", time.Time{}, 2); err != nil {
		t.Fatalf("IncrementBy() error = %v", err)
	}

	curr, prev, err := c.Get("caller", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if curr != 5 || prev != 0 {
		t.Errorf("Get() = (%d, %d), want (5, 0)", curr, prev)
	}

	other, _, _ := c.Get("someone-else", time.Time{}, time.Time{})
	if other != 0 {
		t.Errorf("untracked caller count = %d, want 0", other)
	}
}

func TestFixedWindowCounter_WindowStartsAtFirstRequest(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewFixedWindowCounter(time.Minute, clock.Now)

	clock.Advance(40 * time.Second)
	_ = c.Increment("caller", time.Time{})

	// A wall-clock minute boundary passes; the caller's own window has not.
	clock.Advance(30 * time.Second)
	if curr, _, _ := c.Get("caller", time.Time{}, time.Time{}); curr != 1 {
		t.Errorf("count after 30s = %d, want 1", curr)
	}

	clock.Advance(30 * time.Second)
	if curr, _, _ := c.Get("caller", time.Time{}, time.Time{}); curr != 0 {
		t.Errorf("count after window = %d, want 0", curr)
	}

	_ = c.Increment("caller", time.Time{})
	if curr, _, _ := c.Get("caller", time.Time{}, time.Time{}); curr != 1 {
		t.Errorf("count in new window = %d, want 1", curr)
	}
}

func TestFixedWindowCounter_ConfigOverridesWindow(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewFixedWindowCounter(time.Hour, clock.Now)
	c.Config(10, time.Second)

	_ = c.Increment("caller", time.Time{})
	clock.Advance(time.Second)
	if curr, _, _ := c.Get("caller", time.Time{}, time.Time{}); curr != 0 {
		t.Errorf("count = %d, want 0 after the configured window", curr)
	}
}

func TestFixedWindowCounter_Sweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewFixedWindowCounter(time.Minute, clock.Now)

	_ = c.Increment("old", time.Time{})
	clock.Advance(45 * time.Second)
	_ = c.Increment("new", time.Time{})
	clock.Advance(30 * time.Second)

	if remaining := c.Sweep(); remaining != 1 {
		t.Errorf("Sweep() = %d, want 1", remaining)
	}
	if _, ok := c.entries["old"]; ok {
		t.Error("expired caller still tracked after Sweep()")
	}
	if curr, _, _ := c.Get("new", time.Time{}, time.Time{}); curr != 1 {
		t.Errorf("surviving caller count = %d, want 1", curr)
	}
}

func TestFixedWindowCounter_Concurrent(t *testing.T) {
	t.Parallel()

	c := NewFixedWindowCounter(time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Increment("caller", time.Time{})
		}()
	}
	wg.Wait()

	if curr, _, _ := c.Get("caller", time.Time{}, time.Time{}); curr != 50 {
		t.Errorf("count = %d, want 50", curr)
	}
}

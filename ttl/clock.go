// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ttl provides time-based eviction for session records: a Clock
// abstraction so expiry logic is testable, and a background scheduler
// that periodically sweeps an idle-session store.
package ttl

import (
	"sync"
	"time"
)

// Clock supplies the current time to TTL-sensitive code paths. Inject a
// FakeClock in tests instead of sleeping.
type Clock interface {
	Now() time.Time
}

// systemClock reads the real system time.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time Clock used in production.
func SystemClock() Clock { return systemClock{} }

// FakeClock is a manually-advanced Clock for tests.
//
// # Thread Safety
//
// Safe for concurrent use. Advance and Set may interleave with Now the
// same way wall-clock reads interleave with time passing.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the fake time forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set jumps the fake time to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

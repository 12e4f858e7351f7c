// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ttl

import (
	"log/slog"
	"sync"
	"time"
)

// Sweeper is the store-side contract the scheduler drives. SweepNow
// removes expired records and returns how many were removed.
type Sweeper interface {
	SweepNow() int
}

// DefaultSweepInterval is how often the background sweep runs. Expiry is
// also enforced lazily on session listing, so the interval only bounds
// how long a dead session can linger unobserved.
const DefaultSweepInterval = 1 * time.Hour

// Scheduler periodically sweeps a Sweeper in a background goroutine.
//
// Uses the ticker + done channel pattern for graceful shutdown. Start
// and Stop are idempotent and safe for concurrent use.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewScheduler creates a scheduler that sweeps at the given interval.
// A non-positive interval falls back to DefaultSweepInterval.
func NewScheduler(sweeper Sweeper, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start launches the sweep goroutine. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.done = make(chan struct{})
	s.running = true

	go s.run(s.done)
	slog.Info("session sweep scheduler started", "interval", s.interval)
}

// Stop signals the sweep goroutine to exit. Safe to call when not
// running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.done)
	s.running = false
	slog.Info("session sweep scheduler stopped")
}

// Running reports whether the sweep goroutine is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(done <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			removed := s.sweeper.SweepNow()
			if removed > 0 {
				slog.Info("scheduled sweep completed", "removed", removed)
			}
		}
	}
}

// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session owns the in-memory session records that correlate
// chat turns with a remote conversational context.
//
// The Store is the only shared mutable state in the orchestrator. All
// operations take the internal lock, so concurrent resolve/touch/sweep
// calls are atomic with respect to one another. Sessions are volatile:
// nothing survives a process restart.
package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bakuai-dev/kbchat/datatypes"
	"github.com/bakuai-dev/kbchat/ttl"
)

// Session is one tracked conversation context.
//
// Invariants: LastActivity >= CreatedAt, MessageCount >= 1 and only
// increases. Callers receive copies or ids, never pointers into the map.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time
	MessageCount int
}

// Store is a guarded map of session id to session record.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Last-writer-wins per key;
// cross-key operations never corrupt unrelated entries.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	clock     ttl.Clock
	retention time.Duration
}

// NewStore creates a Store that expires sessions idle longer than
// retention. The clock is injectable for tests; pass ttl.SystemClock()
// in production.
func NewStore(retention time.Duration, clock ttl.Clock) *Store {
	if clock == nil {
		clock = ttl.SystemClock()
	}
	return &Store{
		sessions:  make(map[string]*Session),
		clock:     clock,
		retention: retention,
	}
}

// ResolveOrCreate returns the session id this turn should use.
//
// If candidate refers to a tracked session, that session is touched
// (activity refreshed, message count incremented) and its id returned
// unchanged. Any other candidate (empty, expired, or foreign) yields a
// freshly created session with MessageCount 1. The returned id is always
// tracked.
func (s *Store) ResolveOrCreate(candidate string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if sess, ok := s.sessions[candidate]; ok {
		sess.LastActivity = now
		sess.MessageCount++
		return candidate
	}

	id := uuid.NewString()
	s.sessions[id] = &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		MessageCount: 1,
	}
	slog.Debug("session created", "session_id", id)
	return id
}

// RegisterRemote tracks a session id assigned by the remote service.
// Idempotent: an already-tracked id is left untouched so its history
// (creation time, message count) is preserved.
func (s *Store) RegisterRemote(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		return
	}
	now := s.clock.Now()
	s.sessions[id] = &Session{
		ID:           id,
		CreatedAt:    now,
		LastActivity: now,
		MessageCount: 1,
	}
	slog.Debug("remote session registered", "session_id", id)
}

// Contains reports whether id is currently tracked.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// List sweeps expired sessions, then returns summaries of everything
// still tracked, ordered by creation time (ties broken by id) so the
// output is stable across calls.
func (s *Store) List() []datatypes.SessionSummary {
	s.SweepNow()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]datatypes.SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, datatypes.SessionSummary{
			SessionID:    sess.ID,
			CreatedAt:    datatypes.FormatTime(sess.CreatedAt),
			LastActivity: datatypes.FormatTime(sess.LastActivity),
			MessageCount: sess.MessageCount,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// Delete removes the session if present and reports whether it existed.
// A missing id is signalled by the return value, never by an error.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// DeleteAll removes every tracked session and returns how many there were.
func (s *Store) DeleteAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.sessions)
	s.sessions = make(map[string]*Session)
	return n
}

// Sweep removes every session whose last activity is strictly older
// than now minus retention, returning the number removed.
func (s *Store) Sweep(now time.Time, retention time.Duration) int {
	cutoff := now.Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("swept expired sessions", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}

// SweepNow sweeps using the store's clock and configured retention.
// Satisfies ttl.Sweeper so the background scheduler can drive it.
func (s *Store) SweepNow() int {
	return s.Sweep(s.clock.Now(), s.retention)
}

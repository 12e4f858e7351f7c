// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kb

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// mockAnswer pairs a keyword with its canned answer. Order matters:
// the first matching keyword wins.
type mockAnswer struct {
	keyword string
	answer  string
}

// mockAnswers is the fixed response table for mock mode.
var mockAnswers = []mockAnswer{
	{"hello", "Hello! I'm your AI assistant (mock mode)."},
	{"help", "I can help you with various questions (mock mode)."},
	{"status", "I'm running in mock mode."},
	{"test", "This is a test response (mock mode)."},
}

// MockResponder produces deterministic canned answers when Bedrock is
// unavailable. It is a total function: no failure modes, no state.
// Mock session ids are freshly generated and never tracked in the
// session store, which is how callers can tell mock turns apart.
type MockResponder struct{}

// NewMockResponder returns the offline responder.
func NewMockResponder() *MockResponder {
	return &MockResponder{}
}

// Respond matches query case-insensitively against the keyword table
// and returns the canned answer plus a new session id. Queries matching
// nothing get an echo-style default that quotes the query verbatim.
func (m *MockResponder) Respond(query string) (answer, sessionID string) {
	lower := strings.ToLower(query)
	for _, entry := range mockAnswers {
		if strings.Contains(lower, entry.keyword) {
			return entry.answer, uuid.NewString()
		}
	}
	return fmt.Sprintf("I received your message: '%s'. I'm currently in mock mode.", query), uuid.NewString()
}

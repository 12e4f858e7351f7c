// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// SessionSummary is the wire representation of one tracked session,
// returned by GET /sessions.
type SessionSummary struct {
	SessionID    string `json:"session_id"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	MessageCount int    `json:"message_count"`
}

// SessionListResponse is the body of GET /sessions.
type SessionListResponse struct {
	TotalSessions int              `json:"total_sessions"`
	Sessions      []SessionSummary `json:"sessions"`
}

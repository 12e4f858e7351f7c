// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakuai-dev/kbchat/datatypes"
	"github.com/bakuai-dev/kbchat/session"
)

// ListSessions serves GET /sessions. Listing sweeps expired sessions
// first, so the result never contains records past retention.
func ListSessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries := store.List()
		c.JSON(http.StatusOK, datatypes.SessionListResponse{
			TotalSessions: len(summaries),
			Sessions:      summaries,
		})
	}
}

// DeleteSession serves DELETE /sessions/:sessionId. Deleting an unknown
// id is a 404, distinct from a successful delete; it is never a server
// fault.
func DeleteSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		if !store.Delete(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		slog.Info("session deleted", "session_id", id)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("Session %s deleted successfully", id),
		})
	}
}

// DeleteAllSessions serves DELETE /sessions. Always succeeds and
// reports how many sessions were removed.
func DeleteAllSessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		count := store.DeleteAll()
		slog.Info("all sessions cleared", "count", count)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("All %d sessions cleared successfully", count),
		})
	}
}

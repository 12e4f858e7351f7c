// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the orchestrator.
// Handlers are closures over their injected dependencies; business logic
// lives in the services package.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/bakuai-dev/kbchat/datatypes"
	"github.com/bakuai-dev/kbchat/services"
)

var chatTracer = otel.Tracer("kbchat.handlers")

// HandleChat serves POST /chat. The response is always a full
// ChatResponse envelope; only malformed JSON and validation failures
// change the status code. Validation happens here, before any session
// is resolved, so rejected requests leave no trace in the store.
func HandleChat(svc *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			slog.Error("failed to parse chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := req.Validate(); err != nil {
			slog.Warn("rejected chat request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.NewChatFailure(datatypes.ValidationMessage(err), ""))
			return
		}

		c.JSON(http.StatusOK, svc.Handle(ctx, &req))
	}
}

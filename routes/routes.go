// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bakuai-dev/kbchat/config"
	"github.com/bakuai-dev/kbchat/handlers"
	"github.com/bakuai-dev/kbchat/services"
	"github.com/bakuai-dev/kbchat/session"
)

// SetupRoutes registers every endpoint on the router.
//
// The chat and session paths match the original API surface (no /v1
// prefix) so existing front ends keep working.
func SetupRoutes(router *gin.Engine, cfg config.Config, svc *services.ChatService, store *session.Store) {
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/config", handlers.GetConfig(cfg, svc.Online()))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/chat", handlers.HandleChat(svc))

	// Session administration routes
	sessions := router.Group("/sessions")
	{
		sessions.GET("", handlers.ListSessions(store))
		sessions.DELETE("/:sessionId", handlers.DeleteSession(store))
		sessions.DELETE("", handlers.DeleteAllSessions(store))
	}
}

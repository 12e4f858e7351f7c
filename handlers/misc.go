// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bakuai-dev/kbchat/config"
)

// Version of the orchestrator API surface.
const Version = "2.1.0"

// HealthCheck serves GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Root serves GET / with a service banner.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":  "AI Chatbot API with AWS Bedrock Knowledge Base",
		"version":  Version,
		"features": []string{"Retry logic", "Session management"},
	})
}

// GetConfig serves GET /config: configuration introspection for the
// presentation layer to pick its online/mock/offline indicator.
// Identifiers are exposed; credentials never are.
func GetConfig(cfg config.Config, remoteAvailable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"knowledge_base_id":     cfg.KnowledgeBaseID,
			"aws_region":            cfg.AWSRegion,
			"claude_model_id":       cfg.ModelID,
			"debug":                 cfg.Debug,
			"session_cleanup_hours": int(cfg.SessionRetention.Hours()),
			"has_credentials":       cfg.HasCredentials(),
			"bedrock_available":     remoteAvailable,
			"allowed_origins":       cfg.AllowedOrigins,
			"max_retries":           cfg.MaxRetries,
			"retry_delay_seconds":   int(cfg.RetryDelay.Seconds()),
		})
	}
}

// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clearEnv unsets every variable Load reads so tests see a clean slate
// regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KNOWLEDGE_BASE_ID", "AWS_DEFAULT_REGION", "CLAUDE_MODEL_ID",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"MAX_RETRIES", "RETRY_DELAY", "SESSION_CLEANUP_HOURS",
		"ALLOWED_ORIGINS", "DEBUG", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, DefaultKnowledgeBaseID, cfg.KnowledgeBaseID)
	assert.Equal(t, DefaultAWSRegion, cfg.AWSRegion)
	assert.Equal(t, DefaultModelID, cfg.ModelID)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
	assert.Equal(t, DefaultSessionRetention, cfg.SessionRetention)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.HasCredentials())
	assert.True(t, cfg.HasRequiredIdentifiers(), "defaults alone satisfy the identifier requirement")
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KNOWLEDGE_BASE_ID", "KB999")
	t.Setenv("AWS_DEFAULT_REGION", "eu-central-1")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_DELAY", "1")
	t.Setenv("SESSION_CLEANUP_HOURS", "48")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com")
	t.Setenv("DEBUG", "false")
	t.Setenv("PORT", "9000")

	cfg := Load()

	assert.Equal(t, "KB999", cfg.KnowledgeBaseID)
	assert.Equal(t, "eu-central-1", cfg.AWSRegion)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.RetryDelay)
	assert.Equal(t, 48*time.Hour, cfg.SessionRetention)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "9000", cfg.Port)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("RETRY_DELAY", "2.5")

	cfg := Load()

	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
}

func TestHasCredentials(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		secret string
		want   bool
	}{
		{"both present", "AKIA123", "s3cr3t", true},
		{"missing secret", "AKIA123", "", false},
		{"missing key", "", "s3cr3t", false},
		{"both missing", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{AWSAccessKeyID: tt.key, AWSSecretAccessKey: tt.secret}
			assert.Equal(t, tt.want, cfg.HasCredentials())
		})
	}
}

func TestModelARN(t *testing.T) {
	cfg := Config{
		AWSRegion: "us-east-1",
		ModelID:   "anthropic.claude-3-sonnet-20240229-v1:0",
	}
	assert.Equal(t,
		"arn:aws:bedrock:us-east-1::foundation-model/anthropic.claude-3-sonnet-20240229-v1:0",
		cfg.ModelARN())
}

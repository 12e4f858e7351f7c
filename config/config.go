// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the runtime configuration for the kbchat orchestrator.
//
// Configuration is read from the environment exactly once at startup via
// Load() and passed into the components that need it. Nothing in this
// repository reads the environment after startup; tests construct Config
// values directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultKnowledgeBaseID  = "JGMPKF6VEI"
	DefaultAWSRegion        = "us-east-1"
	DefaultModelID          = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultPort             = "8000"
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = 2 * time.Second
	DefaultSessionRetention = 24 * time.Hour
)

// Config is the explicit configuration value object for the orchestrator.
//
// # Fields
//
//   - KnowledgeBaseID: Bedrock Knowledge Base identifier.
//   - AWSRegion: Region the Bedrock agent runtime lives in.
//   - ModelID: Foundation model identifier used for generation.
//   - AWSAccessKeyID / AWSSecretAccessKey: Static credentials. When either
//     is empty the remote path is disabled and the mock responder is used.
//   - MaxRetries: Attempts against Bedrock per chat request. Values < 1
//     degrade to a single attempt.
//   - RetryDelay: Base delay for linear backoff. Values <= 0 degrade to
//     no wait between attempts.
//   - SessionRetention: How long an idle session survives before the
//     sweep removes it.
//   - AllowedOrigins: CORS origins for the HTTP surface.
//   - LogDir: Optional directory for JSON log files alongside stderr.
//   - Debug: Enables gin debug mode and verbose logging.
//   - Port: HTTP listen port.
type Config struct {
	KnowledgeBaseID    string
	AWSRegion          string
	ModelID            string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	MaxRetries       int
	RetryDelay       time.Duration
	SessionRetention time.Duration

	AllowedOrigins []string
	LogDir         string
	Debug          bool
	Port           string
}

// Load builds a Config from the process environment, applying defaults
// for anything unset. It never fails: malformed numeric values fall back
// to their defaults with the same permissiveness the service has always
// had toward partial configuration.
func Load() Config {
	cfg := Config{
		KnowledgeBaseID:    envOr("KNOWLEDGE_BASE_ID", DefaultKnowledgeBaseID),
		AWSRegion:          envOr("AWS_DEFAULT_REGION", DefaultAWSRegion),
		ModelID:            envOr("CLAUDE_MODEL_ID", DefaultModelID),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		MaxRetries:         envInt("MAX_RETRIES", DefaultMaxRetries),
		RetryDelay:         time.Duration(envInt("RETRY_DELAY", int(DefaultRetryDelay/time.Second))) * time.Second,
		SessionRetention:   time.Duration(envInt("SESSION_CLEANUP_HOURS", int(DefaultSessionRetention/time.Hour))) * time.Hour,
		LogDir:             os.Getenv("LOG_DIR"),
		Debug:              strings.EqualFold(envOr("DEBUG", "true"), "true"),
		Port:               envOr("PORT", DefaultPort),
	}

	origins := envOr("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg
}

// HasCredentials reports whether static AWS credentials are present.
// Without them the orchestrator runs in mock mode.
func (c Config) HasCredentials() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}

// HasRequiredIdentifiers reports whether the identifiers a Bedrock query
// needs are all present. A false result is a terminal configuration
// error: no network call can succeed without them.
func (c Config) HasRequiredIdentifiers() bool {
	return c.KnowledgeBaseID != "" && c.AWSRegion != "" && c.ModelID != ""
}

// ModelARN composes the foundation-model ARN Bedrock expects for
// retrieve-and-generate requests.
func (c Config) ModelARN() string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", c.AWSRegion, c.ModelID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

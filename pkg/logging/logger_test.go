// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_StderrOnly(t *testing.T) {
	logger, closeFn := Setup(Config{Service: "test"})
	defer closeFn()

	require.NotNil(t, logger)
	assert.NoError(t, closeFn())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetup_DebugLevel(t *testing.T) {
	logger, closeFn := Setup(Config{Debug: true})
	defer closeFn()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetup_FileLogging(t *testing.T) {
	dir := t.TempDir()

	logger, closeFn := Setup(Config{Service: "orchestrator", LogDir: dir})
	logger.Info("startup complete", "port", "8000")
	require.NoError(t, closeFn())

	name := "orchestrator_" + time.Now().Format("2006-01-02") + ".log"
	raw, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(raw), &entry))
	assert.Equal(t, "startup complete", entry["msg"])
	assert.Equal(t, "8000", entry["port"])
	assert.Equal(t, "orchestrator", entry["service"])
}

func TestSetup_BadLogDirFallsBackToStderr(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0640))

	logger, closeFn := Setup(Config{LogDir: filepath.Join(file, "logs")})
	defer closeFn()

	require.NotNil(t, logger)
	assert.NoError(t, closeFn())
}

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	handler := &multiHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	}}

	logger := slog.New(handler)
	logger.Info("fan out", "n", 1)

	assert.Contains(t, a.String(), "fan out")
	assert.Contains(t, b.String(), "fan out")
}

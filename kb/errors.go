// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kb

import "fmt"

// ConfigError reports that required Bedrock identifiers are missing.
// It is terminal: no amount of retrying produces them, so the retrier
// returns it on the first attempt without waiting.
type ConfigError struct {
	Reason string
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// IsConfigError checks if an error is a *ConfigError.
func IsConfigError(err error) bool {
	_, ok := err.(*ConfigError)
	return ok
}

// RemoteError wraps a classified failure from the Bedrock service or an
// unexpected fault during the call.
//
// Every RemoteError is treated as transient and retried. The service has
// always retried uniformly on remote errors (rate limits, auth failures,
// malformed requests alike) and that permissive policy is kept for
// compatibility; a malformed request simply burns its retries.
//
// # Fields
//
//   - Code: Error code from the remote service ("unexpected" when the
//     fault was not a classified service error).
//   - Message: Human-readable detail, preserved through retry exhaustion.
type RemoteError struct {
	Code    string
	Message string
}

// Error implements the error interface for RemoteError.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("bedrock error %s: %s", e.Code, e.Message)
}

// IsRemoteError checks if an error is a *RemoteError.
func IsRemoteError(err error) bool {
	_, ok := err.(*RemoteError)
	return ok
}

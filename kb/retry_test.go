// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns a canned sequence of results, one per attempt.
// Once the script runs out, the last entry repeats.
type scriptedClient struct {
	attempts int
	script   []scriptedResult
}

type scriptedResult struct {
	outcome *Outcome
	err     error
}

func (c *scriptedClient) Query(ctx context.Context, query, sessionID string) (*Outcome, error) {
	idx := c.attempts
	if idx >= len(c.script) {
		idx = len(c.script) - 1
	}
	c.attempts++
	r := c.script[idx]
	return r.outcome, r.err
}

// =============================================================================
// Retrier Tests
// =============================================================================

// TestRetrier_ExhaustsOnPersistentTransientFailure verifies that a client
// which always fails transiently is tried exactly maxRetries times and
// the last reason survives in the terminal error.
func TestRetrier_ExhaustsOnPersistentTransientFailure(t *testing.T) {
	client := &scriptedClient{script: []scriptedResult{
		{err: &RemoteError{Code: "throttlingException", Message: "slow down"}},
	}}
	r := NewRetrier(client, 3, 0)

	outcome, err := r.Query(context.Background(), "question", "")

	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.Equal(t, 3, client.attempts)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Contains(t, err.Error(), "slow down")
	assert.True(t, IsRemoteError(errUnwrapAll(err)), "last transient reason should be preserved")
}

// TestRetrier_StopsOnSuccess verifies success on the second attempt uses
// exactly two attempts.
func TestRetrier_StopsOnSuccess(t *testing.T) {
	client := &scriptedClient{script: []scriptedResult{
		{err: &RemoteError{Code: "internalServerException", Message: "boom"}},
		{outcome: &Outcome{Answer: "42", SessionID: "remote-1"}},
	}}
	r := NewRetrier(client, 3, 0)

	outcome, err := r.Query(context.Background(), "question", "")

	require.NoError(t, err)
	assert.Equal(t, 2, client.attempts)
	assert.Equal(t, "42", outcome.Answer)
	assert.Equal(t, "remote-1", outcome.SessionID)
}

// TestRetrier_NoRetryOnConfigError verifies a terminal configuration
// error short-circuits after a single attempt with no backoff.
func TestRetrier_NoRetryOnConfigError(t *testing.T) {
	client := &scriptedClient{script: []scriptedResult{
		{err: &ConfigError{Reason: "missing KNOWLEDGE_BASE_ID"}},
	}}
	r := NewRetrier(client, 3, time.Minute)

	start := time.Now()
	outcome, err := r.Query(context.Background(), "question", "")

	assert.Nil(t, outcome)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Equal(t, 1, client.attempts)
	assert.Less(t, time.Since(start), time.Second, "config errors must not wait out a backoff")
}

// TestRetrier_LinearBackoff verifies the waits grow linearly: base delay
// before the first retry, twice that before the second.
func TestRetrier_LinearBackoff(t *testing.T) {
	client := &scriptedClient{script: []scriptedResult{
		{err: &RemoteError{Code: "e", Message: "1"}},
		{err: &RemoteError{Code: "e", Message: "2"}},
		{outcome: &Outcome{Answer: "ok"}},
	}}
	delay := 20 * time.Millisecond
	r := NewRetrier(client, 3, delay)

	start := time.Now()
	_, err := r.Query(context.Background(), "question", "")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, client.attempts)
	// Waits are delay*1 + delay*2 = 60ms.
	assert.GreaterOrEqual(t, elapsed, 3*delay)
}

func TestRetrier_DegeneratesToSingleAttempt(t *testing.T) {
	t.Run("maxRetries below one", func(t *testing.T) {
		client := &scriptedClient{script: []scriptedResult{
			{err: &RemoteError{Code: "e", Message: "x"}},
		}}
		r := NewRetrier(client, 0, time.Second)

		_, err := r.Query(context.Background(), "q", "")
		require.Error(t, err)
		assert.Equal(t, 1, client.attempts)
	})

	t.Run("negative delay means no wait", func(t *testing.T) {
		client := &scriptedClient{script: []scriptedResult{
			{err: &RemoteError{Code: "e", Message: "x"}},
		}}
		r := NewRetrier(client, 3, -time.Second)

		start := time.Now()
		_, err := r.Query(context.Background(), "q", "")
		require.Error(t, err)
		assert.Equal(t, 3, client.attempts)
		assert.Less(t, time.Since(start), time.Second)
	})
}

// TestRetrier_ContextCanceledDuringBackoff verifies the backoff wait is
// cooperative: cancellation ends it promptly.
func TestRetrier_ContextCanceledDuringBackoff(t *testing.T) {
	client := &scriptedClient{script: []scriptedResult{
		{err: &RemoteError{Code: "e", Message: "x"}},
	}}
	r := NewRetrier(client, 3, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.Query(ctx, "question", "")

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, client.attempts)
	assert.Less(t, time.Since(start), 5*time.Second)
}

// errUnwrapAll walks the %w chain to its innermost error.
func errUnwrapAll(err error) error {
	for {
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		inner := u.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

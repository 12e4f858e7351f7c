// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakuai-dev/kbchat/observability"
)

// Retrier drives a Client through a bounded number of attempts with
// linear backoff on transient failure.
//
// Backoff before the n-th retry is delay * n, so 2s then 4s with the
// defaults. The wait suspends only the current request's goroutine
// via a context-aware timer; concurrent requests are unaffected.
//
// # Thread Safety
//
// Safe for concurrent use; per-request state lives on the stack.
type Retrier struct {
	client     Client
	maxRetries int
	delay      time.Duration
}

// NewRetrier wraps client with retry behavior. Degenerate settings
// degrade rather than fail: maxRetries < 1 means a single attempt,
// delay <= 0 means no wait between attempts.
func NewRetrier(client Client, maxRetries int, delay time.Duration) *Retrier {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if delay < 0 {
		delay = 0
	}
	return &Retrier{
		client:     client,
		maxRetries: maxRetries,
		delay:      delay,
	}
}

// Query runs the full retry state machine and folds the per-attempt
// outcomes into one terminal result:
//
//   - success stops immediately;
//   - *ConfigError stops immediately (retrying cannot fix configuration);
//   - *RemoteError waits the backoff and tries again, unless this was
//     the final attempt, in which case the last reason is wrapped in a
//     max-retries-exceeded terminal error.
func (r *Retrier) Query(ctx context.Context, query, sessionID string) (*Outcome, error) {
	ctx, span := kbTracer.Start(ctx, "Retrier.Query")
	defer span.End()
	span.SetAttributes(attribute.Int("retry.max_attempts", r.maxRetries))

	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			wait := r.delay * time.Duration(attempt)
			span.AddEvent("retry_attempt", trace.WithAttributes(
				attribute.Int("attempt", attempt+1),
				attribute.String("backoff", wait.String()),
			))
			slog.Info("retrying knowledge base query",
				"attempt", attempt+1,
				"max_attempts", r.maxRetries,
				"backoff", wait,
				"last_error", lastErr,
			)
			if err := sleepContext(ctx, wait); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "context canceled during backoff")
				return nil, err
			}
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RetryAttemptsTotal.Inc()
		}
		outcome, err := r.client.Query(ctx, query, sessionID)
		if err == nil {
			span.SetAttributes(attribute.Int("retry.attempts_used", attempt+1))
			return outcome, nil
		}
		if IsConfigError(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "terminal configuration error")
			return nil, err
		}
		lastErr = err
		slog.Error("knowledge base query failed",
			"attempt", attempt+1,
			"max_attempts", r.maxRetries,
			"error", err,
		)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "retries exhausted")
	return nil, fmt.Errorf("max retries exceeded after %d attempts: %w", r.maxRetries, lastErr)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services contains the business logic of the orchestrator,
// separated from HTTP handlers. Services take their dependencies via
// constructors so tests can build them in isolation.
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bakuai-dev/kbchat/datatypes"
	"github.com/bakuai-dev/kbchat/kb"
	"github.com/bakuai-dev/kbchat/observability"
	"github.com/bakuai-dev/kbchat/session"
)

var chatTracer = otel.Tracer("kbchat.services.chat")

// errMsgInternal is the generic message for uncaught faults. Raw
// diagnostic detail goes to the log, never to the caller.
const errMsgInternal = "Internal server error"

// Querier answers one query, possibly retrying internally.
// Satisfied by *kb.Retrier.
type Querier interface {
	Query(ctx context.Context, query, sessionID string) (*kb.Outcome, error)
}

// ChatService is the entry point for chat turns: it validates input,
// resolves the session, dispatches to the knowledge base (with retry)
// or the mock responder, and shapes the response envelope.
//
// It is the last line of defense against unhandled faults: Handle never
// panics outward and never returns an error. Every outcome, including
// an internal fault, becomes an envelope.
type ChatService struct {
	store   *session.Store
	querier Querier
	mock    *kb.MockResponder
	metrics *observability.Metrics
}

// NewChatService builds the orchestrator. querier may be nil, which puts
// the service in mock mode; this is a configuration-time decision, not a
// per-call fallback. metrics may be nil in tests.
func NewChatService(store *session.Store, querier Querier, metrics *observability.Metrics) *ChatService {
	return &ChatService{
		store:   store,
		querier: querier,
		mock:    kb.NewMockResponder(),
		metrics: metrics,
	}
}

// Online reports whether the remote knowledge-base path is configured.
func (s *ChatService) Online() bool {
	return s.querier != nil
}

// Handle processes one chat turn and always returns an envelope.
//
// The HTTP handler validates requests before calling Handle; the blank
// check here is a backstop for non-HTTP callers and still returns a
// failure envelope with no session id and no session created.
// Otherwise the session is resolved first, so even a failed remote call
// leaves the caller with a usable session id for the next turn.
func (s *ChatService) Handle(ctx context.Context, req *datatypes.ChatRequest) (resp *datatypes.ChatResponse) {
	ctx, span := chatTracer.Start(ctx, "ChatService.Handle")
	defer span.End()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in chat handling", "panic", r)
			span.SetStatus(codes.Error, "panic recovered")
			resp = datatypes.NewChatFailure(errMsgInternal, "")
		}
	}()

	if strings.TrimSpace(req.Message) == "" {
		span.SetStatus(codes.Error, "empty message")
		return datatypes.NewChatFailure(datatypes.MsgEmptyMessage, "")
	}

	sessionID := s.store.ResolveOrCreate(req.SessionID)
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Bool("session.reused", sessionID == req.SessionID),
		attribute.Bool("remote.online", s.Online()),
	)
	if s.metrics != nil {
		s.metrics.SetTrackedSessions(s.store.Len())
	}

	if !s.Online() {
		return s.handleMock(req.Message, start)
	}
	return s.handleRemote(ctx, req.Message, sessionID, start)
}

// handleMock answers offline. The mock's session id is returned to the
// caller but deliberately not tracked: an id absent from the store is
// how later turns (and tests) recognize a mock answer.
func (s *ChatService) handleMock(message string, start time.Time) *datatypes.ChatResponse {
	answer, mockID := s.mock.Respond(message)
	slog.Info("answered from mock responder", "session_id", mockID)
	s.record(observability.ModeMock, true, start)
	return datatypes.NewChatSuccess(answer, mockID, nil)
}

// handleRemote dispatches to the retrying knowledge-base client. The
// resolved session id is always tracked here, so it is safe to hand to
// the client as the remote conversation handle.
func (s *ChatService) handleRemote(ctx context.Context, message, sessionID string, start time.Time) *datatypes.ChatResponse {
	outcome, err := s.querier.Query(ctx, message, sessionID)
	if err != nil {
		slog.Error("knowledge base query failed terminally",
			"session_id", sessionID,
			"error", err,
		)
		s.record(observability.ModeBedrock, false, start)
		return datatypes.NewChatFailure(err.Error(), sessionID)
	}

	if outcome.SessionID != "" {
		s.store.RegisterRemote(outcome.SessionID)
	}
	s.record(observability.ModeBedrock, true, start)
	return datatypes.NewChatSuccess(outcome.Answer, sessionID, outcome.Citations)
}

func (s *ChatService) record(mode observability.Mode, success bool, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(mode, success)
	s.metrics.RecordDuration(mode, time.Since(start).Seconds())
}

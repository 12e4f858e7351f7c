// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the kbchat
// orchestrator service.
//
// This file contains the chat request/response envelope. For session
// summary types, see session.go.
package datatypes

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxMessageBytes is the maximum size of a single chat message.
// Checked as byte length, not rune count, to bound memory per request.
const MaxMessageBytes = 32 * 1024 // 32KB

// Validation failure messages surfaced to callers in the error envelope.
const (
	MsgEmptyMessage   = "Message cannot be empty"
	MsgMessageTooLong = "Message exceeds the maximum size of 32KB"
)

// chatValidate is the validator instance for chat datatypes.
// Initialized in init() with custom validators.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("notblank", validateNotBlank)
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateNotBlank rejects strings that are empty after trimming
// whitespace. A message of only spaces must fail exactly like an empty
// one; the built-in "required" tag would accept it.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateMaxBytes enforces MaxMessageBytes on a string field.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageBytes
}

// Citation is an opaque record of supporting source material returned by
// the knowledge base. Its internal shape belongs to the upstream service;
// the orchestrator forwards it unmodified and never assumes a schema.
type Citation map[string]any

// ChatRequest is the body of POST /chat.
//
// # Fields
//
//   - Message: Required. The user's message. Must be non-blank after
//     trimming and at most 32KB.
//   - SessionID: Optional. An id from a previous turn. Unknown or
//     foreign ids are not an error; they simply start a new session.
//
// # Validation
//
// Uses go-playground/validator with the custom "notblank" and "maxbytes"
// validators registered in this package.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,notblank,maxbytes"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate validates the ChatRequest fields. Call after binding JSON.
func (r *ChatRequest) Validate() error {
	return chatValidate.Struct(r)
}

// ValidationMessage maps a Validate() error to the user-facing message
// for the failure envelope. The size failure is reported distinctly;
// every other validation failure reads as an empty message.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "maxbytes" {
				return MsgMessageTooLong
			}
		}
	}
	return MsgEmptyMessage
}

// ChatResponse is the envelope every chat turn returns, success or not.
// Failures are reported through Success and Error, never by aborting the
// connection.
//
// # Fields
//
//   - Success: Whether an answer was produced.
//   - Answer: The generated (or mock) answer. Nil on failure.
//   - SessionID: The session id used by this turn. Nil only when
//     validation failed before a session was resolved.
//   - Citations: Always present, possibly empty. Opaque pass-through.
//   - Error: Human-readable failure reason. Nil on success.
//   - Timestamp: ISO-8601 in the service's fixed UTC+4 offset.
type ChatResponse struct {
	Success   bool       `json:"success"`
	Answer    *string    `json:"answer"`
	SessionID *string    `json:"session_id"`
	Citations []Citation `json:"citations"`
	Error     *string    `json:"error"`
	Timestamp string     `json:"timestamp"`
}

// NewChatSuccess builds a success envelope. A nil citations slice is
// normalized to an empty one so the JSON field is always an array.
func NewChatSuccess(answer, sessionID string, citations []Citation) *ChatResponse {
	if citations == nil {
		citations = []Citation{}
	}
	return &ChatResponse{
		Success:   true,
		Answer:    &answer,
		SessionID: &sessionID,
		Citations: citations,
		Timestamp: Timestamp(),
	}
}

// NewChatFailure builds a failure envelope. sessionID may be empty when
// the request never reached session resolution.
func NewChatFailure(errMsg, sessionID string) *ChatResponse {
	resp := &ChatResponse{
		Success:   false,
		Citations: []Citation{},
		Error:     &errMsg,
		Timestamp: Timestamp(),
	}
	if sessionID != "" {
		resp.SessionID = &sessionID
	}
	return resp
}

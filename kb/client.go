// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package kb talks to the answer-generation backend: a Bedrock Knowledge
// Base queried through retrieve-and-generate. It contains the query
// client, the retry orchestrator that drives it, and the offline mock
// responder used when Bedrock is not configured.
package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bakuai-dev/kbchat/config"
	"github.com/bakuai-dev/kbchat/datatypes"
)

var kbTracer = otel.Tracer("kbchat.kb")

// Outcome is the result of one successful knowledge-base query.
//
// # Fields
//
//   - Answer: Generated answer text.
//   - SessionID: Session id assigned or confirmed by Bedrock. May be
//     empty; the caller registers non-empty ids in the session store.
//     The client itself performs no storage mutation.
//   - Citations: Opaque supporting material, possibly empty, never nil.
type Outcome struct {
	Answer    string
	SessionID string
	Citations []datatypes.Citation
}

// Client issues a single knowledge-base query per call. Implementations
// classify failures as *ConfigError (terminal) or *RemoteError
// (transient); any other error is a programming bug.
type Client interface {
	Query(ctx context.Context, query, sessionID string) (*Outcome, error)
}

// retrieveAndGenerateAPI is the slice of the Bedrock agent runtime the
// client uses. Narrowing to one method lets tests inject fakes.
type retrieveAndGenerateAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput,
		optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// BedrockClient queries a Bedrock Knowledge Base via RetrieveAndGenerate.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying SDK client is concurrency-safe
// and BedrockClient holds no mutable state.
type BedrockClient struct {
	api retrieveAndGenerateAPI
	cfg config.Config
}

// NewBedrockClient builds a client from the service configuration.
//
// Static credentials from cfg are used when present; otherwise the SDK's
// default chain (env, shared config, instance role) applies. Returns an
// error only if the AWS configuration itself cannot be assembled;
// missing knowledge-base identifiers are reported per call, not here.
func NewBedrockClient(ctx context.Context, cfg config.Config) (*BedrockClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.HasCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	slog.Info("bedrock client initialized",
		"region", cfg.AWSRegion,
		"knowledge_base_id", cfg.KnowledgeBaseID,
		"explicit_credentials", cfg.HasCredentials(),
	)
	return &BedrockClient{
		api: bedrockagentruntime.NewFromConfig(awsCfg),
		cfg: cfg,
	}, nil
}

// newBedrockClientWithAPI is the test seam for injecting a fake API.
func newBedrockClientWithAPI(api retrieveAndGenerateAPI, cfg config.Config) *BedrockClient {
	return &BedrockClient{api: api, cfg: cfg}
}

// Query issues exactly one retrieve-and-generate call.
//
// sessionID continues an existing remote conversation when non-empty;
// an empty id starts a new one. The caller is responsible for passing
// only ids it currently tracks; a foreign id should be translated to
// "" upstream so Bedrock starts fresh instead of rejecting it.
//
// Missing identifiers short-circuit to *ConfigError before any network
// traffic. Every failure from the service, classified or not, comes back
// as *RemoteError.
func (c *BedrockClient) Query(ctx context.Context, query, sessionID string) (*Outcome, error) {
	ctx, span := kbTracer.Start(ctx, "BedrockClient.Query")
	defer span.End()

	if !c.cfg.HasRequiredIdentifiers() {
		err := &ConfigError{Reason: "missing KNOWLEDGE_BASE_ID, AWS_DEFAULT_REGION, or CLAUDE_MODEL_ID"}
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing configuration")
		return nil, err
	}

	input := &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &brtypes.RetrieveAndGenerateInput{
			Text: aws.String(query),
		},
		RetrieveAndGenerateConfiguration: &brtypes.RetrieveAndGenerateConfiguration{
			Type: brtypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &brtypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(c.cfg.KnowledgeBaseID),
				ModelArn:        aws.String(c.cfg.ModelARN()),
			},
		},
	}
	if sessionID != "" {
		input.SessionId = aws.String(sessionID)
		span.SetAttributes(attribute.String("session.id", sessionID))
	}

	out, err := c.api.RetrieveAndGenerate(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieve-and-generate failed")
		return nil, classifyError(err)
	}

	outcome := &Outcome{
		SessionID: aws.ToString(out.SessionId),
		Citations: convertCitations(out.Citations),
	}
	if out.Output != nil {
		outcome.Answer = aws.ToString(out.Output.Text)
	}

	span.SetAttributes(
		attribute.Int("citations.count", len(outcome.Citations)),
		attribute.Bool("session.assigned", outcome.SessionID != ""),
	)
	return outcome, nil
}

// classifyError maps an SDK failure to a *RemoteError. Classified
// service errors keep their code and message, matching how the remote
// surface reports them; anything else is tagged "unexpected".
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &RemoteError{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
		}
	}
	return &RemoteError{
		Code:    "unexpected",
		Message: err.Error(),
	}
}

// convertCitations flattens SDK citation structs into the opaque
// records the API forwards. A JSON round-trip keeps the orchestrator
// out of the business of understanding the upstream citation schema.
func convertCitations(citations []brtypes.Citation) []datatypes.Citation {
	out := make([]datatypes.Citation, 0, len(citations))
	for _, c := range citations {
		raw, err := json.Marshal(c)
		if err != nil {
			slog.Warn("dropping unmarshalable citation", "error", err)
			continue
		}
		var m datatypes.Citation
		if err := json.Unmarshal(raw, &m); err != nil {
			slog.Warn("dropping unmarshalable citation", "error", err)
			continue
		}
		out = append(out, m)
	}
	return out
}

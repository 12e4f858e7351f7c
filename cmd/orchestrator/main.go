// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	kbconfig "github.com/bakuai-dev/kbchat/config"
	"github.com/bakuai-dev/kbchat/kb"
	"github.com/bakuai-dev/kbchat/middleware"
	"github.com/bakuai-dev/kbchat/observability"
	"github.com/bakuai-dev/kbchat/pkg/logging"
	"github.com/bakuai-dev/kbchat/routes"
	"github.com/bakuai-dev/kbchat/services"
	"github.com/bakuai-dev/kbchat/session"
	"github.com/bakuai-dev/kbchat/ttl"
)

// initTracer wires the OTLP trace exporter when a collector endpoint is
// configured. Without OTEL_EXPORTER_OTLP_ENDPOINT the global no-op
// tracer stays in place and spans cost nothing.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		return func(context.Context) {}, nil
	}

	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("kbchat-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// meteredSweeper mirrors scheduled sweeps into the session metrics.
type meteredSweeper struct {
	store   *session.Store
	metrics *observability.Metrics
}

func (m *meteredSweeper) SweepNow() int {
	removed := m.store.SweepNow()
	m.metrics.RecordSwept(removed)
	m.metrics.SetTrackedSessions(m.store.Len())
	return removed
}

func main() {
	cfg := kbconfig.Load()
	_, closeLogs := logging.Setup(logging.Config{
		Debug:   cfg.Debug,
		Service: "orchestrator",
		LogDir:  cfg.LogDir,
	})
	defer closeLogs()

	slog.Info("starting kbchat orchestrator",
		"aws_region", cfg.AWSRegion,
		"knowledge_base_id", cfg.KnowledgeBaseID,
		"credentials_configured", cfg.HasCredentials(),
	)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	store := session.NewStore(cfg.SessionRetention, ttl.SystemClock())
	scheduler := ttl.NewScheduler(&meteredSweeper{store: store, metrics: metrics}, ttl.DefaultSweepInterval)
	scheduler.Start()
	defer scheduler.Stop()

	// The remote path is a configuration-time decision: without
	// credentials every chat request goes to the mock responder.
	var querier services.Querier
	if cfg.HasCredentials() {
		client, err := kb.NewBedrockClient(context.Background(), cfg)
		if err != nil {
			slog.Warn("failed to initialize Bedrock client, falling back to mock mode", "error", err)
		} else {
			querier = kb.NewRetrier(client, cfg.MaxRetries, cfg.RetryDelay)
			slog.Info("bedrock path enabled", "max_retries", cfg.MaxRetries, "retry_delay", cfg.RetryDelay)
		}
	} else {
		slog.Warn("AWS credentials not configured, running in mock mode")
	}

	svc := services.NewChatService(store, querier, metrics)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("kbchat-orchestrator"))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, cfg, svc, store)

	slog.Info("starting the orchestrator server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package telemetry sets up OpenTelemetry tracing.
// telemetry 包负责初始化 OpenTelemetry 追踪。
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/seatunnel/procctl/internal/config"
)

// InstrumentationName names the tracer handed out by the provider
const InstrumentationName = "github.com/seatunnel/procctl"

// Provider owns the tracer provider and its shutdown hooks
// Provider 持有追踪提供者及其关闭钩子
type Provider struct {
	tracer        trace.Tracer
	shutdownFuncs []func(context.Context) error
	enabled       bool
}

// Init initializes tracing based on configuration. When tracing is
// disabled, or the exporter cannot be created, a noop tracer is used.
// Init 根据配置初始化追踪，禁用或导出器创建失败时使用空操作追踪器。
func Init(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("OpenTelemetry tracing is disabled")
		return noopProvider()
	}

	logger.Info("Initializing OpenTelemetry tracing", zap.String("endpoint", cfg.Endpoint))
	otel.SetTextMapPropagator(newPropagator())

	tracerProvider, err := newTracerProvider(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to init trace provider, using noop tracer", zap.Error(err))
		return noopProvider()
	}
	otel.SetTracerProvider(tracerProvider)

	return &Provider{
		tracer:        tracerProvider.Tracer(InstrumentationName),
		shutdownFuncs: []func(context.Context) error{tracerProvider.Shutdown},
		enabled:       true,
	}
}

func noopProvider() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(ctx context.Context, cfg config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName)),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

// Tracer returns the tracer for procctl spans
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// IsEnabled returns whether tracing is enabled.
// IsEnabled 返回追踪是否已启用。
func (p *Provider) IsEnabled() bool {
	return p.enabled
}

// Shutdown flushes and stops the exporters
// Shutdown 刷新并停止导出器
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range p.shutdownFuncs {
		err = multierr.Append(err, fn(ctx))
	}
	p.shutdownFuncs = nil
	return err
}

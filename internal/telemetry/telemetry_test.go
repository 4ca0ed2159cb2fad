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

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/seatunnel/procctl/internal/config"
)

// TestInitDisabled tests the noop tracer used when tracing is disabled
// TestInitDisabled 测试禁用追踪时使用的空操作追踪器
func TestInitDisabled(t *testing.T) {
	p := Init(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))

	assert.False(t, p.IsEnabled())
	_, span := p.Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

// TestInitEnabled tests that spans are recorded with the OTLP exporter
// TestInitEnabled 测试启用 OTLP 导出器后记录 span
func TestInitEnabled(t *testing.T) {
	p := Init(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:4317",
		Insecure:    true,
		ServiceName: "procctl-test",
	}, nil)

	assert.True(t, p.IsEnabled())
	_, span := p.Tracer().Start(context.Background(), "process.start")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	// No collector is listening, only make sure shutdown returns
	// 没有收集器在监听，只确保关闭能返回
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
	assert.NoError(t, p.Shutdown(ctx))
}

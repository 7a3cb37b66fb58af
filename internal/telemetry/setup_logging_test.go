// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/telemetry"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, telemetry.ParseLevel(name), name)
	}
}

// TestJSONHandlerCloudLoggingFormat checks the Cloud Logging field names and
// the trace correlation fields added for records logged inside a span.
func TestJSONHandlerCloudLoggingFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewLogHandler(&buf, cloud.Logging{Format: "json", Level: "info"}))

	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	logger.WarnContext(ctx, "rename failed", "filename", "clip.mp4")
	span.End()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARNING", record["severity"])
	assert.Equal(t, "rename failed", record["message"])
	assert.Equal(t, "clip.mp4", record["filename"])
	assert.Contains(t, record, "timestamp")
	assert.Equal(t, span.SpanContext().TraceID().String(), record["logging.googleapis.com/trace"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["logging.googleapis.com/spanId"])
}

func TestJSONHandlerWithAttrsKeepsSpanContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewLogHandler(&buf, cloud.Logging{Format: "json"})).With("component", "catalog")

	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	logger.InfoContext(ctx, "loaded")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "catalog", record["component"])
	assert.Contains(t, record, "logging.googleapis.com/trace")
}

func TestHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(telemetry.NewLogHandler(&buf, cloud.Logging{Format: "json", Level: "warn"}))
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	buf.Reset()
	text := slog.New(telemetry.NewLogHandler(&buf, cloud.Logging{Format: "text", Level: "debug"}))
	text.Debug("visible", "filename", "clip.mp4")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "clip.mp4")
}

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

// Package telemetry sets up the service's observability: structured logging,
// OpenTelemetry traces and metrics, and the Prometheus registry.
// This file handles logging. In production the output is JSON in the Cloud
// Logging structured format with trace correlation; locally it is colourised
// text.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
)

// spanContextLogHandler adds the active span's ids to every record so Cloud
// Logging can link log lines to their trace.
type spanContextLogHandler struct {
	slog.Handler
}

func handlerWithSpanContext(handler slog.Handler) *spanContextLogHandler {
	return &spanContextLogHandler{Handler: handler}
}

func (t *spanContextLogHandler) Handle(ctx context.Context, record slog.Record) error {
	// See: https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

func (t *spanContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithAttrs(attrs))
}

func (t *spanContextLogHandler) WithGroup(name string) slog.Handler {
	return handlerWithSpanContext(t.Handler.WithGroup(name))
}

// replacer renames slog's default keys to the ones Cloud Logging expects.
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#LogSeverity
		if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// ParseLevel maps a configured level name to a slog.Level. Unknown names
// fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogHandler builds the handler selected by config, writing to w.
func NewLogHandler(w io.Writer, config cloud.Logging) slog.Handler {
	level := ParseLevel(config.Level)
	if strings.EqualFold(config.Format, "text") {
		return tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly})
	}
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replacer})
	return handlerWithSpanContext(jsonHandler)
}

// SetupLogging installs the configured handler as the slog default. Output
// of the standard log package is routed through the same handler.
func SetupLogging(config cloud.Logging) {
	slog.SetDefault(slog.New(NewLogHandler(os.Stdout, config)))
}

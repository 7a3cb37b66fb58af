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

// This file initializes the OpenTelemetry SDK. With telemetry = "gcp" spans go
// to Cloud Trace and metrics to Cloud Monitoring; otherwise the providers are
// installed without exporters so instrumentation stays active in-process.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	mexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	telemetryexporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
)

// TelemetryGCP selects the Google Cloud exporters.
const TelemetryGCP = "gcp"

// SetupOpenTelemetry installs the global tracer and meter providers and the
// text map propagator.
//
// Inputs:
//   - ctx: Used for resource detection and exporter creation.
//   - config: Supplies the service name, project id and telemetry mode.
//
// Outputs:
//   - shutdown: Flushes and stops every provider; errors are joined.
//   - err: A resource or exporter setup failure.
func SetupOpenTelemetry(ctx context.Context, config *cloud.Config) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	exporting := strings.EqualFold(config.Application.Telemetry, TelemetryGCP)

	resourceOptions := []resource.Option{
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceNameKey.String(config.Application.Name)),
	}
	if exporting {
		resourceOptions = append(resourceOptions, resource.WithDetectors(gcp.NewDetector()))
	}
	res, err := resource.New(ctx, resourceOptions...)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		slog.Warn("partial resource detection", "error", err)
	} else if err != nil {
		slog.Error("resource.New failed", "error", err)
		return nil, err
	}

	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	traceOptions := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	meterOptions := []metric.Option{metric.WithResource(res)}

	if exporting {
		traceExporter, err := telemetryexporter.New(telemetryexporter.WithProjectID(config.Application.GoogleProjectId))
		if err != nil {
			slog.Error("unable to set up trace exporter", "error", err)
			return nil, err
		}
		traceOptions = append(traceOptions, sdktrace.WithBatcher(traceExporter))

		metricExporter, err := mexporter.New(mexporter.WithProjectID(config.Application.GoogleProjectId))
		if err != nil {
			slog.Error("unable to set up metric exporter", "error", err)
			return nil, err
		}
		meterOptions = append(meterOptions, metric.WithReader(metric.NewPeriodicReader(metricExporter)))
	}

	tp := sdktrace.NewTracerProvider(traceOptions...)
	shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	otel.SetTracerProvider(tp)

	mp := metric.NewMeterProvider(meterOptions...)
	shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	otel.SetMeterProvider(mp)

	slog.Debug("telemetry initialized", "mode", config.Application.Telemetry, "service", config.Application.Name)
	return shutdown, nil
}

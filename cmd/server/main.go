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
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/api"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	telemetry.SetupLogging(config.Logging)
	slog.Info("Logging initialized", "format", config.Logging.Format, "level", config.Logging.Level)

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized", "mode", config.Application.Telemetry)

	InitState(ctx)
	slog.Info("Initialized State", "backend", state.cloud.Backend.BaseURL())

	// Populate the catalog so the first page load is served from memory.
	if _, err := state.catalog.LoadAll(ctx); err != nil {
		slog.Warn("initial catalog load failed", "error", err)
	}

	r := api.NewRouter(state.Server(), config.Application.Name)

	srv := &http.Server{
		Addr:    config.Application.ListenAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen", "error", err)
			cancel()
		}
	}()
	slog.Info("Server Ready", "addr", config.Application.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	slog.Info("Shutdown Server ...")

	// In-flight requests get five seconds to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err = errors.Join(
		srv.Shutdown(shutdownCtx),
		state.cloud.Close(),
		shutdownTelemetry(shutdownCtx),
	)
	if err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}

	log.Println("Server exiting")
}

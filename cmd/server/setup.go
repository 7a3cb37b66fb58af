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
	"log"
	"os"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/api"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/catalog"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/services"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/workflow"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/telemetry"
)

type StateManager struct {
	config  *cloud.Config
	cloud   *cloud.ServiceClients
	metrics *telemetry.Metrics
	inbox   *services.Inbox
	catalog *catalog.Store
	review  *services.ReviewService
	media   *services.MediaService
}

var state = &StateManager{}

// SetupOS points the configuration loader at ./configs. GCP_RUNTIME is left
// alone when already set so deployments can pick their own override file.
func SetupOS() (err error) {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os for configuration: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

func InitState(ctx context.Context) {
	config := GetConfig()

	state.metrics = telemetry.NewMetrics("detection_timeline")

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config, cloud.WithRequestObserver(state.metrics.ObserveRequest))
	if err != nil {
		log.Fatalf("failed to create service clients: %v\n", err)
	}
	state.cloud = cloudClients

	state.inbox = services.NewInbox(config.Notifications.InboxSize)
	notifier := services.FanOut{state.inbox, services.LogNotifier{}}
	if cloudClients.Notifier != nil {
		notifier = append(notifier, cloudClients.Notifier)
	}

	state.catalog = catalog.NewStore(cloudClients.Backend, config.Application.ThreadPoolSize,
		catalog.WithNotifier(notifier),
		catalog.WithRecorder(state.metrics),
	)
	state.review = services.NewReviewService(state.catalog, config.Application.DefaultFrameRate)

	state.media = &services.MediaService{Source: cloudClients.Backend}
	if cloudClients.StorageClient != nil {
		state.media.Archiver = workflow.NewMediaArchiveWorkflow(config, cloudClients.Backend, cloudClients.StorageClient)
	}
}

// Server returns the handler dependencies built by InitState.
func (s *StateManager) Server() *api.Server {
	return &api.Server{
		Catalog:  s.catalog,
		Review:   s.review,
		Media:    s.media,
		Inbox:    s.inbox,
		Auth:     s.cloud.Backend,
		Tokens:   s.cloud.Tokens,
		Health:   s.cloud.Backend,
		Gatherer: s.metrics.Registry,
	}
}

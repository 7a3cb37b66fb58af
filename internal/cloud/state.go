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

// This file manages the lifecycle of the external clients used by the service.
//
// Structs:
//   - ServiceClients: A container holding the backend client, its token store
//     and the optional Google Cloud clients.
//
// Functions:
//   - NewCloudServiceClients: Creates every client the configuration asks for.
//   - Close: Releases the Google Cloud clients.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ServiceClients holds the clients shared by the whole process. StorageClient
// is nil unless an archive bucket is configured; PubsubClient and Notifier are
// nil unless a notification topic is configured.
type ServiceClients struct {
	Tokens        *TokenStore
	Backend       *BackendClient
	StorageClient *storage.Client
	PubsubClient  *pubsub.Client
	Notifier      *PubSubNotifier
}

// Close releases the Google Cloud clients. It is safe to call on a partially
// initialised container.
func (c *ServiceClients) Close() error {
	var err error
	if c.Notifier != nil {
		c.Notifier.Stop()
	}
	if c.PubsubClient != nil {
		err = errors.Join(err, c.PubsubClient.Close())
	}
	if c.StorageClient != nil {
		err = errors.Join(err, c.StorageClient.Close())
	}
	return err
}

// NewCloudServiceClients creates the backend client and, when configured, the
// Cloud Storage and Pub/Sub clients.
//
// Inputs:
//   - ctx: Context for client construction.
//   - config: The loaded application configuration.
//   - opts: Extra options for the backend client, e.g. a request observer.
//
// Outputs:
//   - *ServiceClients: The initialised clients.
//   - error: The first construction failure; already created clients are closed.
func NewCloudServiceClients(ctx context.Context, config *Config, opts ...ClientOption) (cloud *ServiceClients, err error) {
	tokens := NewTokenStore(config.Backend.Token)
	backend, err := NewBackendClient(config.Backend, tokens, opts...)
	if err != nil {
		return nil, err
	}
	cloud = &ServiceClients{Tokens: tokens, Backend: backend}

	var gcpOpts []option.ClientOption
	if config.Storage.CredentialsFile != "" {
		gcpOpts = append(gcpOpts, option.WithCredentialsFile(config.Storage.CredentialsFile))
	}

	if config.Storage.ArchiveBucket != "" {
		sc, err := storage.NewClient(ctx, gcpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		cloud.StorageClient = sc
		slog.Info("archive bucket configured", "bucket", config.Storage.ArchiveBucket)
	}

	if config.Notifications.Topic != "" {
		pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId, gcpOpts...)
		if err != nil {
			_ = cloud.Close()
			return nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		cloud.PubsubClient = pc
		cloud.Notifier = NewPubSubNotifier(pc, config.Notifications.Topic)
		slog.Info("notification topic configured", "topic", config.Notifications.Topic)
	}

	return cloud, nil
}

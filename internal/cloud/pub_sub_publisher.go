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

// This file defines PubSubNotifier, which forwards user-visible failure
// notifications to a Pub/Sub topic so that other front ends (or an alerting
// pipeline) can pick them up.
package cloud

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// PubSubNotifier publishes notifications as JSON messages.
type PubSubNotifier struct {
	topic *pubsub.Topic
}

// NewPubSubNotifier binds the notifier to topicID. The topic must exist.
//
// Inputs:
//   - client: An initialized Pub/Sub client.
//   - topicID: The short topic name within the client's project.
//
// Outputs:
//   - *PubSubNotifier: The notifier.
func NewPubSubNotifier(client *pubsub.Client, topicID string) *PubSubNotifier {
	return &PubSubNotifier{topic: client.Topic(topicID)}
}

// Notify publishes n without waiting for the server acknowledgement. The
// outcome is logged once the publish settles.
func (p *PubSubNotifier) Notify(ctx context.Context, n model.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode notification", "id", n.ID, "error", err)
		return
	}

	tracer := otel.Tracer("notification-publisher")
	spanCtx, span := tracer.Start(context.WithoutCancel(ctx), "publish-notification")
	span.SetAttributes(
		attribute.String("notification.kind", string(n.Kind)),
		attribute.String("notification.filename", n.Filename),
	)

	result := p.topic.Publish(spanCtx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":     string(n.Kind),
			"filename": n.Filename,
		},
	})

	go func() {
		defer span.End()
		id, err := result.Get(spanCtx)
		if err != nil {
			span.SetStatus(codes.Error, "publish failed")
			slog.ErrorContext(spanCtx, "failed to publish notification", "id", n.ID, "error", err)
			return
		}
		span.SetStatus(codes.Ok, "published")
		slog.DebugContext(spanCtx, "published notification", "id", n.ID, "message_id", id)
	}()
}

// Stop flushes pending messages and releases the topic's goroutines.
func (p *PubSubNotifier) Stop() {
	p.topic.Stop()
}

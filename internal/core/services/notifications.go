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

// This file defines the notification sinks used by the catalog.
//
// Types:
//   - Inbox: A bounded in-memory queue the UI drains by polling.
//   - LogNotifier: Writes every notice to a structured logger.
//   - FanOut: Delivers one notice to several sinks.
package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/catalog"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// DefaultInboxSize is used when NewInbox is given a non-positive size.
const DefaultInboxSize = 64

// Inbox keeps the most recent notices. When full, the oldest is dropped.
type Inbox struct {
	mu    sync.Mutex
	items []model.Notification
	size  int
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{items: make([]model.Notification, 0, size), size: size}
}

func (i *Inbox) Notify(_ context.Context, n model.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.items) == i.size {
		copy(i.items, i.items[1:])
		i.items = i.items[:len(i.items)-1]
	}
	i.items = append(i.items, n)
}

// Drain returns the queued notices, oldest first, and empties the inbox.
func (i *Inbox) Drain() []model.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]model.Notification, len(i.items))
	copy(out, i.items)
	i.items = i.items[:0]
	return out
}

func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

// LogNotifier logs notices at warn level. A nil Logger uses slog.Default.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n model.Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, n.Message, "notification_id", n.ID, "kind", n.Kind, "filename", n.Filename)
}

// FanOut delivers each notice to every sink in order. Nil sinks are skipped.
type FanOut []catalog.Notifier

func (f FanOut) Notify(ctx context.Context, n model.Notification) {
	for _, sink := range f {
		if sink != nil {
			sink.Notify(ctx, n)
		}
	}
}

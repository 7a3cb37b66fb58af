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

// This file defines transient, in-memory state that is never persisted.
//
// Structs:
//   - TimelineSelection: The active event and the last reported player time.
//   - Notification: A user-visible notice about a failed catalog operation.
package model

import (
	"time"

	"github.com/google/uuid"
)

// NoEvent is the ActiveEventIndex value meaning no event is active.
const NoEvent = -1

// TimelineSelection is reset whenever a new video is opened.
type TimelineSelection struct {
	ActiveEventIndex  int     `json:"active_event_index"`
	PlayerTimeSeconds float64 `json:"player_time_seconds"`
}

// NewTimelineSelection returns the selection of a freshly opened video.
func NewTimelineSelection() TimelineSelection {
	return TimelineSelection{ActiveEventIndex: NoEvent}
}

// HasActiveEvent reports whether an event is highlighted.
func (s TimelineSelection) HasActiveEvent() bool {
	return s.ActiveEventIndex != NoEvent
}

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationRenameFailed   NotificationKind = "rename_failed"
	NotificationDeleteFailed   NotificationKind = "delete_failed"
	NotificationLogUnavailable NotificationKind = "log_unavailable"
)

// Notification is surfaced to the user when an operation fails after it has
// already been reflected in the UI.
type Notification struct {
	ID       string           `json:"id"`
	Kind     NotificationKind `json:"kind"`
	Filename string           `json:"filename"`
	Message  string           `json:"message"`
	Time     time.Time        `json:"time"`
}

// NewNotification stamps a notification with a fresh id and the current time.
//
// Inputs:
//   - kind: The notification category.
//   - filename: The catalog key the notification refers to.
//   - message: A human-readable description, typically the error text.
//
// Outputs:
//   - Notification: The populated notification.
func NewNotification(kind NotificationKind, filename, message string) Notification {
	return Notification{
		ID:       uuid.New().String(),
		Kind:     kind,
		Filename: filename,
		Message:  message,
		Time:     time.Now(),
	}
}

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

// Package commands provides the concrete Command implementations that the
// workflows assemble into chains. This file defines the collaborators and the
// values exchanged by the catalog refresh commands.
package commands

import (
	"context"
	"time"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// VideoLister returns the backend's video records.
type VideoLister interface {
	ListVideos(ctx context.Context) ([]model.VideoRecord, error)
}

// LogFetcher returns the detection log of one video.
type LogFetcher interface {
	GetLogs(ctx context.Context, filename string) (*model.DetectionLog, error)
}

// RefreshRequest is the initial input of a catalog refresh.
type RefreshRequest struct {
	RequestedAt time.Time
}

// FetchedRecord pairs a backend record with its detection log, or with the
// reason the log could not be obtained.
type FetchedRecord struct {
	Record model.VideoRecord
	Log    *model.DetectionLog
	Err    error
}

// CatalogEntry is one summarised video.
type CatalogEntry struct {
	Video  model.Video
	Log    *model.DetectionLog // nil when LogErr is set.
	Events []model.Event
	LogErr error
}

// CatalogSnapshot is the result of a refresh, in backend order with duplicate
// filenames removed.
type CatalogSnapshot struct {
	Entries   []CatalogEntry
	Refreshed time.Time
}

// Failed lists the filenames whose logs could not be loaded.
func (s *CatalogSnapshot) Failed() []string {
	out := make([]string, 0)
	for _, e := range s.Entries {
		if e.LogErr != nil {
			out = append(out, e.Video.Filename)
		}
	}
	return out
}

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

package commands

import (
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
)

// VideoSummarizer turns []FetchedRecord into a *CatalogSnapshot: it derives
// events, the event count and the capture timestamp of every video.
type VideoSummarizer struct {
	cor.BaseCommand
}

func NewVideoSummarizer(name string) *VideoSummarizer {
	return &VideoSummarizer{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *VideoSummarizer) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).([]FetchedRecord)
	return ok
}

// Execute keeps the first record of each filename; later duplicates are
// dropped because the filename is the catalog key.
func (c *VideoSummarizer) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).([]FetchedRecord)
	snapshot := &CatalogSnapshot{Entries: make([]CatalogEntry, 0, len(in)), Refreshed: time.Now()}

	seen := make(map[string]bool, len(in))
	for _, r := range in {
		if seen[r.Record.Filename] {
			slog.WarnContext(context.GetContext(), "duplicate video in listing", "filename", r.Record.Filename)
			continue
		}
		seen[r.Record.Filename] = true

		video := model.NewVideo(r.Record)
		events := make([]model.Event, 0)
		if r.Err == nil {
			events = timeline.ExtractEvents(r.Log)
		}
		video.EventCount = len(events)
		snapshot.Entries = append(snapshot.Entries, CatalogEntry{Video: video, Log: r.Log, Events: events, LogErr: r.Err})
	}

	c.Succeed(context, snapshot)
}

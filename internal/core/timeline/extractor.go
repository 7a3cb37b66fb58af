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

// Package timeline synchronizes a video player with the detection events of
// the video it is showing. It contains the event extractor, which folds a
// per-frame detection log into events, and the Controller state machine which
// turns event selection into seeks and player time into the active event.
package timeline

import "github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"

// ExtractEvents folds a detection log into its ordered list of events in a
// single pass. A run is closed by an unlabelled frame, by a change of label
// set or by an index missing from the log, so an event only ever covers frames
// the log actually holds.
//
// Inputs:
//   - log: The detection log; nil is treated as empty.
//
// Outputs:
//   - []model.Event: Non-overlapping events ordered by start frame. Never nil.
func ExtractEvents(log *model.DetectionLog) []model.Event {
	events := make([]model.Event, 0)
	var open *model.Event

	closeRun := func() {
		if open != nil {
			events = append(events, *open)
			open = nil
		}
	}

	for i := 0; i < log.Len(); i++ {
		f := log.At(i)
		if f.Labels.Empty() {
			closeRun()
			continue
		}
		if open != nil && open.Labels == f.Labels && f.Index == open.EndFrame+1 {
			open.EndFrame = f.Index
			continue
		}
		closeRun()
		open = &model.Event{StartFrame: f.Index, EndFrame: f.Index, Labels: f.Labels}
	}
	closeRun()

	return events
}

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

package model

import "fmt"

// Event is a maximal run of consecutive frames sharing the same non-empty
// label set. Events are derived from a DetectionLog and never persisted.
type Event struct {
	StartFrame int      `json:"start_frame"`
	EndFrame   int      `json:"end_frame"`
	Labels     LabelSet `json:"labels"`
}

// Length is the number of frames covered by the event.
func (e Event) Length() int {
	return e.EndFrame - e.StartFrame + 1
}

// Contains reports whether frame falls inside the event's range.
func (e Event) Contains(frame int) bool {
	return frame >= e.StartFrame && frame <= e.EndFrame
}

// StartSeconds converts the start frame to a playback offset.
func (e Event) StartSeconds(frameRate float64) float64 {
	if frameRate <= 0 {
		return 0
	}
	return float64(e.StartFrame) / frameRate
}

func (e Event) String() string {
	if e.StartFrame == e.EndFrame {
		return fmt.Sprintf("frame %d [%s]", e.StartFrame, e.Labels)
	}
	return fmt.Sprintf("frames %d-%d [%s]", e.StartFrame, e.EndFrame, e.Labels)
}

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
package timeline_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
)

func mustLog(t *testing.T, raw string) *model.DetectionLog {
	t.Helper()
	log, err := model.ParseDetectionLog([]byte(raw))
	require.NoError(t, err)
	return log
}

// randomLog builds a log of n frames with random labels. When gaps is set,
// some indices are skipped.
func randomLog(t *testing.T, rnd *rand.Rand, n int, gaps bool) *model.DetectionLog {
	t.Helper()
	frames := make([]model.Frame, 0, n)
	idx := rnd.Intn(3)
	for i := 0; i < n; i++ {
		frames = append(frames, model.Frame{Index: idx, Labels: model.LabelSet(rnd.Intn(4))})
		idx++
		if gaps && rnd.Intn(5) == 0 {
			idx += 1 + rnd.Intn(3)
		}
	}
	log, err := model.NewDetectionLog(frames)
	require.NoError(t, err)
	return log
}

func TestExtractEventsScenario(t *testing.T) {
	events := timeline.ExtractEvents(mustLog(t, `[[1,1,0],[2,0,0],[3,0,1],[4,1,1]]`))

	assert.Equal(t, []model.Event{
		{StartFrame: 1, EndFrame: 1, Labels: model.Weapon},
		{StartFrame: 3, EndFrame: 3, Labels: model.Knife},
		{StartFrame: 4, EndFrame: 4, Labels: model.Weapon | model.Knife},
	}, events)
}

func TestExtractEventsMergesRuns(t *testing.T) {
	events := timeline.ExtractEvents(mustLog(t, `[[0,1,0],[1,1,0],[2,1,0],[3,0,0],[4,0,1],[5,0,1],[6,1,0]]`))

	assert.Equal(t, []model.Event{
		{StartFrame: 0, EndFrame: 2, Labels: model.Weapon},
		{StartFrame: 4, EndFrame: 5, Labels: model.Knife},
		{StartFrame: 6, EndFrame: 6, Labels: model.Weapon},
	}, events)
	assert.Equal(t, 3, events[0].Length())
}

func TestExtractEventsSplitsOnMissingIndices(t *testing.T) {
	events := timeline.ExtractEvents(mustLog(t, `[[10,1,0],[14,1,0]]`))
	assert.Equal(t, []model.Event{
		{StartFrame: 10, EndFrame: 10, Labels: model.Weapon},
		{StartFrame: 14, EndFrame: 14, Labels: model.Weapon},
	}, events)

	events = timeline.ExtractEvents(mustLog(t, `[[1,0,1],[2,0,1],[5,0,1],[6,0,1]]`))
	assert.Equal(t, []model.Event{
		{StartFrame: 1, EndFrame: 2, Labels: model.Knife},
		{StartFrame: 5, EndFrame: 6, Labels: model.Knife},
	}, events)
}

func TestExtractEventsEmpty(t *testing.T) {
	assert.Empty(t, timeline.ExtractEvents(nil))
	assert.NotNil(t, timeline.ExtractEvents(nil))
	assert.Empty(t, timeline.ExtractEvents(mustLog(t, `[]`)))
	assert.Empty(t, timeline.ExtractEvents(mustLog(t, `[[1,0,0],[2,0,0],[3,false,false]]`)))
}

// TestExtractEventsProperties checks ordering, label alternation and frame
// coverage on randomly generated logs.
func TestExtractEventsProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		log := randomLog(t, rnd, rnd.Intn(60), iter%2 == 0)
		events := timeline.ExtractEvents(log)

		for i, e := range events {
			require.False(t, e.Labels.Empty())
			require.LessOrEqual(t, e.StartFrame, e.EndFrame)
			if i > 0 {
				require.Greater(t, e.StartFrame, events[i-1].EndFrame, "events overlap or are out of order")
				if events[i-1].EndFrame+1 == e.StartFrame {
					require.NotEqual(t, events[i-1].Labels, e.Labels, "adjacent events share labels")
				}
			}
		}

		// Every frame of the log is covered by exactly one event when labelled,
		// and by none when unlabelled.
		for _, f := range log.Frames() {
			covering := 0
			var labels model.LabelSet
			for _, e := range events {
				if e.Contains(f.Index) {
					covering++
					labels = e.Labels
				}
			}
			if f.Labels.Empty() {
				require.Zero(t, covering, "unlabelled frame %d inside an event", f.Index)
			} else {
				require.Equal(t, 1, covering, "frame %d", f.Index)
				require.Equal(t, f.Labels, labels, "frame %d", f.Index)
			}
		}

		// The frames covered by events are exactly the labelled indices.
		labelled := map[int]bool{}
		for _, f := range log.Frames() {
			if !f.Labels.Empty() {
				labelled[f.Index] = true
			}
		}
		covered := map[int]bool{}
		for _, e := range events {
			for idx := e.StartFrame; idx <= e.EndFrame; idx++ {
				require.True(t, labelled[idx], "event %s covers frame %d which is not labelled in the log", e, idx)
				covered[idx] = true
			}
		}
		require.Equal(t, labelled, covered)

		if log.LabelledCount() == 0 {
			require.Empty(t, events)
		}
	}
}

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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
)

type fakePlayer struct {
	mu        sync.Mutex
	available bool
	fps       float64
	err       error
	seeks     []float64
}

func (p *fakePlayer) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

func (p *fakePlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.seeks = append(p.seeks, seconds)
	return nil
}

func (p *fakePlayer) FrameRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps
}

func (p *fakePlayer) Seeks() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.seeks...)
}

// loadedController returns a Ready controller with events starting at frames
// 30, 90 and 150 (1s, 3s and 5s at 30fps).
func loadedController(t *testing.T) (*timeline.Controller, *fakePlayer) {
	t.Helper()
	c := timeline.NewController(30)
	p := &fakePlayer{available: true}
	c.AttachPlayer(p)
	events := c.LoadVideo("video.mp4", mustLog(t, `[[30,1,0],[31,1,0],[60,0,0],[90,0,1],[150,1,1],[151,1,1]]`))
	require.Len(t, events, 3)
	require.Equal(t, timeline.Ready, c.State())
	return c, p
}

func TestNewControllerIsIdle(t *testing.T) {
	c := timeline.NewController(0)
	s := c.Snapshot()
	assert.Equal(t, timeline.Idle, s.State)
	assert.Empty(t, s.Events)
	assert.Equal(t, model.NoEvent, s.Selection.ActiveEventIndex)
	assert.Equal(t, timeline.DefaultFrameRate, s.FrameRate)
}

func TestSelectEventSeeksAndPlays(t *testing.T) {
	c, p := loadedController(t)

	require.NoError(t, c.SelectEvent(1))
	assert.Equal(t, []float64{3}, p.Seeks())

	s := c.Snapshot()
	assert.Equal(t, timeline.Seeking, s.State)
	assert.Equal(t, 1, s.Selection.ActiveEventIndex)
	assert.Equal(t, 3.0, s.SeekTargetSeconds)

	c.PlayerSeeked()
	s = c.Snapshot()
	assert.Equal(t, timeline.Playing, s.State)
	assert.Equal(t, 3.0, s.Selection.PlayerTimeSeconds)
	assert.Zero(t, s.SeekTargetSeconds)
}

func TestSelectEventWhileSeekingReplacesTarget(t *testing.T) {
	c, p := loadedController(t)

	require.NoError(t, c.SelectEvent(0))
	require.NoError(t, c.SelectEvent(2))
	assert.Equal(t, []float64{1, 5}, p.Seeks())

	s := c.Snapshot()
	assert.Equal(t, timeline.Seeking, s.State)
	assert.Equal(t, 2, s.Selection.ActiveEventIndex)
	assert.Equal(t, 5.0, s.SeekTargetSeconds)
}

func TestSelectEventOutOfRange(t *testing.T) {
	c, p := loadedController(t)
	before := c.Snapshot()

	for _, k := range []int{-1, 3, 100} {
		err := c.SelectEvent(k)
		assert.ErrorIs(t, err, timeline.ErrEventOutOfRange)
		assert.ErrorIs(t, err, model.ErrValidation)
	}
	assert.Equal(t, before, c.Snapshot())
	assert.Empty(t, p.Seeks())
}

func TestSelectEventWhenIdle(t *testing.T) {
	c := timeline.NewController(30)
	p := &fakePlayer{available: true}
	c.AttachPlayer(p)

	assert.ErrorIs(t, c.SelectEvent(0), timeline.ErrNoVideoLoaded)
	assert.Equal(t, timeline.Idle, c.State())
	assert.Empty(t, p.Seeks())
}

func TestSelectEventWithoutPlayer(t *testing.T) {
	c, p := loadedController(t)
	p.available = false
	before := c.Snapshot()

	assert.NoError(t, c.SelectEvent(0))
	assert.Equal(t, before, c.Snapshot())
	assert.Empty(t, p.Seeks())

	c.DetachPlayer()
	assert.NoError(t, c.SelectEvent(0))
	assert.Equal(t, timeline.Ready, c.State())
}

func TestSelectEventSeekFailureRestoresState(t *testing.T) {
	c, p := loadedController(t)
	p.err = errors.New("media element detached")
	before := c.Snapshot()

	err := c.SelectEvent(1)
	require.Error(t, err)
	assert.ErrorIs(t, err, p.err)
	assert.Equal(t, before, c.Snapshot())
}

func TestPlayerSeekedIgnoredOutsideSeeking(t *testing.T) {
	c, _ := loadedController(t)
	c.PlayerSeeked()
	assert.Equal(t, timeline.Ready, c.State())

	idle := timeline.NewController(30)
	idle.PlayerSeeked()
	assert.Equal(t, timeline.Idle, idle.State())
}

func TestPlayerTimeUpdate(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    int
	}{
		{name: "before first event", seconds: 0.5, want: model.NoEvent},
		{name: "at first event", seconds: 1, want: 0},
		{name: "between events", seconds: 2.9, want: 0},
		{name: "at second event", seconds: 3, want: 1},
		{name: "inside last event", seconds: 5.01, want: 2},
		{name: "after last event", seconds: 600, want: 2},
		{name: "zero", seconds: 0, want: model.NoEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := loadedController(t)
			assert.Equal(t, tt.want, c.PlayerTimeUpdate(tt.seconds))
			s := c.Snapshot()
			assert.Equal(t, tt.want, s.Selection.ActiveEventIndex)
			assert.Equal(t, tt.seconds, s.Selection.PlayerTimeSeconds)
		})
	}
}

func TestPlayerTimeUpdateIsIdempotent(t *testing.T) {
	c, _ := loadedController(t)

	first := c.PlayerTimeUpdate(3.5)
	snap := c.Snapshot()
	second := c.PlayerTimeUpdate(3.5)

	assert.Equal(t, first, second)
	assert.Equal(t, snap, c.Snapshot())
}

func TestPlayerTimeUpdateIgnoredWhileSeeking(t *testing.T) {
	c, _ := loadedController(t)
	require.NoError(t, c.SelectEvent(2))

	assert.Equal(t, 2, c.PlayerTimeUpdate(0.1))
	assert.Equal(t, timeline.Seeking, c.State())

	c.PlayerSeeked()
	assert.Equal(t, 0, c.PlayerTimeUpdate(1.5))
	assert.Equal(t, timeline.Playing, c.State())
}

func TestFrameRateFromPlayer(t *testing.T) {
	c, p := loadedController(t)
	p.fps = 60

	require.NoError(t, c.SelectEvent(1))
	assert.Equal(t, []float64{1.5}, p.Seeks())
	assert.Equal(t, 60.0, c.Snapshot().FrameRate)
}

func TestLoadVideoResetsSelection(t *testing.T) {
	c, _ := loadedController(t)
	require.NoError(t, c.SelectEvent(2))
	c.PlayerSeeked()

	events := c.LoadVideo("other.mp4", mustLog(t, `[[0,0,1]]`))
	assert.Len(t, events, 1)

	s := c.Snapshot()
	assert.Equal(t, timeline.Ready, s.State)
	assert.Equal(t, "other.mp4", s.Filename)
	assert.Equal(t, model.NoEvent, s.Selection.ActiveEventIndex)

	c.LoadVideo("empty.mp4", nil)
	assert.Empty(t, c.Snapshot().Events)
	assert.ErrorIs(t, c.SelectEvent(0), timeline.ErrEventOutOfRange)
}

func TestVideoRemoved(t *testing.T) {
	c, _ := loadedController(t)

	c.VideoRemoved("unrelated.mp4")
	assert.Equal(t, timeline.Ready, c.State())

	require.NoError(t, c.SelectEvent(0))
	c.VideoRemoved("video.mp4")
	s := c.Snapshot()
	assert.Equal(t, timeline.Idle, s.State)
	assert.Empty(t, s.Filename)
	assert.Empty(t, s.Events)
	assert.Equal(t, model.NoEvent, s.Selection.ActiveEventIndex)
}

func TestVideoRenamedKeepsEvents(t *testing.T) {
	c, _ := loadedController(t)

	c.VideoRenamed("video.mp4", "renamed.mp4")
	s := c.Snapshot()
	assert.Equal(t, "renamed.mp4", s.Filename)
	assert.Len(t, s.Events, 3)

	c.VideoRemoved("renamed.mp4")
	assert.Equal(t, timeline.Idle, c.State())
}

func TestSnapshotEventsAreCopies(t *testing.T) {
	c, _ := loadedController(t)
	s := c.Snapshot()
	s.Events[0].StartFrame = 999
	assert.Equal(t, 30, c.Snapshot().Events[0].StartFrame)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "seeking", timeline.Seeking.String())
	text, err := timeline.Playing.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "playing", string(text))
	assert.Equal(t, "state(9)", timeline.State(9).String())
}

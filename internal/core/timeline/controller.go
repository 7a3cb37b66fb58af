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

// This file defines the Controller, the state machine that owns the
// "current event" of the open video.
//
// Logic Flow:
//
//  1. **Idle**: No video is loaded. Only LoadVideo has an effect.
//  2. **Ready**: LoadVideo recomputed the events and reset the selection.
//  3. **Seeking**: SelectEvent issued a seek to the event's first frame and
//     waits for the player to acknowledge it through PlayerSeeked.
//  4. **Playing**: The player reports its time through PlayerTimeUpdate and the
//     controller maps it back to the active event with a binary search.
//
// The controller never calls the player when it is absent or reports itself
// unavailable. Its only side effect is the seek command.
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// DefaultFrameRate is used when neither the player nor the configuration
// supplies one.
const DefaultFrameRate = 30.0

var (
	// ErrEventOutOfRange is returned by SelectEvent for an index outside the
	// current event list.
	ErrEventOutOfRange = fmt.Errorf("%w: event index out of range", model.ErrValidation)
	// ErrNoVideoLoaded is returned by SelectEvent while the controller is Idle.
	ErrNoVideoLoaded = errors.New("no video loaded")
)

// State is the controller's position in its state machine.
type State int

const (
	Idle State = iota
	Ready
	Seeking
	Playing
)

var stateNames = map[State]string{
	Idle:    "idle",
	Ready:   "ready",
	Seeking: "seeking",
	Playing: "playing",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText lets State render as its name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a consistent copy of the controller's state.
type Snapshot struct {
	State             State                   `json:"state"`
	Filename          string                  `json:"filename,omitempty"`
	Events            []model.Event           `json:"events"`
	Selection         model.TimelineSelection `json:"selection"`
	FrameRate         float64                 `json:"frame_rate"`
	SeekTargetSeconds float64                 `json:"seek_target_seconds,omitempty"`
}

// Controller maps event selection to player seeks and player time back to the
// active event. It is safe for concurrent use; every transition is serialised.
type Controller struct {
	mu               sync.Mutex
	defaultFrameRate float64
	player           Player

	state      State
	filename   string
	events     []model.Event
	selection  model.TimelineSelection
	seekTarget float64
	seekGen    uint64
}

// NewController creates an Idle controller. A non-positive frame rate falls
// back to DefaultFrameRate.
func NewController(defaultFrameRate float64) *Controller {
	if defaultFrameRate <= 0 {
		defaultFrameRate = DefaultFrameRate
	}
	return &Controller{
		defaultFrameRate: defaultFrameRate,
		state:            Idle,
		events:           make([]model.Event, 0),
		selection:        model.NewTimelineSelection(),
	}
}

// AttachPlayer installs the seek capability. It replaces any previous player.
func (c *Controller) AttachPlayer(p Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = p
}

// DetachPlayer removes the seek capability; later selections become no-ops.
func (c *Controller) DetachPlayer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = nil
}

// LoadVideo moves the controller to Ready with the events of log, from any
// state. The selection is reset.
//
// Inputs:
//   - filename: The catalog key of the video being opened.
//   - log: Its detection log; nil loads a video without events.
//
// Outputs:
//   - []model.Event: The events now shown on the timeline.
func (c *Controller) LoadVideo(filename string, log *model.DetectionLog) []model.Event {
	events := ExtractEvents(log)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Ready
	c.filename = filename
	c.events = events
	c.selection = model.NewTimelineSelection()
	c.seekTarget = 0
	c.seekGen++

	slog.Debug("timeline loaded", "filename", filename, "events", len(events))
	return copyEvents(events)
}

// Unload returns the controller to Idle and clears the selection.
func (c *Controller) Unload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unloadLocked()
}

func (c *Controller) unloadLocked() {
	c.state = Idle
	c.filename = ""
	c.events = make([]model.Event, 0)
	c.selection = model.NewTimelineSelection()
	c.seekTarget = 0
	c.seekGen++
}

// SelectEvent seeks the player to the first frame of event k and enters
// Seeking. It is accepted from Ready, Playing and Seeking; a selection made
// while seeking replaces the pending target.
//
// When no player is attached, or the player reports itself unavailable, the
// call is a logged no-op and returns nil.
//
// Inputs:
//   - k: Index into the current event list.
//
// Outputs:
//   - error: ErrNoVideoLoaded when Idle, ErrEventOutOfRange for a bad index,
//     or the player's seek error. State is unchanged on every error.
func (c *Controller) SelectEvent(k int) error {
	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return ErrNoVideoLoaded
	}
	if k < 0 || k >= len(c.events) {
		n := len(c.events)
		c.mu.Unlock()
		return fmt.Errorf("select event %d of %d: %w", k, n, ErrEventOutOfRange)
	}

	p := c.player
	if p == nil || !p.Available() {
		filename := c.filename
		c.mu.Unlock()
		slog.Debug("ignoring event selection", "filename", filename, "event", k, "reason", model.ErrPlayerUnavailable)
		return nil
	}

	target := c.events[k].StartSeconds(c.frameRateLocked())
	prevState, prevSelection, prevTarget := c.state, c.selection, c.seekTarget
	c.state = Seeking
	c.selection.ActiveEventIndex = k
	c.seekTarget = target
	c.seekGen++
	gen := c.seekGen
	c.mu.Unlock()

	// The player may acknowledge synchronously, so it is called without the lock.
	if err := p.SeekTo(target); err != nil {
		c.mu.Lock()
		if c.seekGen == gen {
			c.state, c.selection, c.seekTarget = prevState, prevSelection, prevTarget
		}
		c.mu.Unlock()
		return fmt.Errorf("seek to %.3fs: %w", target, err)
	}
	return nil
}

// PlayerSeeked acknowledges the pending seek and enters Playing. It is ignored
// outside Seeking.
func (c *Controller) PlayerSeeked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Seeking {
		slog.Debug("ignoring seek acknowledgement", "state", c.state)
		return
	}
	c.state = Playing
	c.selection.PlayerTimeSeconds = c.seekTarget
}

// PlayerTimeUpdate records the player's playback time and recomputes the
// active event: the last event whose start time is not after t. It is
// applied in Ready and Playing and ignored otherwise.
//
// Inputs:
//   - t: Playback offset in seconds.
//
// Outputs:
//   - int: The active event index, or model.NoEvent.
func (c *Controller) PlayerTimeUpdate(t float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if (c.state != Ready && c.state != Playing) || math.IsNaN(t) {
		return c.selection.ActiveEventIndex
	}

	fps := c.frameRateLocked()
	i := sort.Search(len(c.events), func(i int) bool {
		return c.events[i].StartSeconds(fps) > t
	})
	c.selection.PlayerTimeSeconds = t
	c.selection.ActiveEventIndex = i - 1
	return c.selection.ActiveEventIndex
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:     c.state,
		Filename:  c.filename,
		Events:    copyEvents(c.events),
		Selection: c.selection,
		FrameRate: c.frameRateLocked(),
	}
	if c.state == Seeking {
		s.SeekTargetSeconds = c.seekTarget
	}
	return s
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Filename returns the catalog key of the open video, or "" when Idle.
func (c *Controller) Filename() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filename
}

// VideoRemoved unloads the controller when the open video leaves the catalog.
func (c *Controller) VideoRemoved(filename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle && c.filename == filename {
		slog.Info("open video removed from catalog", "filename", filename)
		c.unloadLocked()
	}
}

// VideoRenamed follows a storage key change of the open video. The loaded
// events stay valid because the underlying media is unchanged.
func (c *Controller) VideoRenamed(oldFilename, newFilename string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle && c.filename == oldFilename {
		c.filename = newFilename
	}
}

func (c *Controller) frameRateLocked() float64 {
	if r, ok := c.player.(FrameRateReporter); ok {
		if fps := r.FrameRate(); fps > 0 {
			return fps
		}
	}
	return c.defaultFrameRate
}

func copyEvents(in []model.Event) []model.Event {
	out := make([]model.Event, len(in))
	copy(out, in)
	return out
}

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

// Package model defines the data structures shared by the detection timeline
// engine: per-frame detection logs, the events derived from them, the catalog's
// video records and the transient selection state of the timeline.
//
// This file holds the detection log itself.
//
// Types:
//   - LabelSet: A bitset of detection labels (weapon, knife) carried by a frame.
//   - Frame: A single frame index plus its label set. On the wire a frame is the
//     fixed-width record [index, weaponFlag, knifeFlag].
//   - DetectionLog: An immutable, strictly ordered sequence of frames.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// LabelSet is a set of detection labels. The zero value is the empty set.
type LabelSet uint8

const (
	// Weapon marks a frame in which a firearm was detected.
	Weapon LabelSet = 1 << iota
	// Knife marks a frame in which a knife was detected.
	Knife
)

// labelNames is ordered so that String and Labels render deterministically.
var labelNames = []struct {
	label LabelSet
	name  string
}{
	{Weapon, "weapon"},
	{Knife, "knife"},
}

// NewLabelSet builds a label set from the two detector flags.
func NewLabelSet(weapon, knife bool) LabelSet {
	var s LabelSet
	if weapon {
		s |= Weapon
	}
	if knife {
		s |= Knife
	}
	return s
}

// Empty reports whether no label is present.
func (s LabelSet) Empty() bool {
	return s == 0
}

// Has reports whether every label in l is also present in s.
func (s LabelSet) Has(l LabelSet) bool {
	return l != 0 && s&l == l
}

// Labels returns the label names in a stable order.
func (s LabelSet) Labels() []string {
	out := make([]string, 0, len(labelNames))
	for _, ln := range labelNames {
		if s&ln.label != 0 {
			out = append(out, ln.name)
		}
	}
	return out
}

func (s LabelSet) String() string {
	if s.Empty() {
		return "none"
	}
	return strings.Join(s.Labels(), "+")
}

// MarshalJSON renders the set as a list of label names.
func (s LabelSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Labels())
}

// UnmarshalJSON accepts the list form produced by MarshalJSON.
func (s *LabelSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var out LabelSet
	for _, n := range names {
		found := false
		for _, ln := range labelNames {
			if ln.name == n {
				out |= ln.label
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: unknown label %q", ErrValidation, n)
		}
	}
	*s = out
	return nil
}

// Frame is one entry of a detection log.
type Frame struct {
	Index  int
	Labels LabelSet
}

// MarshalJSON writes the frame as [index, weaponFlag, knifeFlag].
func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{f.Index, flag(f.Labels.Has(Weapon)), flag(f.Labels.Has(Knife))})
}

// UnmarshalJSON reads the fixed-width record. Flags may be encoded as numbers
// (0/1) or booleans, the detection pipeline produces both.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: frame record: %v", ErrValidation, err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("%w: frame record has %d fields, want 3", ErrValidation, len(raw))
	}

	var idx float64
	if err := json.Unmarshal(raw[0], &idx); err != nil {
		return fmt.Errorf("%w: frame index: %v", ErrValidation, err)
	}
	if idx != math.Trunc(idx) || idx < 0 {
		return fmt.Errorf("%w: frame index %v is not a non-negative integer", ErrValidation, idx)
	}

	weapon, err := decodeFlag(raw[1])
	if err != nil {
		return err
	}
	knife, err := decodeFlag(raw[2])
	if err != nil {
		return err
	}

	f.Index = int(idx)
	f.Labels = NewLabelSet(weapon, knife)
	return nil
}

func decodeFlag(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false, fmt.Errorf("%w: detection flag %s", ErrValidation, string(raw))
	}
	return n != 0, nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DetectionLog is the per-frame label record of a single video. A log is
// immutable once built; reloading a video replaces the whole log.
type DetectionLog struct {
	frames []Frame
}

// NewDetectionLog validates and copies frames into a new log. Frame indices
// must be non-negative and strictly increasing.
//
// Inputs:
//   - frames: The frames in index order.
//
// Outputs:
//   - *DetectionLog: The immutable log.
//   - error: ErrValidation when ordering or index constraints are violated.
func NewDetectionLog(frames []Frame) (*DetectionLog, error) {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		if f.Index < 0 {
			return nil, fmt.Errorf("%w: frame %d has negative index %d", ErrValidation, i, f.Index)
		}
		if i > 0 && f.Index <= frames[i-1].Index {
			return nil, fmt.Errorf("%w: frame index %d does not follow %d", ErrValidation, f.Index, frames[i-1].Index)
		}
		out[i] = f
	}
	return &DetectionLog{frames: out}, nil
}

// ParseDetectionLog decodes the backend's JSON log representation, a list of
// [index, weaponFlag, knifeFlag] records. A JSON null decodes to an empty log.
func ParseDetectionLog(data []byte) (*DetectionLog, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &DetectionLog{}, nil
	}
	var frames []Frame
	if err := json.Unmarshal(data, &frames); err != nil {
		if errors.Is(err, ErrValidation) {
			return nil, fmt.Errorf("failed to decode detection log: %w", err)
		}
		return nil, fmt.Errorf("%w: failed to decode detection log: %v", ErrValidation, err)
	}
	return NewDetectionLog(frames)
}

// Len returns the number of frames. A nil log is empty.
func (l *DetectionLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.frames)
}

// At returns the i-th frame in index order.
func (l *DetectionLog) At(i int) Frame {
	return l.frames[i]
}

// Frames returns a copy of the frames.
func (l *DetectionLog) Frames() []Frame {
	if l == nil {
		return nil
	}
	out := make([]Frame, len(l.frames))
	copy(out, l.frames)
	return out
}

// LabelledCount returns how many frames carry at least one label.
func (l *DetectionLog) LabelledCount() int {
	n := 0
	for i := 0; i < l.Len(); i++ {
		if !l.frames[i].Labels.Empty() {
			n++
		}
	}
	return n
}

func (l *DetectionLog) MarshalJSON() ([]byte, error) {
	if l == nil || l.frames == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.frames)
}

func (l *DetectionLog) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDetectionLog(data)
	if err != nil {
		return err
	}
	l.frames = parsed.frames
	return nil
}

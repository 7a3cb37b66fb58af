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

package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// PendingSeek is a seek command waiting for the browser player to pick it up.
type PendingSeek struct {
	ID       string    `json:"id"`
	Seconds  float64   `json:"seconds"`
	IssuedAt time.Time `json:"issued_at"`
}

// RemotePlayer stands in for a player that lives in the browser. Seeks are
// recorded as a single pending command; a newer seek replaces an unread one.
// The browser reports whether its player element is mounted and acknowledges
// each seek once it has been applied.
type RemotePlayer struct {
	mu      sync.Mutex
	mounted bool
	fps     float64
	pending *PendingSeek
}

func NewRemotePlayer() *RemotePlayer {
	return &RemotePlayer{}
}

// Mount marks the player as available. fps is the frame rate the player
// reports; zero leaves the controller on its default.
func (p *RemotePlayer) Mount(fps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = true
	p.fps = fps
}

// Unmount marks the player as gone and discards any pending seek.
func (p *RemotePlayer) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	p.fps = 0
	p.pending = nil
}

func (p *RemotePlayer) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mounted
}

func (p *RemotePlayer) FrameRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps
}

func (p *RemotePlayer) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted {
		return fmt.Errorf("seek to %.3fs: %w", seconds, model.ErrPlayerUnavailable)
	}
	p.pending = &PendingSeek{ID: uuid.New().String(), Seconds: seconds, IssuedAt: time.Now()}
	return nil
}

// Pending returns a copy of the unacknowledged seek, or nil.
func (p *RemotePlayer) Pending() *PendingSeek {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return nil
	}
	out := *p.pending
	return &out
}

// Acknowledge clears the pending seek. An empty id matches any pending seek.
// It reports false when there is nothing pending or id names a superseded seek.
func (p *RemotePlayer) Acknowledge(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil || (id != "" && p.pending.ID != id) {
		return false
	}
	p.pending = nil
	return true
}

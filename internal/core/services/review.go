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

// This file defines the ReviewService, the session that ties the catalog to
// the timeline controller and the browser player.
//
// Logic Flow:
//
//  1. Open bumps the session generation and loads the video's detection log
//     through the catalog.
//  2. When the fetch completes, a result for a superseded generation is
//     dropped. Otherwise the controller loads the video; a failed fetch still
//     opens it with no events.
//  3. Selection, seek acknowledgements and time updates are forwarded to the
//     controller. Seeks reach the browser through the RemotePlayer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/catalog"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
)

// ReviewSnapshot is the timeline state plus the seek the browser has yet to
// apply.
type ReviewSnapshot struct {
	timeline.Snapshot
	PlayerMounted bool         `json:"player_mounted"`
	PendingSeek   *PendingSeek `json:"pending_seek,omitempty"`
}

// ReviewService is safe for concurrent use.
type ReviewService struct {
	mu         sync.Mutex
	store      *catalog.Store
	controller *timeline.Controller
	player     *RemotePlayer
	generation uint64
}

// NewReviewService wires a controller to store. The controller follows
// renames and deletions of the open video.
//
// Inputs:
//   - store: The catalog.
//   - defaultFrameRate: Used until the player reports its own.
//
// Outputs:
//   - *ReviewService: A session with no video open and no player mounted.
func NewReviewService(store *catalog.Store, defaultFrameRate float64) *ReviewService {
	controller := timeline.NewController(defaultFrameRate)
	player := NewRemotePlayer()
	controller.AttachPlayer(player)
	store.Watch(controller)
	return &ReviewService{store: store, controller: controller, player: player}
}

// Open loads filename into the timeline.
//
// Outputs:
//   - []model.Event: The events now on the timeline; empty when the log could
//     not be loaded.
//   - error: model.ErrStaleResponse when another Open or Close won the race,
//     model.ErrNotFound when the video does not exist, or the context's error.
func (s *ReviewService) Open(ctx context.Context, filename string) ([]model.Event, error) {
	if filename == "" {
		return nil, fmt.Errorf("open: empty filename: %w", model.ErrValidation)
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	log, err := s.store.LoadLog(ctx, filename)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrStaleResponse), errors.Is(err, model.ErrNotFound):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		slog.WarnContext(ctx, "opening video without detection log", "filename", filename, "error", err)
		log = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil, fmt.Errorf("open %s: %w", filename, model.ErrStaleResponse)
	}
	return s.controller.LoadVideo(filename, log), nil
}

// Close unloads the timeline and cancels the effect of any Open in flight.
func (s *ReviewService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.controller.Unload()
}

// Select seeks to event k.
func (s *ReviewService) Select(k int) error {
	return s.controller.SelectEvent(k)
}

// Seeked acknowledges the pending seek named by id, or any pending seek when
// id is empty. An acknowledgement for a superseded seek is ignored and
// reported as model.ErrStaleResponse.
func (s *ReviewService) Seeked(id string) error {
	if !s.player.Acknowledge(id) && id != "" {
		return fmt.Errorf("seek %s: %w", id, model.ErrStaleResponse)
	}
	s.controller.PlayerSeeked()
	return nil
}

// TimeUpdate reports the player's playback time and returns the active event.
func (s *ReviewService) TimeUpdate(seconds float64) int {
	return s.controller.PlayerTimeUpdate(seconds)
}

// SetPlayer records whether the browser's player is mounted and its frame
// rate.
func (s *ReviewService) SetPlayer(mounted bool, fps float64) {
	if mounted {
		s.player.Mount(fps)
		return
	}
	s.player.Unmount()
}

func (s *ReviewService) Snapshot() ReviewSnapshot {
	return ReviewSnapshot{
		Snapshot:      s.controller.Snapshot(),
		PlayerMounted: s.player.Available(),
		PendingSeek:   s.player.Pending(),
	}
}

// Controller exposes the underlying state machine.
func (s *ReviewService) Controller() *timeline.Controller {
	return s.controller
}

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
// Package test provides helpers shared by the package test suites: the test
package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// Gate holds one backend call until the test releases it.
type Gate struct {
	Entered chan struct{}
	Release chan error
}

// Wait blocks until the held call is in flight.
func (g *Gate) Wait(t *testing.T) {
	t.Helper()
	select {
	case <-g.Entered:
	case <-time.After(5 * time.Second):
		t.Fatal("backend call never started")
	}
}

// StubBackend is an in-memory catalog backend whose calls can be held open,
// which lets tests interleave request completions deterministically. Call keys
// are "list", "logs:<filename>", "rename:<filename>" and "delete:<filename>".
type StubBackend struct {
	mu       sync.Mutex
	videos   []model.VideoRecord
	logs     map[string]string
	logErrs  map[string]error
	renameTo map[string]string
	gates    map[string]*Gate
	calls    map[string]int
}

func NewStubBackend() *StubBackend {
	return &StubBackend{
		logs:     make(map[string]string),
		logErrs:  make(map[string]error),
		renameTo: make(map[string]string),
		gates:    make(map[string]*Gate),
		calls:    make(map[string]int),
	}
}

// Add appends a video with its log in the backend's JSON form.
func (b *StubBackend) Add(filename, originalName, log string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videos = append(b.videos, model.VideoRecord{Filename: filename, OriginalName: originalName})
	b.logs[filename] = log
}

// Truncate keeps only the first n videos of the listing.
func (b *StubBackend) Truncate(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videos = b.videos[:n]
}

func (b *StubBackend) SetLog(filename, log string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[filename] = log
}

// FailLogs makes every log fetch of filename return err.
func (b *StubBackend) FailLogs(filename string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logErrs[filename] = err
}

// RenameTo makes a rename of filename answer with a new storage key.
func (b *StubBackend) RenameTo(filename, newFilename string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.renameTo[filename] = newFilename
}

// Hold makes the next call identified by key block. The gate's Entered
// channel closes once the call is in flight; sending on Release completes it,
// with a non-nil value turning it into a failure.
func (b *StubBackend) Hold(key string) *Gate {
	g := &Gate{Entered: make(chan struct{}), Release: make(chan error, 1)}
	b.mu.Lock()
	b.gates[key] = g
	b.mu.Unlock()
	return g
}

// Count returns how many calls were made with key.
func (b *StubBackend) Count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *StubBackend) pass(ctx context.Context, key string) error {
	b.mu.Lock()
	b.calls[key]++
	g := b.gates[key]
	delete(b.gates, key)
	b.mu.Unlock()
	if g == nil {
		return nil
	}
	close(g.Entered)
	select {
	case err := <-g.Release:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", model.ErrNetworkFailure, ctx.Err())
	}
}

// ListVideos reads the listing when the call starts, so a held call answers
// with the catalog as it was before any concurrent mutation.
func (b *StubBackend) ListVideos(ctx context.Context) ([]model.VideoRecord, error) {
	b.mu.Lock()
	videos := append([]model.VideoRecord(nil), b.videos...)
	b.mu.Unlock()
	if err := b.pass(ctx, "list"); err != nil {
		return nil, err
	}
	return videos, nil
}

func (b *StubBackend) GetLogs(ctx context.Context, filename string) (*model.DetectionLog, error) {
	if err := b.pass(ctx, "logs:"+filename); err != nil {
		return nil, err
	}
	b.mu.Lock()
	raw, ok := b.logs[filename]
	err := b.logErrs[filename]
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("logs of %s: %w", filename, model.ErrNotFound)
	}
	return model.ParseDetectionLog([]byte(raw))
}

func (b *StubBackend) RenameVideo(ctx context.Context, filename, newName string) (string, error) {
	if err := b.pass(ctx, "rename:"+filename); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if to, ok := b.renameTo[filename]; ok {
		return to, nil
	}
	return filename, nil
}

func (b *StubBackend) DeleteVideo(ctx context.Context, filename string) error {
	if err := b.pass(ctx, "delete:"+filename); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range b.videos {
		if v.Filename == filename {
			b.videos = append(b.videos[:i], b.videos[i+1:]...)
			break
		}
	}
	return nil
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []model.Notification
}

func (n *RecordingNotifier) Notify(ctx context.Context, item model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *RecordingNotifier) All() []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notification(nil), n.items...)
}

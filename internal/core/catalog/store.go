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

// Package catalog owns the list of videos and their cached detection logs.
//
// Mutations are optimistic: the local record changes first, the backend call
// follows, and a failed call restores the record's snapshot and emits a
// notification. Every backend round trip carries a sequence number; a
// completion that is no longer the latest for its key is discarded with
// model.ErrStaleResponse.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/timeline"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/workflow"
)

// Operation names reported to the OperationRecorder.
const (
	OpList    = "list"
	OpLoadLog = "load_log"
	OpRename  = "rename"
	OpDelete  = "delete"
)

// Operation outcomes reported to the OperationRecorder.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusInvalid = "invalid"
	StatusStale   = "stale"
)

// Backend is the subset of the detection API the store drives.
type Backend interface {
	commands.VideoLister
	commands.LogFetcher
	RenameVideo(ctx context.Context, filename, newName string) (string, error)
	DeleteVideo(ctx context.Context, filename string) error
}

// Notifier receives user-visible failure notices.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

// Observer is told about catalog changes that affect an open video.
type Observer interface {
	VideoRemoved(filename string)
	VideoRenamed(oldFilename, newFilename string)
}

// OperationRecorder counts store operations by outcome.
type OperationRecorder interface {
	RecordOperation(op, status string)
}

type entry struct {
	video  model.Video
	log    *model.DetectionLog
	events []model.Event
	// mutationSeq is the sequence number of the latest rename or delete.
	mutationSeq uint64
}

// Store is the catalog. It is safe for concurrent use; no lock is held while
// the backend is called.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	refresh   *workflow.CatalogRefreshWorkflow
	notifier  Notifier
	recorder  OperationRecorder
	observers []Observer

	entries []*entry
	seq     uint64
	listSeq uint64
	logSeq  map[string]uint64
	// deleted maps filenames to the sequence number at which the backend
	// confirmed their deletion. A listing requested before that point may
	// still contain them.
	deleted map[string]uint64
}

// Option configures a Store.
type Option func(*Store)

// WithNotifier sets the sink for failure notices.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithRecorder sets the operation counter.
func WithRecorder(r OperationRecorder) Option {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates an empty catalog backed by backend.
//
// Inputs:
//   - backend: The detection API.
//   - poolSize: Maximum concurrent log fetches during LoadAll.
//   - opts: Optional notifier and recorder.
//
// Outputs:
//   - *Store: An empty store; call LoadAll to populate it.
func NewStore(backend Backend, poolSize int, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		refresh: workflow.NewCatalogRefreshWorkflow(backend, backend, poolSize),
		entries: make([]*entry, 0),
		logSeq:  make(map[string]uint64),
		deleted: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch registers an observer. Observers are called without the store's lock.
func (s *Store) Watch(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// LoadAll replaces the catalog with the backend's listing. Videos whose log
// could not be fetched are kept with no events. Observers are told about
// every video that disappeared.
//
// Inputs:
//   - ctx: Carries cancellation for the whole refresh.
//
// Outputs:
//   - []model.Video: The new catalog, in backend order.
//   - error: The listing failure, or model.ErrStaleResponse if a newer
//     LoadAll started meanwhile. The catalog is unchanged on error.
func (s *Store) LoadAll(ctx context.Context) ([]model.Video, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.listSeq = seq
	s.mu.Unlock()

	snapshot, err := s.refresh.Run(ctx)

	s.mu.Lock()
	if s.listSeq != seq {
		s.mu.Unlock()
		s.record(OpList, StatusStale)
		return nil, fmt.Errorf("list videos: %w", model.ErrStaleResponse)
	}
	if err != nil {
		s.mu.Unlock()
		s.record(OpList, StatusError)
		return nil, fmt.Errorf("list videos: %w", err)
	}

	present := make(map[string]bool, len(snapshot.Entries))
	entries := make([]*entry, 0, len(snapshot.Entries))
	for _, e := range snapshot.Entries {
		if s.deleted[e.Video.Filename] > seq {
			continue
		}
		present[e.Video.Filename] = true
		entries = append(entries, &entry{video: e.Video, log: e.Log, events: e.Events})
	}
	removed := make([]string, 0)
	for _, e := range s.entries {
		if !present[e.video.Filename] {
			removed = append(removed, e.video.Filename)
		}
	}
	for filename, at := range s.deleted {
		if at < seq {
			delete(s.deleted, filename)
		}
	}
	s.entries = entries
	videos := s.videosLocked()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, filename := range removed {
		for _, o := range observers {
			o.VideoRemoved(filename)
		}
	}
	if failed := snapshot.Failed(); len(failed) > 0 {
		slog.WarnContext(ctx, "catalog loaded with missing detection logs", "videos", len(videos), "failed", len(failed))
	}
	s.record(OpList, StatusSuccess)
	return videos, nil
}

// LoadLog fetches the detection log of filename and caches it with its
// events. On failure the cached events are cleared, the video's EventCount is
// left as it was and a log_unavailable notice is sent.
//
// Inputs:
//   - ctx: Carries cancellation for the fetch.
//   - filename: The catalog key.
//
// Outputs:
//   - *model.DetectionLog: The log; never nil on success.
//   - error: The fetch failure, or model.ErrStaleResponse when a newer
//     LoadLog for the same filename was issued meanwhile.
func (s *Store) LoadLog(ctx context.Context, filename string) (*model.DetectionLog, error) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.logSeq[filename] = seq
	s.mu.Unlock()

	log, err := s.backend.GetLogs(ctx, filename)

	s.mu.Lock()
	if s.logSeq[filename] != seq {
		s.mu.Unlock()
		s.record(OpLoadLog, StatusStale)
		return nil, fmt.Errorf("load log of %s: %w", filename, model.ErrStaleResponse)
	}
	delete(s.logSeq, filename)

	_, e := s.findLocked(filename)
	if err != nil {
		if e != nil {
			e.log = nil
			e.events = make([]model.Event, 0)
		}
		s.mu.Unlock()
		s.record(OpLoadLog, StatusError)
		s.notify(ctx, model.NotificationLogUnavailable, filename, err)
		return nil, fmt.Errorf("load log of %s: %w", filename, err)
	}
	if log == nil {
		log, _ = model.NewDetectionLog(nil)
	}
	if e != nil {
		e.log = log
		e.events = timeline.ExtractEvents(log)
		e.video.EventCount = len(e.events)
	}
	s.mu.Unlock()

	s.record(OpLoadLog, StatusSuccess)
	return log, nil
}

// Rename changes the display name of filename. The new name is shown
// immediately; when the backend fails the previous record is restored and a
// rename_failed notice is sent. If the backend assigns a new storage key the
// record is re-keyed, its cached log dropped, and observers are told.
//
// Inputs:
//   - ctx: Carries cancellation for the backend call.
//   - filename: The catalog key.
//   - newName: The new display name; it is trimmed and must not be empty.
//
// Outputs:
//   - error: model.ErrValidation for an empty name, model.ErrNotFound for an
//     unknown filename, the backend failure, or model.ErrStaleResponse when a
//     newer mutation of the same record superseded this one.
func (s *Store) Rename(ctx context.Context, filename, newName string) error {
	name := strings.TrimSpace(newName)
	if name == "" {
		s.record(OpRename, StatusInvalid)
		return fmt.Errorf("rename %s: empty name: %w", filename, model.ErrValidation)
	}

	s.mu.Lock()
	_, e := s.findLocked(filename)
	if e == nil {
		s.mu.Unlock()
		s.record(OpRename, StatusInvalid)
		return fmt.Errorf("rename %s: %w", filename, model.ErrNotFound)
	}
	before := e.video
	s.seq++
	seq := s.seq
	e.mutationSeq = seq
	e.video.OriginalName = name
	s.mu.Unlock()

	newFilename, err := s.backend.RenameVideo(ctx, filename, name)

	s.mu.Lock()
	if e.mutationSeq != seq {
		s.mu.Unlock()
		s.record(OpRename, StatusStale)
		return fmt.Errorf("rename %s: %w", filename, model.ErrStaleResponse)
	}
	if err != nil {
		e.video = before
		s.mu.Unlock()
		s.record(OpRename, StatusError)
		s.notify(ctx, model.NotificationRenameFailed, filename, err)
		return fmt.Errorf("rename %s: %w", filename, err)
	}

	rekeyed := newFilename != "" && newFilename != filename
	if rekeyed {
		e.video.Filename = newFilename
		e.video.CapturedAt, _ = model.ParseCaptureTimestamp(newFilename)
		e.log = nil
		e.events = make([]model.Event, 0)
		// In-flight log fetches for the old key are no longer wanted.
		if _, pending := s.logSeq[filename]; pending {
			s.seq++
			s.logSeq[filename] = s.seq
		}
	}
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	if rekeyed {
		for _, o := range observers {
			o.VideoRenamed(filename, newFilename)
		}
	}
	s.record(OpRename, StatusSuccess)
	return nil
}

// Delete removes filename. The record disappears immediately; when the
// backend fails it is reinserted at its former position and a delete_failed
// notice is sent. Observers are told only once the backend confirms, and they
// are told even when a LoadAll ran meanwhile. In-flight LoadLog calls for the
// video are dropped as stale.
//
// Inputs:
//   - ctx: Carries cancellation for the backend call.
//   - filename: The catalog key.
//
// Outputs:
//   - error: model.ErrNotFound for an unknown filename, the backend failure,
//     or model.ErrStaleResponse when the backend failed after the catalog was
//     reloaded, in which case the reload decides the local state.
func (s *Store) Delete(ctx context.Context, filename string) error {
	s.mu.Lock()
	idx, e := s.findLocked(filename)
	if e == nil {
		s.mu.Unlock()
		s.record(OpDelete, StatusInvalid)
		return fmt.Errorf("delete %s: %w", filename, model.ErrNotFound)
	}
	s.seq++
	seq := s.seq
	e.mutationSeq = seq
	listSeq := s.listSeq
	s.entries = slices.Delete(s.entries, idx, idx+1)
	s.mu.Unlock()

	err := s.backend.DeleteVideo(ctx, filename)

	s.mu.Lock()
	if err != nil {
		if e.mutationSeq != seq || s.listSeq != listSeq {
			s.mu.Unlock()
			s.record(OpDelete, StatusStale)
			return fmt.Errorf("delete %s: %w", filename, model.ErrStaleResponse)
		}
		if _, dup := s.findLocked(filename); dup == nil {
			s.entries = slices.Insert(s.entries, min(idx, len(s.entries)), e)
		}
		s.mu.Unlock()
		s.record(OpDelete, StatusError)
		s.notify(ctx, model.NotificationDeleteFailed, filename, err)
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	// A reload that finished meanwhile may have listed the video again.
	if i, dup := s.findLocked(filename); dup != nil {
		s.entries = slices.Delete(s.entries, i, i+1)
	}
	s.seq++
	s.deleted[filename] = s.seq
	delete(s.logSeq, filename)
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.VideoRemoved(filename)
	}
	s.record(OpDelete, StatusSuccess)
	return nil
}

// Videos returns a copy of the catalog in display order.
func (s *Store) Videos() []model.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videosLocked()
}

// Lookup returns the record of filename.
func (s *Store) Lookup(filename string) (model.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, e := s.findLocked(filename); e != nil {
		return e.video, true
	}
	return model.Video{}, false
}

// Events returns the cached events of filename. The second result is false
// when the video is unknown or its log has not been loaded.
func (s *Store) Events(filename string) ([]model.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, e := s.findLocked(filename)
	if e == nil || e.log == nil {
		return make([]model.Event, 0), false
	}
	return slices.Clone(e.events), true
}

// CachedLog returns the cached detection log of filename, or nil.
func (s *Store) CachedLog(filename string) *model.DetectionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, e := s.findLocked(filename); e != nil {
		return e.log
	}
	return nil
}

func (s *Store) findLocked(filename string) (int, *entry) {
	for i, e := range s.entries {
		if e.video.Filename == filename {
			return i, e
		}
	}
	return -1, nil
}

func (s *Store) videosLocked() []model.Video {
	out := make([]model.Video, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.video
	}
	return out
}

func (s *Store) record(op, status string) {
	if s.recorder != nil {
		s.recorder.RecordOperation(op, status)
	}
}

// notify runs detached from ctx so a cancelled request still reports its
// failure.
func (s *Store) notify(ctx context.Context, kind model.NotificationKind, filename string, cause error) {
	if s.notifier == nil {
		return
	}
	message := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		message = fmt.Sprintf("request for %s was interrupted", filename)
	}
	s.notifier.Notify(context.WithoutCancel(ctx), model.NewNotification(kind, filename, message))
}

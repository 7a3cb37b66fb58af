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

// Package services contains the session-level logic that sits between the
// HTTP handlers and the catalog. This file defines the MediaService, which
// resolves signed media URLs through the detection backend, streams the
// video bytes and archives videos to Google Cloud Storage.
package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/workflow"
)

// sniffLength is the number of leading bytes filetype needs to recognise
// every container it supports.
const sniffLength = 262

// ErrArchiveDisabled is returned by Archive when no archive bucket is configured.
var ErrArchiveDisabled = errors.New("media archiving is not configured")

// MediaService groups the media operations. Archiver may be nil.
type MediaService struct {
	Source   commands.MediaSource           // Signed URL resolution and download.
	Archiver *workflow.MediaArchiveWorkflow // Copies a video into the archive bucket.
}

// URL returns the signed URL of filename.
func (s *MediaService) URL(ctx context.Context, filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("media url: empty filename: %w", model.ErrValidation)
	}
	return s.Source.MediaURL(ctx, filename)
}

// Download opens the video bytes of filename and checks that they are a
// video before returning them.
//
// Inputs:
//   - ctx: Governs the whole download; cancelling it aborts the stream.
//   - filename: The catalog key.
//
// Outputs:
//   - io.ReadCloser: The full stream, including the sniffed header.
//   - string: The detected MIME type.
//   - error: model.ErrValidation when the content is not a video, or the
//     backend failure.
func (s *MediaService) Download(ctx context.Context, filename string) (io.ReadCloser, string, error) {
	signedURL, err := s.URL(ctx, filename)
	if err != nil {
		return nil, "", err
	}
	body, _, err := s.Source.OpenMedia(ctx, signedURL)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", filename, err)
	}

	reader := bufio.NewReaderSize(body, sniffLength)
	head, err := reader.Peek(sniffLength)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		_ = body.Close()
		return nil, "", fmt.Errorf("download %s: %w: %w", filename, model.ErrNetworkFailure, err)
	}
	kind, err := filetype.Match(head)
	if err != nil || !filetype.IsVideo(head) {
		_ = body.Close()
		return nil, "", fmt.Errorf("download %s: content is not a video: %w", filename, model.ErrValidation)
	}

	return struct {
		io.Reader
		io.Closer
	}{reader, body}, kind.MIME.Value, nil
}

// Archive copies filename into the archive bucket.
func (s *MediaService) Archive(ctx context.Context, filename string) (*cloud.GCSObject, error) {
	if s.Archiver == nil {
		return nil, ErrArchiveDisabled
	}
	if filename == "" {
		return nil, fmt.Errorf("archive: empty filename: %w", model.ErrValidation)
	}
	return s.Archiver.Run(ctx, filename)
}

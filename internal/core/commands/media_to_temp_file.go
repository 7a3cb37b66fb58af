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

// This file defines a command that downloads a video's signed URL into a
// local temporary file.
//
// Logic Flow:
//
//  1. Receives the *cloud.MediaObject carrying the signed URL.
//  2. Opens the URL through the MediaSource.
//  3. Streams the body into a new temporary file with io.Copy, so large videos
//     are never held in memory.
//  4. Registers the file with the context for cleanup and outputs its path.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

// MediaToTempFile downloads media to the local filesystem.
type MediaToTempFile struct {
	cor.BaseCommand
	source         MediaSource
	tempFilePrefix string
}

func NewMediaToTempFile(name string, source MediaSource, tempFilePrefix string) *MediaToTempFile {
	return &MediaToTempFile{
		BaseCommand:    *cor.NewBaseCommand(name),
		source:         source,
		tempFilePrefix: tempFilePrefix,
	}
}

func (c *MediaToTempFile) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	media, ok := context.Get(c.GetInputParam()).(*cloud.MediaObject)
	return ok && media != nil && media.SignedURL != ""
}

func (c *MediaToTempFile) Execute(context cor.Context) {
	ctx := context.GetContext()
	media := context.Get(c.GetInputParam()).(*cloud.MediaObject)

	body, _, err := c.source.OpenMedia(ctx, media.SignedURL)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to open media of %s: %w", media.Filename, err))
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close media body", "filename", media.Filename, "error", err)
		}
	}()

	tempFile, err := os.CreateTemp("", c.tempFilePrefix)
	if err != nil {
		c.Fail(context, fmt.Errorf("could not create temp file: %w", err))
		return
	}
	// Registered before writing so a partial download is still removed.
	context.AddTempFile(tempFile.Name())

	written, err := io.Copy(tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to download %s after %d bytes: %w", media.Filename, written, err))
		return
	}

	media.LocalPath = tempFile.Name()
	media.Size = written
	slog.InfoContext(ctx, "downloaded media", "filename", media.Filename, "path", media.LocalPath, "bytes", written)
	c.Succeed(context, media.LocalPath)
}

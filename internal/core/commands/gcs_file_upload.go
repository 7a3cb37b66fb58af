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

// This file defines a command that uploads a local file into the archive
// bucket.
//
// Logic Flow:
//
//  1. Receives the local path from the previous command.
//  2. Names the object after the video's catalog key under the archive prefix,
//     so re-archiving a video overwrites the earlier copy.
//  3. Streams the file into a storage.Writer. The upload is only committed
//     when the writer closes, so the close error is the upload's result.
//  4. Outputs the *cloud.GCSObject that was written.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

// GCSFileUpload copies a local file to Cloud Storage.
type GCSFileUpload struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSFileUpload creates the command.
//
// Inputs:
//   - name: The command name.
//   - client: An initialized Cloud Storage client.
//   - bucket: The archive bucket.
//   - prefix: Object name prefix, e.g. "archive/".
//
// Outputs:
//   - *GCSFileUpload: The command.
func NewGCSFileUpload(name string, client *storage.Client, bucket, prefix string) *GCSFileUpload {
	return &GCSFileUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket, prefix: prefix}
}

func (c *GCSFileUpload) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) || c.client == nil || c.bucket == "" {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).(string)
	return ok
}

func (c *GCSFileUpload) Execute(context cor.Context) {
	ctx := context.GetContext()
	path := context.Get(c.GetInputParam()).(string)

	name := filepath.Base(path)
	mimeType := "application/octet-stream"
	if media, ok := context.Get(cloud.GetMediaObjectName()).(*cloud.MediaObject); ok {
		name = media.Filename
		if media.MIMEType != "" {
			mimeType = media.MIMEType
		}
	}
	object := cloud.GCSObject{Bucket: c.bucket, Name: cloud.ArchiveObjectName(c.prefix, name), MIMEType: mimeType}

	dat, err := os.Open(path)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to open file %s: %w", path, err))
		return
	}
	defer dat.Close()

	writer := c.client.Bucket(object.Bucket).Object(object.Name).NewWriter(ctx)
	writer.ContentType = mimeType

	written, err := io.Copy(writer, dat)
	if err != nil {
		_ = writer.Close()
		c.Fail(context, fmt.Errorf("failed to upload %s after %d bytes: %w", object.URI(), written, err))
		return
	}
	if err := writer.Close(); err != nil {
		c.Fail(context, fmt.Errorf("failed to finalize %s: %w", object.URI(), err))
		return
	}

	object.Size = written
	slog.InfoContext(ctx, "archived media", "object", object.URI(), "bytes", written)
	c.Succeed(context, &object)
}

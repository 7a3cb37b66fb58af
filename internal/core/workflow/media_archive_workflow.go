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

// This file implements the media archive workflow, which copies a video from
// the backend's media store into the archive bucket:
//
//  1. Resolve the signed URL.
//  2. Download it to a temporary file.
//  3. Check that the bytes are a video.
//  4. Upload the file to Cloud Storage.
//
// The temporary file is removed when the run's context closes.
package workflow

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

// MediaArchiveWorkflow archives one video per run.
type MediaArchiveWorkflow struct {
	cor.BaseCommand
	source        commands.MediaSource
	storageClient *storage.Client
	storage       cloud.Storage
	chain         cor.Chain
}

// NewMediaArchiveWorkflow builds the archive chain. When the chain is built
// with a nil storage client, every run fails at the upload step.
//
// Inputs:
//   - config: The loaded configuration; its [storage] section names the bucket.
//   - source: Backend media access.
//   - storageClient: Cloud Storage client for the archive bucket.
//
// Outputs:
//   - *MediaArchiveWorkflow: The workflow, ready to Run.
func NewMediaArchiveWorkflow(config *cloud.Config, source commands.MediaSource, storageClient *storage.Client) *MediaArchiveWorkflow {
	out := &MediaArchiveWorkflow{
		BaseCommand:   *cor.NewBaseCommand("media-archive-workflow"),
		source:        source,
		storageClient: storageClient,
		storage:       config.Storage,
	}
	out.initializeChain()
	return out
}

func (w *MediaArchiveWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewMediaURLResolver("media-url-resolver", w.source))
	out.AddCommand(commands.NewMediaToTempFile("media-to-temp-file", w.source, w.storage.TempFilePrefix))
	out.AddCommand(commands.NewMediaTypeCheck("media-type-check"))
	out.AddCommand(commands.NewGCSFileUpload("gcs-file-upload", w.storageClient, w.storage.ArchiveBucket, w.storage.ArchivePrefix))
	w.chain = out
}

func (w *MediaArchiveWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

func (w *MediaArchiveWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Run archives filename and returns the object that was written.
func (w *MediaArchiveWorkflow) Run(ctx context.Context, filename string) (*cloud.GCSObject, error) {
	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, &cloud.MediaObject{Filename: filename})

	w.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		return nil, err
	}

	object, ok := chCtx.Get(cor.CtxIn).(*cloud.GCSObject)
	if !ok {
		return nil, fmt.Errorf("%s produced no archive object for %s", w.GetName(), filename)
	}
	return object, nil
}

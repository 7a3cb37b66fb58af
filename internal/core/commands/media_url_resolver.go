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

// This file defines MediaURLResolver, the entry step of a media archive run.
// It receives the *cloud.MediaObject naming the video, asks the backend for a
// signed URL, and publishes the object under GetMediaObjectName so that later
// commands can enrich it.
package commands

import (
	"fmt"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

// MediaURLResolver fills MediaObject.SignedURL.
type MediaURLResolver struct {
	cor.BaseCommand
	source MediaSource
}

func NewMediaURLResolver(name string, source MediaSource) *MediaURLResolver {
	return &MediaURLResolver{BaseCommand: *cor.NewBaseCommand(name), source: source}
}

func (c *MediaURLResolver) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	media, ok := context.Get(c.GetInputParam()).(*cloud.MediaObject)
	return ok && media != nil && media.Filename != ""
}

func (c *MediaURLResolver) Execute(context cor.Context) {
	media := context.Get(c.GetInputParam()).(*cloud.MediaObject)

	signedURL, err := c.source.MediaURL(context.GetContext(), media.Filename)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to resolve media url of %s: %w", media.Filename, err))
		return
	}
	media.SignedURL = signedURL

	context.Add(cloud.GetMediaObjectName(), media)
	c.Succeed(context, media)
}

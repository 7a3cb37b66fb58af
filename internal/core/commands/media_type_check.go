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

package commands

import (
	"fmt"

	"github.com/h2non/filetype"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/cloud"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// MediaTypeCheck sniffs a downloaded file's magic bytes and rejects anything
// that is not a video. The input path is passed through unchanged.
type MediaTypeCheck struct {
	cor.BaseCommand
}

func NewMediaTypeCheck(name string) *MediaTypeCheck {
	return &MediaTypeCheck{BaseCommand: *cor.NewBaseCommand(name)}
}

func (c *MediaTypeCheck) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).(string)
	return ok
}

func (c *MediaTypeCheck) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)

	kind, err := filetype.MatchFile(path)
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to inspect %s: %w", path, err))
		return
	}
	if kind == filetype.Unknown || kind.MIME.Type != "video" {
		c.Fail(context, fmt.Errorf("%w: downloaded media is %q, not a video", model.ErrValidation, kind.MIME.Value))
		return
	}

	if media, ok := context.Get(cloud.GetMediaObjectName()).(*cloud.MediaObject); ok {
		media.MIMEType = kind.MIME.Value
		media.Extension = kind.Extension
	}
	c.Succeed(context, path)
}

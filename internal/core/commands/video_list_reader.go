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

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

// VideoListReader is the first step of a catalog refresh. It takes a
// RefreshRequest as input and outputs the backend's []model.VideoRecord.
type VideoListReader struct {
	cor.BaseCommand
	lister VideoLister
}

// NewVideoListReader creates the command.
//
// Inputs:
//   - name: The command name used for spans and counters.
//   - lister: The backend listing source.
//
// Outputs:
//   - *VideoListReader: The command.
func NewVideoListReader(name string, lister VideoLister) *VideoListReader {
	return &VideoListReader{BaseCommand: *cor.NewBaseCommand(name), lister: lister}
}

// IsExecutable requires a RefreshRequest as input.
func (c *VideoListReader) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).(RefreshRequest)
	return ok
}

// Execute fetches the listing. A failure here aborts the refresh.
func (c *VideoListReader) Execute(context cor.Context) {
	records, err := c.lister.ListVideos(context.GetContext())
	if err != nil {
		c.Fail(context, fmt.Errorf("failed to list videos: %w", err))
		return
	}
	c.Succeed(context, records)
}

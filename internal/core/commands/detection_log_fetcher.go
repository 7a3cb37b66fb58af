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

// This file defines DetectionLogFetcher, the fan-out step of a catalog
// refresh.
//
// Logic Flow:
//
//  1. Receives []model.VideoRecord from the previous command.
//  2. Records whose listing already embeds the log are decoded in place.
//  3. The remaining logs are fetched from the backend on a bounded pool of
//     goroutines (errgroup with SetLimit).
//  4. A failed fetch is attached to its record and counted, but does not fail
//     the command: a missing log must never hide a video from the catalog.
//  5. Outputs []FetchedRecord in the same order as the input.
package commands

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/model"
)

// DetectionLogFetcher resolves the detection log of every record.
type DetectionLogFetcher struct {
	cor.BaseCommand
	fetcher  LogFetcher
	poolSize int
}

// NewDetectionLogFetcher creates the command. A poolSize below one runs the
// fetches sequentially.
func NewDetectionLogFetcher(name string, fetcher LogFetcher, poolSize int) *DetectionLogFetcher {
	if poolSize < 1 {
		poolSize = 1
	}
	return &DetectionLogFetcher{BaseCommand: *cor.NewBaseCommand(name), fetcher: fetcher, poolSize: poolSize}
}

func (c *DetectionLogFetcher) IsExecutable(context cor.Context) bool {
	if !c.BaseCommand.IsExecutable(context) {
		return false
	}
	_, ok := context.Get(c.GetInputParam()).([]model.VideoRecord)
	return ok
}

func (c *DetectionLogFetcher) Execute(context cor.Context) {
	ctx := context.GetContext()
	records := context.Get(c.GetInputParam()).([]model.VideoRecord)
	results := make([]FetchedRecord, len(records))

	var g errgroup.Group
	g.SetLimit(c.poolSize)
	for i, record := range records {
		g.Go(func() error {
			results[i] = c.fetch(context, record)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.WarnContext(ctx, "detection log unavailable", "filename", r.Record.Filename, "error", r.Err)
		}
	}
	if failed > 0 && c.ErrorCounter != nil {
		c.ErrorCounter.Add(ctx, int64(failed))
	}
	c.Succeed(context, results)
}

func (c *DetectionLogFetcher) fetch(context cor.Context, record model.VideoRecord) FetchedRecord {
	if record.HasInlineLogs() {
		log, err := model.ParseDetectionLog(record.Logs)
		if err != nil {
			return FetchedRecord{Record: record, Err: fmt.Errorf("inline logs of %s: %w", record.Filename, err)}
		}
		return FetchedRecord{Record: record, Log: log}
	}
	log, err := c.fetcher.GetLogs(context.GetContext(), record.Filename)
	if err != nil {
		return FetchedRecord{Record: record, Err: err}
	}
	return FetchedRecord{Record: record, Log: log}
}

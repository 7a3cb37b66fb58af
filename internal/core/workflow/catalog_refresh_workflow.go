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

// Package workflow assembles commands into the chains that back the
// service's multi-step operations. This file implements the catalog refresh:
// list the videos, resolve every detection log, then summarise each video.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-detection-timeline/internal/core/cor"
)

// CatalogRefreshWorkflow rebuilds the catalog from the backend.
type CatalogRefreshWorkflow struct {
	cor.BaseCommand
	lister   commands.VideoLister
	fetcher  commands.LogFetcher
	poolSize int
	chain    cor.Chain
}

// NewCatalogRefreshWorkflow builds the refresh chain.
//
// Inputs:
//   - lister: Source of the video listing.
//   - fetcher: Source of per-video detection logs.
//   - poolSize: Maximum concurrent log fetches.
//
// Outputs:
//   - *CatalogRefreshWorkflow: The workflow, ready to Run.
func NewCatalogRefreshWorkflow(lister commands.VideoLister, fetcher commands.LogFetcher, poolSize int) *CatalogRefreshWorkflow {
	out := &CatalogRefreshWorkflow{
		BaseCommand: *cor.NewBaseCommand("catalog-refresh-workflow"),
		lister:      lister,
		fetcher:     fetcher,
		poolSize:    poolSize,
	}
	out.initializeChain()
	return out
}

func (w *CatalogRefreshWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	out.AddCommand(commands.NewVideoListReader("video-list-reader", w.lister))
	out.AddCommand(commands.NewDetectionLogFetcher("detection-log-fetcher", w.fetcher, w.poolSize))
	out.AddCommand(commands.NewVideoSummarizer("video-summarizer"))
	w.chain = out
}

// IsExecutable accepts the same inputs as the chain's first command.
func (w *CatalogRefreshWorkflow) IsExecutable(context cor.Context) bool {
	return w.chain.IsExecutable(context)
}

// Execute runs the chain against an existing context.
func (w *CatalogRefreshWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Run executes a refresh and returns its snapshot.
func (w *CatalogRefreshWorkflow) Run(ctx context.Context) (*commands.CatalogSnapshot, error) {
	chCtx := cor.NewBaseContext()
	defer chCtx.Close()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, commands.RefreshRequest{RequestedAt: time.Now()})

	w.Execute(chCtx)
	if err := chCtx.Err(); err != nil {
		return nil, err
	}

	snapshot, ok := chCtx.Get(cor.CtxIn).(*commands.CatalogSnapshot)
	if !ok {
		return nil, fmt.Errorf("%s produced no catalog snapshot", w.GetName())
	}
	return snapshot, nil
}

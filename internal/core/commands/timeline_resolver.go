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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// first command of the render pipeline: resolving every referenced asset.
//
// Logic Flow:
// Rendering is all-or-nothing, so this command front-loads every fetch: it
// lays the timeline out on the absolute time axis, then materializes every
// clip, image, music, and effect reference into the job's scratch
// directory. The first unresolvable reference fails the job before a
// single frame is rendered, which keeps failed renders cheap and leaves no
// half-composed output behind.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/compose"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// RenderAssets is the pipeline state shared by the render commands: the
// resolved plan plus the local paths of everything the render touches.
type RenderAssets struct {
	Request *model.RenderRequest
	Plan    *compose.Plan
	WorkDir string

	// ItemPaths holds the local media path per placement; text items have
	// no source media and carry an empty entry.
	ItemPaths     []string
	BgmPath       string
	EffectPaths   []string
	EffectOffsets []float64

	// SegmentPaths and FinalPath are filled by the later render stages.
	SegmentPaths []string
	FinalPath    string
}

// TimelineResolver validates the timeline and fetches every referenced
// asset to local disk.
type TimelineResolver struct {
	cor.BaseCommand
	store services.ObjectStore
}

// NewTimelineResolver is the constructor for the TimelineResolver command.
func NewTimelineResolver(name string, store services.ObjectStore) *TimelineResolver {
	return &TimelineResolver{BaseCommand: *cor.NewBaseCommand(name), store: store}
}

// Execute resolves the full timeline or fails the job.
func (c *TimelineResolver) Execute(context cor.Context) {
	started := time.Now()
	req := context.Get(c.GetInputParam()).(*model.RenderRequest)

	workDir, err := os.MkdirTemp("", "clip-render-")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create scratch directory: %w", err))
		return
	}
	context.AddTempFile(workDir)

	plan := compose.Layout(req.Items)
	assets := &RenderAssets{Request: req, Plan: plan, WorkDir: workDir}

	for i, p := range plan.Placements {
		if p.Item.Kind == model.TimelineItemText {
			assets.ItemPaths = append(assets.ItemPaths, "")
			continue
		}
		local, err := c.store.Fetch(context.GetContext(), p.Item.Ref, workDir)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("timeline item %d: failed to resolve %s: %w", i, p.Item.Ref, err))
			return
		}
		assets.ItemPaths = append(assets.ItemPaths, local)
	}

	if len(req.BgmFilename) > 0 {
		local, err := c.store.Fetch(context.GetContext(), req.BgmFilename, workDir)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("failed to resolve background music %s: %w", req.BgmFilename, err))
			return
		}
		assets.BgmPath = local
	}

	for _, fx := range req.Effects {
		start, _, ok := compose.ClampAudioWindow(fx.StartOffset, fx.Duration, plan.Total)
		if !ok {
			// An effect positioned entirely outside the program is dropped,
			// not fatal.
			slog.Warn("sound effect outside program bounds, skipping",
				"label", fx.Label, "start_offset", fx.StartOffset, "total", plan.Total)
			continue
		}
		local, err := c.store.Fetch(context.GetContext(), fx.Ref, workDir)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("failed to resolve sound effect %s: %w", fx.Ref, err))
			return
		}
		assets.EffectPaths = append(assets.EffectPaths, local)
		assets.EffectOffsets = append(assets.EffectOffsets, start)
	}

	slog.Info("timeline resolved",
		"items", len(plan.Placements),
		"total_seconds", plan.Total,
		"bgm_regions", len(plan.BgmRegions),
		"effects", len(assets.EffectPaths))

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(c.GetOutputParam(), assets)
}

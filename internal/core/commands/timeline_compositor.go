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
// command that composites the rendered segments into the final video.
//
// Logic Flow:
//  1. All segments are concatenated through one filter graph that
//     normalizes geometry, frame rate, and audio sample rate.
//  2. If the request carries background music, it is looped under the
//     whole program, audible at full volume over the derived still regions
//     and ducked elsewhere.
//  3. Sound effects are overlaid at their clamped offsets and mixed with
//     the program audio.
//
// Each step writes a new intermediate in the scratch directory; the last
// one standing becomes the final local output.
package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
)

// TimelineCompositor concatenates the segments and lays in the audio.
type TimelineCompositor struct {
	cor.BaseCommand
	ffmpeg *media.FFmpeg
}

// NewTimelineCompositor is the constructor for the TimelineCompositor command.
func NewTimelineCompositor(name string, ffmpeg *media.FFmpeg) *TimelineCompositor {
	return &TimelineCompositor{BaseCommand: *cor.NewBaseCommand(name), ffmpeg: ffmpeg}
}

// Execute produces the final composited video on local disk.
func (c *TimelineCompositor) Execute(context cor.Context) {
	started := time.Now()
	assets := context.Get(c.GetInputParam()).(*RenderAssets)

	current := filepath.Join(assets.WorkDir, "composited.mp4")
	if err := c.ffmpeg.Concat(context.GetContext(), assets.SegmentPaths, current); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("concatenation failed: %w", err))
		return
	}

	if len(assets.BgmPath) > 0 {
		next := filepath.Join(assets.WorkDir, "with_bgm.mp4")
		err := c.ffmpeg.MixBgm(context.GetContext(), current, assets.BgmPath, assets.Plan.BgmRegions, assets.Request.BgmVolume, next)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("background music mix failed: %w", err))
			return
		}
		current = next
	}

	if len(assets.EffectPaths) > 0 {
		next := filepath.Join(assets.WorkDir, "with_sfx.mp4")
		err := c.ffmpeg.MixEffects(context.GetContext(), current, assets.EffectPaths, assets.EffectOffsets, next)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("sound effect mix failed: %w", err))
			return
		}
		current = next
	}

	slog.Info("timeline composited",
		"segments", len(assets.SegmentPaths),
		"has_bgm", len(assets.BgmPath) > 0,
		"effects", len(assets.EffectPaths))

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	assets.FinalPath = current
	context.Add(c.GetOutputParam(), assets)
}

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
// final render command: publishing the composited video and assembling
// the render result payload.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// RenderPublisher uploads the final video and emits the RenderResult.
type RenderPublisher struct {
	cor.BaseCommand
	ffmpeg *media.FFmpeg
	store  services.ObjectStore
}

// NewRenderPublisher is the constructor for the RenderPublisher command.
func NewRenderPublisher(name string, ffmpeg *media.FFmpeg, store services.ObjectStore) *RenderPublisher {
	return &RenderPublisher{BaseCommand: *cor.NewBaseCommand(name), ffmpeg: ffmpeg, store: store}
}

// Execute publishes the final video and builds the result payload.
func (c *RenderPublisher) Execute(context cor.Context) {
	started := time.Now()
	assets := context.Get(c.GetInputParam()).(*RenderAssets)
	jobId, _ := context.Get(jobs.GetJobIdParameterName()).(string)

	project := assets.Request.ProjectName
	if len(project) == 0 {
		project = "timeline"
	}
	filename := fmt.Sprintf("%s_%s_final.mp4", project, shortId(jobId))

	info, err := os.Stat(assets.FinalPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("final output missing: %w", err))
		return
	}

	duration, err := c.ffmpeg.ProbeDuration(context.GetContext(), assets.FinalPath)
	if err != nil {
		// The composited file exists and plays; a probe failure should not
		// void the render. Fall back to the planned duration.
		slog.Warn("could not probe final output, using planned duration", "error", err)
		duration = assets.Plan.Total
	}

	url, err := c.store.Put(context.GetContext(), assets.FinalPath, "renders/"+filename)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to publish final output: %w", err))
		return
	}

	slog.Info("render published", "filename", filename, "bytes", info.Size(), "duration", duration)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(c.GetOutputParam(), &model.RenderResult{
		RenderId:   jobId,
		Filename:   filename,
		FileSize:   info.Size(),
		Duration:   duration,
		ClipsCount: assets.Plan.ClipsCount,
		HasBgm:     len(assets.BgmPath) > 0,
		HasSfx:     len(assets.EffectPaths) > 0,
		URL:        url,
	})
}

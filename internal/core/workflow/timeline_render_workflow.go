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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the timeline render workflow: an ordered list of clips, images, and text
// cards in, one composited video out.
package workflow

import (
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// TimelineRenderWorkflow holds the shared dependencies of the render
// pipeline and builds a fresh command chain for each submitted job.
type TimelineRenderWorkflow struct {
	config          *cloud.Config
	store           services.ObjectStore
	ffmpeg          *media.FFmpeg
	numberOfWorkers int
}

// BuildChain assembles the command chain for one render job. Rendering is
// all-or-nothing: any unresolved asset or failed segment fails the job.
func (w *TimelineRenderWorkflow) BuildChain(req *model.RenderRequest) cor.Chain {
	out := cor.NewBaseChain("timeline-render-pipeline")

	// Step 1: Lay the items out on the timeline, derive the background
	// music regions, and fetch every referenced asset up front.
	out.AddCommand(commands.NewTimelineResolver(string(model.StageResolvingTimeline), w.store))

	// Step 2: Render image and text items into concatenation-ready video
	// segments with silent audio. Clip items pass through untouched.
	out.AddCommand(commands.NewSegmentRenderer(
		string(model.StageRenderingSegments), w.ffmpeg, w.numberOfWorkers))

	// Step 3: Concatenate the segments and lay in background music and
	// sound effects.
	out.AddCommand(commands.NewTimelineCompositor(string(model.StageCompositing), w.ffmpeg))

	// Step 4: Publish the final video and emit the render result.
	out.AddCommand(commands.NewRenderPublisher(string(model.StagePublishingOutput), w.ffmpeg, w.store))

	return out
}

// NewTimelineRenderWorkflow is the constructor for the TimelineRenderWorkflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - store: The object store assets resolve from and renders publish to.
//   - ffmpeg: The FFmpeg wrapper shared by all media commands.
//
// Returns:
//   - A pointer to a newly created and fully initialized TimelineRenderWorkflow.
func NewTimelineRenderWorkflow(
	config *cloud.Config,
	store services.ObjectStore,
	ffmpeg *media.FFmpeg) *TimelineRenderWorkflow {

	workers := config.Application.ThreadPoolSize
	if workers <= 0 {
		workers = 2
	}

	return &TimelineRenderWorkflow{
		config:          config,
		store:           store,
		ffmpeg:          ffmpeg,
		numberOfWorkers: workers,
	}
}

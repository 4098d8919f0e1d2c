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

// This file runs the timeline render pipeline end to end: asset
// resolution, segment rendering, compositing, and publication.
package workflow_test

import (
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-clip-pipeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRenderFixture wires a render workflow around the scripted runner and
// a store rooted in a per-test directory.
func newRenderFixture(t *testing.T, runner *pipelineRunner) *workflow.TimelineRenderWorkflow {
	t.Helper()
	store := services.NewLocalStore(t.TempDir(), "")
	return workflow.NewTimelineRenderWorkflow(config, store, newFFmpeg(runner))
}

// TestTimelineRenderProducesFinalVideo drives a mixed timeline (clip,
// image, text card) with background music through the full pipeline.
func TestTimelineRenderProducesFinalVideo(t *testing.T) {
	runner := &pipelineRunner{duration: "12.000000"}
	renderWorkflow := newRenderFixture(t, runner)

	assets := t.TempDir()
	clipPath := test.WriteTestVideo(t, assets, "winner.mp4")
	imagePath := writeTextFile(t, assets, "title-card.png", "png bytes")
	bgmPath := writeTextFile(t, assets, "theme.mp3", "mp3 bytes")

	req := &model.RenderRequest{
		ProjectName: "launch-teaser",
		BgmFilename: bgmPath,
		BgmVolume:   0.4,
		Items: []*model.TimelineItem{
			{Kind: model.TimelineItemClip, Ref: clipPath, Duration: 5},
			{Kind: model.TimelineItemImage, Ref: imagePath, Duration: 4},
			{Kind: model.TimelineItemText, Text: "Coming this fall", Duration: 3},
		},
	}

	chainCtx := newChainContext(t, "job-render-1", req)
	renderWorkflow.BuildChain(req).Execute(chainCtx)

	require.False(t, chainCtx.HasErrors(), "pipeline errors: %v", chainCtx.GetErrors())
	result, ok := chainCtx.Get(cor.CtxOut).(*model.RenderResult)
	require.True(t, ok, "pipeline should emit a render result")

	assert.Equal(t, "job-render-1", result.RenderId)
	assert.True(t, strings.HasPrefix(result.Filename, "launch-teaser_"))
	assert.Equal(t, 12.0, result.Duration)
	assert.Equal(t, 1, result.ClipsCount)
	assert.True(t, result.HasBgm)
	assert.False(t, result.HasSfx)
	assert.Greater(t, result.FileSize, int64(0))
	assert.NotEmpty(t, result.URL)
}

// TestTimelineRenderFailsOnUnresolvableAsset verifies the all-or-nothing
// contract: one missing reference fails the job during resolution, before
// any rendering happens.
func TestTimelineRenderFailsOnUnresolvableAsset(t *testing.T) {
	runner := &pipelineRunner{duration: "12.000000"}
	renderWorkflow := newRenderFixture(t, runner)

	clipPath := test.WriteTestVideo(t, t.TempDir(), "opener.mp4")
	req := &model.RenderRequest{
		Items: []*model.TimelineItem{
			{Kind: model.TimelineItemClip, Ref: clipPath, Duration: 5},
			{Kind: model.TimelineItemImage, Ref: "/no/such/card.png", Duration: 3},
		},
	}

	chainCtx := newChainContext(t, "job-render-2", req)
	renderWorkflow.BuildChain(req).Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	err, ok := chainCtx.GetErrors()[string(model.StageResolvingTimeline)]
	require.True(t, ok, "the resolver stage should own the error")
	assert.Contains(t, err.Error(), "/no/such/card.png")
	assert.Nil(t, chainCtx.Get(cor.CtxOut), "a failed render must not emit a result")
}

// TestTimelineRenderFailsOnSegmentError verifies that a failed still
// render fails the whole job rather than skipping the segment.
func TestTimelineRenderFailsOnSegmentError(t *testing.T) {
	runner := &pipelineRunner{duration: "12.000000", failPattern: "segment_1.mp4"}
	renderWorkflow := newRenderFixture(t, runner)

	assets := t.TempDir()
	clipPath := test.WriteTestVideo(t, assets, "opener.mp4")
	imagePath := writeTextFile(t, assets, "card.png", "png bytes")
	req := &model.RenderRequest{
		Items: []*model.TimelineItem{
			{Kind: model.TimelineItemClip, Ref: clipPath, Duration: 5},
			{Kind: model.TimelineItemImage, Ref: imagePath, Duration: 3},
		},
	}

	chainCtx := newChainContext(t, "job-render-3", req)
	renderWorkflow.BuildChain(req).Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	_, ok := chainCtx.GetErrors()[string(model.StageRenderingSegments)]
	assert.True(t, ok, "the segment stage should own the error")
}

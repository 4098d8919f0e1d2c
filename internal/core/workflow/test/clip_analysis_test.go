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

// This file runs the clip analysis pipeline end to end: source fetch,
// transcription, chunking, scoring, extraction, and publication, all
// against the scripted runner and a filesystem store.
package workflow_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-clip-pipeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAnalysisFixture wires an analysis workflow around the scripted runner
// and a store rooted in a per-test directory.
func newAnalysisFixture(t *testing.T, runner *pipelineRunner) (*workflow.ClipAnalysisWorkflow, *services.LocalStore) {
	t.Helper()
	store := services.NewLocalStore(t.TempDir(), "")
	ffmpeg := newFFmpeg(runner)
	whisper := newWhisper(runner)
	return workflow.NewClipAnalysisWorkflow(config, nil, store, ffmpeg, whisper, nil, ""), store
}

// TestClipAnalysisPipelineProducesRankedClips drives a full analysis job
// from a local source video to published, ranked clips.
func TestClipAnalysisPipelineProducesRankedClips(t *testing.T) {
	runner := &pipelineRunner{
		whisperJSON: transcriptWhisperJSON(t, test.GetTestTranscript()),
		duration:    "24.000000",
	}
	analysisWorkflow, _ := newAnalysisFixture(t, runner)

	source := test.WriteTestVideo(t, t.TempDir(), "trailer.mp4")
	req := &model.ProcessRequest{
		VideoURL:            source,
		ChunkStrategy:       model.ChunkStrategyFixed,
		IncludeVibeAnalysis: true,
		ProjectContext:      model.ProjectContext{Vibe: "Happy", AgeGroup: "general"},
	}

	chainCtx := newChainContext(t, "job-analysis-1", req)
	analysisWorkflow.BuildChain(req).Execute(chainCtx)

	require.False(t, chainCtx.HasErrors(), "pipeline errors: %v", chainCtx.GetErrors())
	result, ok := chainCtx.Get(cor.CtxOut).(*model.AnalysisResult)
	require.True(t, ok, "pipeline should emit an analysis result")
	require.NotNil(t, result.VibeAnalysis)
	require.NotEmpty(t, result.VibeAnalysis.TopClips)

	for i, clip := range result.VibeAnalysis.TopClips {
		assert.Equal(t, i+1, clip.Rank)
		assert.NotEmpty(t, clip.ClipRef, "clip %d must be published", clip.Rank)
		assert.NotEmpty(t, clip.ThumbnailRef, "clip %d needs a thumbnail", clip.Rank)
		assert.Greater(t, clip.Scores.Overall, 30.0)
		assert.Equal(t, "Happy", clip.Vibe)
	}
	require.NotNil(t, result.Performance)
	assert.Greater(t, len(result.Performance.StageSeconds), 3)
}

// TestClipAnalysisIsolatesSingleClipFailure verifies that one failed cut is
// recorded as a clip failure while its siblings are still produced.
func TestClipAnalysisIsolatesSingleClipFailure(t *testing.T) {
	runner := &pipelineRunner{
		whisperJSON: transcriptWhisperJSON(t, test.GetTestTranscript()),
		duration:    "24.000000",
		failPattern: "clip_2.mp4",
	}
	analysisWorkflow, _ := newAnalysisFixture(t, runner)

	source := test.WriteTestVideo(t, t.TempDir(), "trailer.mp4")
	req := &model.ProcessRequest{
		VideoURL:            source,
		IncludeVibeAnalysis: true,
		ProjectContext:      model.ProjectContext{Vibe: "Happy", AgeGroup: "general"},
	}

	chainCtx := newChainContext(t, "job-analysis-2", req)
	analysisWorkflow.BuildChain(req).Execute(chainCtx)

	require.False(t, chainCtx.HasErrors(), "one bad clip must not fail the job: %v", chainCtx.GetErrors())
	result := chainCtx.Get(cor.CtxOut).(*model.AnalysisResult)
	require.NotEmpty(t, result.VibeAnalysis.TopClips)
	for _, clip := range result.VibeAnalysis.TopClips {
		assert.NotEqual(t, 2, clip.Rank, "the failed candidate must be dropped")
	}

	failures, ok := chainCtx.Get(jobs.GetClipFailuresParameterName()).([]*model.ClipFailure)
	require.True(t, ok, "the isolated failure must be recorded")
	require.Len(t, failures, 1)
	assert.Equal(t, 2, failures[0].Rank)
	assert.Contains(t, failures[0].Reason, "scripted failure")
}

// TestClipAnalysisSkipsScoringWhenDisabled verifies the fallback path: with
// vibe analysis opted out, the pipeline still produces evenly spaced clips.
func TestClipAnalysisSkipsScoringWhenDisabled(t *testing.T) {
	runner := &pipelineRunner{
		whisperJSON: transcriptWhisperJSON(t, test.GetTestTranscript()),
		duration:    "24.000000",
	}
	analysisWorkflow, _ := newAnalysisFixture(t, runner)

	source := test.WriteTestVideo(t, t.TempDir(), "trailer.mp4")
	req := &model.ProcessRequest{
		VideoURL:            source,
		IncludeVibeAnalysis: false,
		ProjectContext:      model.ProjectContext{Vibe: "Fun", TargetDuration: 6},
	}

	chainCtx := newChainContext(t, "job-analysis-3", req)
	analysisWorkflow.BuildChain(req).Execute(chainCtx)

	require.False(t, chainCtx.HasErrors(), "pipeline errors: %v", chainCtx.GetErrors())
	result := chainCtx.Get(cor.CtxOut).(*model.AnalysisResult)
	require.NotEmpty(t, result.VibeAnalysis.TopClips)
	for _, clip := range result.VibeAnalysis.TopClips {
		assert.Equal(t, 50.0, clip.Scores.Overall)
		assert.NotEmpty(t, clip.ClipRef)
	}
}

// TestClipAnalysisRejectsNonVideoSource verifies the type sniff fails the
// job before transcription starts.
func TestClipAnalysisRejectsNonVideoSource(t *testing.T) {
	runner := &pipelineRunner{duration: "24.000000"}
	analysisWorkflow, _ := newAnalysisFixture(t, runner)

	dir := t.TempDir()
	source := writeTextFile(t, dir, "notes.txt", "this is not a video")
	req := &model.ProcessRequest{VideoURL: source, IncludeVibeAnalysis: true}

	chainCtx := newChainContext(t, "job-analysis-4", req)
	analysisWorkflow.BuildChain(req).Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	err, ok := chainCtx.GetErrors()[string(model.StageFetchingSource)]
	require.True(t, ok, "the fetch stage should own the error")
	assert.Contains(t, err.Error(), "not video")
}

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
// intermediate state structs the pipeline commands pipe to one another and
// the well-known context parameter names shared across commands.
package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// GetProcessRequestParameterName returns the context key under which the
// fetch command stores the originating analysis request, so late commands
// (persistence) can reach it without threading it through every bundle.
func GetProcessRequestParameterName() string {
	return "__process_request__"
}

// GetStageSecondsParameterName returns the context key for the per-stage
// wall-clock timing map folded into the final performance report.
func GetStageSecondsParameterName() string {
	return "__stage_seconds__"
}

// SourceMedia is the fetch stage's output: the source video materialized
// on local disk, with its scratch directory for downstream artifacts.
type SourceMedia struct {
	Request   *model.ProcessRequest
	LocalPath string
	MIMEType  string
	Duration  float64
	WorkDir   string
}

// TranscriptBundle is the transcription stage's output.
type TranscriptBundle struct {
	Source     *SourceMedia
	Transcript *model.Transcript
}

// WindowBundle is the chunking stage's output.
type WindowBundle struct {
	Source     *SourceMedia
	Transcript *model.Transcript
	Windows    []*model.ChunkWindow
}

// CandidateBundle is the analysis stage's output: the ranked clip
// candidates awaiting physical extraction.
type CandidateBundle struct {
	Source     *SourceMedia
	Candidates []*model.CandidateClip
}

// recordStageSeconds accumulates a stage's elapsed wall-clock time in the
// shared timing map. Commands run sequentially within a chain, so plain
// map access is safe here.
func recordStageSeconds(context cor.Context, stage string, seconds float64) {
	timings, ok := context.Get(GetStageSecondsParameterName()).(map[string]float64)
	if !ok {
		timings = make(map[string]float64)
		context.Add(GetStageSecondsParameterName(), timings)
	}
	timings[stage] = math.Round(seconds*100) / 100
}

// stageSeconds returns the accumulated timing map, which may be nil early
// in the chain.
func stageSeconds(context cor.Context) map[string]float64 {
	timings, _ := context.Get(GetStageSecondsParameterName()).(map[string]float64)
	return timings
}

// shortId returns the first eight characters of an id for use in artifact
// filenames.
func shortId(id string) string {
	clean := strings.ReplaceAll(id, "-", "")
	if len(clean) > 8 {
		return clean[:8]
	}
	return clean
}

// clipObjectName builds the published object name for an extracted clip.
func clipObjectName(rank int, id string, start float64, end float64) string {
	return fmt.Sprintf("clips/clip_%d_%s_%ds-%ds.mp4", rank, shortId(id), int(start), int(end))
}

// thumbObjectName builds the published object name for a clip thumbnail.
func thumbObjectName(rank int, id string, start float64) string {
	return fmt.Sprintf("thumbnails/thumb_%d_%s_%ds.jpg", rank, shortId(id), int(start))
}

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

// Package model defines the core data structures for the application.
// This file holds the scoring and clip candidate types produced by the vibe
// analysis stage and consumed by the clip extractor and the API surface.
package model

// WindowScore is the raw scoring output for one chunk window, either from
// the generative model or from the deterministic heuristic scorer. All
// sub-scores are in [0, 100].
type WindowScore struct {
	VibeMatch     float64 `json:"vibe_match"`
	AgeGroupMatch float64 `json:"age_group_match"`
	ClipPotential float64 `json:"clip_potential"`
	Reason        string  `json:"reason,omitempty"`
}

// ClipScores is the full score block attached to a ranked candidate,
// including the combined overall score.
type ClipScores struct {
	VibeMatch     float64 `json:"vibe_match"`
	AgeGroupMatch float64 `json:"age_group_match"`
	ClipPotential float64 `json:"clip_potential"`
	Overall       float64 `json:"overall"`
}

// CandidateClip is one ranked clip candidate. Rank is a dense 1-based
// ordering by Overall descending with ties broken by earlier start time.
// Candidates are immutable once emitted by the analysis stage; the clip
// extractor only fills in the artifact references.
type CandidateClip struct {
	Rank         int        `json:"rank"`
	StartTime    float64    `json:"start_time"`
	EndTime      float64    `json:"end_time"`
	Duration     float64    `json:"duration"`
	Title        string     `json:"title"`
	Vibe         string     `json:"vibe"`
	Scores       ClipScores `json:"scores"`
	Reason       string     `json:"reason,omitempty"`
	ThumbnailRef string     `json:"thumbnail_ref,omitempty"`
	ClipRef      string     `json:"clip_ref,omitempty"`
}

// VibeAnalysis is the analysis sub-document of the job result.
type VibeAnalysis struct {
	TopClips []*CandidateClip `json:"top_clips"`
}

// PerformanceReport captures coarse per-stage wall-clock timings for the
// completed job, keyed by stage identifier.
type PerformanceReport struct {
	TotalSeconds float64            `json:"total_seconds"`
	StageSeconds map[string]float64 `json:"stage_seconds,omitempty"`
}

// AnalysisResult is the final payload of an analysis job.
type AnalysisResult struct {
	VibeAnalysis *VibeAnalysis      `json:"vibe_analysis"`
	FailedClips  []*ClipFailure     `json:"failed_clips,omitempty"`
	Performance  *PerformanceReport `json:"performance,omitempty"`
}

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
// This file holds the submission payloads accepted by the orchestrator and
// the fixed scoring vocabularies exposed through the config endpoints.
package model

// Vibes is the set of target moods a client may score against.
var Vibes = []string{
	"Happy", "Dramatic", "intense", "Fun", "Inspiring",
	"Mysterious", "Emotional", "cool", "musical",
}

// AgeGroups is the set of audience bands a client may score against.
var AgeGroups = []string{
	"kids", "teens", "young-adults", "adults", "seniors", "general",
}

// ChunkStrategy selects how the chunking engine derives candidate windows.
type ChunkStrategy string

const (
	ChunkStrategyFixed    ChunkStrategy = "fixed"
	ChunkStrategyAdaptive ChunkStrategy = "adaptive"
)

// ProjectContext carries the creative targets an analysis job scores
// against.
type ProjectContext struct {
	Vibe           string  `json:"vibe"`
	AgeGroup       string  `json:"age_group"`
	TargetDuration float64 `json:"target_duration,omitempty"`
}

// ProcessRequest is the submission payload for an analysis job.
type ProcessRequest struct {
	VideoURL            string         `json:"video_url"`
	ChunkStrategy       ChunkStrategy  `json:"chunk_strategy,omitempty"`
	IncludeVibeAnalysis bool           `json:"include_vibe_analysis"`
	FastMode            bool           `json:"fast_mode"`
	ProjectContext      ProjectContext `json:"project_context"`
}

// RenderRequest is the submission payload for a render job.
type RenderRequest struct {
	Items       []*TimelineItem `json:"timeline_clips"`
	ProjectName string          `json:"project_name"`
	BgmFilename string          `json:"bgm_filename,omitempty"`
	BgmVolume   float64         `json:"bgm_volume,omitempty"`
	Effects     []*AudioItem    `json:"sfx_list,omitempty"`
}

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
// This file defines the asynchronous Job and its lifecycle vocabulary.
//
// A Job is the unit of asynchronous pipeline work. Clients submit a job,
// receive an opaque id, and poll for status until the job reaches a
// terminal state. The job's CurrentStep is an enumerated Stage identifier
// rather than a free-form label, so clients never have to substring-match
// progress strings to figure out which phase is running.
package model

import "time"

// JobKind discriminates the two pipelines the orchestrator runs.
type JobKind string

const (
	// JobKindAnalysis is the fetch -> transcribe -> chunk -> score -> extract pipeline.
	JobKindAnalysis JobKind = "analysis"
	// JobKindRender is the timeline composition pipeline.
	JobKindRender JobKind = "render"
)

// JobStatus is the observable lifecycle state of a job. Transitions only
// move forward: queued -> running -> completed | failed.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Stage identifies a pipeline step. Stage values double as the names of the
// workflow commands that implement them, which is how the chain observer
// maps a running command back to a reportable step.
type Stage string

const (
	// Analysis pipeline stages, in execution order.
	StageFetchingSource  Stage = "fetching_source"
	StageTranscribing    Stage = "transcribing"
	StageChunking        Stage = "chunking_transcript"
	StageAnalyzingVibe   Stage = "analyzing_vibe"
	StageExtractingClips Stage = "extracting_clips"
	StagePersistingClips Stage = "persisting_clips"

	// Render pipeline stages, in execution order.
	StageResolvingTimeline Stage = "resolving_timeline"
	StageRenderingSegments Stage = "rendering_segments"
	StageCompositing       Stage = "compositing_timeline"
	StagePublishingOutput  Stage = "publishing_output"
)

// stageProgress maps each stage to the fraction of the pipeline considered
// complete when that stage *starts*. Clients use this to drive progress bars.
var stageProgress = map[Stage]float64{
	StageFetchingSource:  0.05,
	StageTranscribing:    0.15,
	StageChunking:        0.45,
	StageAnalyzingVibe:   0.55,
	StageExtractingClips: 0.75,
	StagePersistingClips: 0.95,

	StageResolvingTimeline: 0.05,
	StageRenderingSegments: 0.25,
	StageCompositing:       0.60,
	StagePublishingOutput:  0.90,
}

// Progress returns the fractional completion associated with the start of
// the stage, or zero for an unknown stage.
func (s Stage) Progress() float64 {
	return stageProgress[s]
}

// KnownStage reports whether the given command name is a recognized stage
// identifier. The chain observer uses this to ignore helper commands that
// do not correspond to a client-visible step.
func KnownStage(name string) (Stage, bool) {
	s := Stage(name)
	_, ok := stageProgress[s]
	return s, ok
}

// Job carries the full orchestrator-visible state of one pipeline run.
// The registry hands out copies, never pointers into its own map, so a
// status poll can never observe a half-written update.
type Job struct {
	Id          string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	Status      JobStatus `json:"status"`
	CurrentStep Stage     `json:"current_step,omitempty"`
	Progress    float64   `json:"progress"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Result holds the pipeline's final payload (*AnalysisResult or
	// *RenderResult) once Status is completed. It is omitted from the job
	// listing endpoints; clients fetch it through the result endpoints.
	Result interface{} `json:"-"`

	// FailedClips records isolated per-clip extraction failures. These are
	// job metadata, not job errors: the job still completes.
	FailedClips []*ClipFailure `json:"failed_clips,omitempty"`
}

// ClipFailure describes a single clip extraction that failed while its
// siblings succeeded.
type ClipFailure struct {
	Rank   int     `json:"rank"`
	Start  float64 `json:"start_time"`
	End    float64 `json:"end_time"`
	Reason string  `json:"reason"`
}

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
// the clip analysis workflow: source video in, ranked clip candidates out.
package workflow

import (
	"text/template"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/analysis"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/chunk"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// ClipAnalysisWorkflow holds the shared dependencies of the analysis
// pipeline and builds a fresh command chain for each submitted job.
//
// Unlike a listener-driven workflow, the chain here cannot be a singleton:
// the job orchestrator attaches a per-job observer to report stage
// progress, so every job gets its own chain built from these shared
// dependencies.
type ClipAnalysisWorkflow struct {
	config          *cloud.Config
	store           services.ObjectStore
	ffmpeg          *media.FFmpeg
	whisper         *media.Whisper
	scorer          analysis.Scorer
	clips           *services.ClipService
	numberOfWorkers int
}

// BuildChain assembles the command chain for one analysis job. Each
// command is named by the pipeline stage it implements, which is how the
// orchestrator's observer maps a running command to a client-visible step.
func (w *ClipAnalysisWorkflow) BuildChain(req *model.ProcessRequest) cor.Chain {
	out := cor.NewBaseChain("clip-analysis-pipeline")

	// Step 1: Resolve the source reference (gs://, http, or local path) to a
	// local file, sniff its type, and probe its duration.
	out.AddCommand(commands.NewVideoFetch(string(model.StageFetchingSource), w.store, w.ffmpeg))

	// Step 2: Extract a 16kHz mono track and run speech recognition over it,
	// producing the timed transcript everything downstream works from.
	out.AddCommand(commands.NewTranscribe(string(model.StageTranscribing), w.ffmpeg, w.whisper))

	// Step 3: Derive candidate windows from the transcript using the
	// strategy the request asked for.
	out.AddCommand(commands.NewTranscriptChunker(string(model.StageChunking), chunkOptions(w.config)))

	// Step 4: Score every window against the requested vibe and audience,
	// then rank them. Scoring runs on a worker pool because the generative
	// scorer is network bound.
	out.AddCommand(commands.NewVibeAnalyzer(
		string(model.StageAnalyzingVibe), w.scorer, w.numberOfWorkers, w.config.Pipeline.TopClips))

	// Step 5: Cut, thumbnail, and publish the winning candidates. A single
	// bad candidate is recorded as a clip failure rather than failing the job.
	out.AddCommand(commands.NewClipExtractor(
		string(model.StageExtractingClips), w.ffmpeg, w.store, w.numberOfWorkers))

	// Step 6 (optional): Persist the published clips to the BigQuery
	// warehouse. Local deployments run without a dataset and skip this.
	if w.clips != nil {
		out.AddCommand(commands.NewClipsPersistToBigQuery(string(model.StagePersistingClips), w.clips))
	}

	return out
}

// chunkOptions maps the configured chunking parameters onto the engine's
// options, leaving zero values to the engine's defaults.
func chunkOptions(config *cloud.Config) chunk.Options {
	opts := chunk.DefaultOptions()
	if config.Pipeline.ChunkTargetLength > 0 {
		opts.TargetLength = config.Pipeline.ChunkTargetLength
	}
	if config.Pipeline.ChunkMinLength > 0 {
		opts.MinLength = config.Pipeline.ChunkMinLength
	}
	if config.Pipeline.ChunkMaxLength > 0 {
		opts.MaxLength = config.Pipeline.ChunkMaxLength
	}
	if config.Pipeline.ChunkSilenceGap > 0 {
		opts.SilenceGap = config.Pipeline.ChunkSilenceGap
	}
	return opts
}

// NewClipAnalysisWorkflow is the constructor for the ClipAnalysisWorkflow.
// It selects the scorer implementation from configuration: the generative
// scorer when enabled and an agent model is available, the lexical
// heuristic scorer otherwise.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: Initialized GCP clients; may be nil for local runs.
//   - store: The object store clips and thumbnails publish through.
//   - ffmpeg: The FFmpeg wrapper shared by all media commands.
//   - whisper: The speech recognition wrapper.
//   - clips: The BigQuery clip warehouse service, or nil to skip persistence.
//   - agentModelName: The agent model config key for the generative scorer.
//
// Returns:
//   - A pointer to a newly created and fully initialized ClipAnalysisWorkflow.
func NewClipAnalysisWorkflow(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	store services.ObjectStore,
	ffmpeg *media.FFmpeg,
	whisper *media.Whisper,
	clips *services.ClipService,
	agentModelName string) *ClipAnalysisWorkflow {

	var scorer analysis.Scorer = analysis.NewHeuristicScorer()
	if config.Pipeline.UseGenerativeAI && serviceClients != nil {
		agent, ok := serviceClients.AgentModels[agentModelName]
		if !ok {
			panic("agent model not configured: " + agentModelName)
		}
		// Parse the vibe scoring prompt template from the configuration file.
		scoreTemplate, err := template.New("vibe-score-template").Parse(config.PromptTemplates.VibeScorePrompt)
		if err != nil {
			panic(err) // Panic on failure, as the app cannot run without valid templates.
		}
		scorer = analysis.NewGenAIScorer(agent, scoreTemplate)
	}

	workers := config.Application.ThreadPoolSize
	if workers <= 0 {
		workers = 4
	}

	return &ClipAnalysisWorkflow{
		config:          config,
		store:           store,
		ffmpeg:          ffmpeg,
		whisper:         whisper,
		scorer:          scorer,
		clips:           clips,
		numberOfWorkers: workers,
	}
}

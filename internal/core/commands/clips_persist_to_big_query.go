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
// command that streams the extracted clips into the BigQuery warehouse.
//
// Logic Flow:
// This is the final step of the analysis pipeline. It flattens the ranked
// clips of the finished AnalysisResult into one warehouse row each and
// streams them in through the clip service's Inserter. The analysis result
// passes through unchanged as the pipeline output, so the chain's final
// payload is identical whether or not this command is wired in (local
// deployments run without BigQuery).
package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// ClipsPersistToBigQuery saves the extracted clips as warehouse rows.
type ClipsPersistToBigQuery struct {
	cor.BaseCommand
	clips *services.ClipService
}

// NewClipsPersistToBigQuery is the constructor for the persistence command.
func NewClipsPersistToBigQuery(name string, clips *services.ClipService) *ClipsPersistToBigQuery {
	return &ClipsPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), clips: clips}
}

// Execute streams the clip rows into BigQuery and passes the analysis
// result through.
func (c *ClipsPersistToBigQuery) Execute(context cor.Context) {
	started := time.Now()
	result := context.Get(c.GetInputParam()).(*model.AnalysisResult)
	req, _ := context.Get(GetProcessRequestParameterName()).(*model.ProcessRequest)
	jobId, _ := context.Get(jobs.GetJobIdParameterName()).(string)

	records := make([]*model.ClipRecord, 0, len(result.VibeAnalysis.TopClips))
	now := time.Now().UTC()
	for _, clip := range result.VibeAnalysis.TopClips {
		rec := &model.ClipRecord{
			JobId:         jobId,
			Rank:          clip.Rank,
			Title:         clip.Title,
			Vibe:          clip.Vibe,
			StartTime:     clip.StartTime,
			EndTime:       clip.EndTime,
			Duration:      clip.Duration,
			VibeMatch:     clip.Scores.VibeMatch,
			AgeGroupMatch: clip.Scores.AgeGroupMatch,
			ClipPotential: clip.Scores.ClipPotential,
			Overall:       clip.Scores.Overall,
			ClipURI:       clip.ClipRef,
			ThumbnailURI:  clip.ThumbnailRef,
			CreatedAt:     now,
		}
		if req != nil {
			rec.SourceURL = req.VideoURL
			rec.AgeGroup = req.ProjectContext.AgeGroup
		}
		records = append(records, rec)
	}

	if err := c.clips.Insert(context.GetContext(), records); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to persist clips: %w", err))
		return
	}

	slog.Info("persisted clips to warehouse", "rows", len(records), "job_id", jobId)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(c.GetOutputParam(), result)
}

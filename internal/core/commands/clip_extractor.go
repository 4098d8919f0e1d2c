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
// clip extraction command.
//
// Logic Flow:
// A worker pool cuts the ranked candidates out of the source video. Each
// worker cuts the clip, grabs a thumbnail frame, and publishes both
// through the object store. Failures are isolated per clip: a candidate
// whose cut or publish fails is recorded under the clip-failures context
// key and dropped from the result, while its siblings proceed. The job
// only fails outright when not a single clip could be produced.
package commands

import (
	goctx "context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// ClipExtractor physically cuts the ranked candidates and publishes the
// clip and thumbnail artifacts.
type ClipExtractor struct {
	cor.BaseCommand
	ffmpeg          *media.FFmpeg
	store           services.ObjectStore
	numberOfWorkers int
}

// NewClipExtractor is the constructor for the ClipExtractor command.
func NewClipExtractor(name string, ffmpeg *media.FFmpeg, store services.ObjectStore, numberOfWorkers int) *ClipExtractor {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 2
	}
	return &ClipExtractor{
		BaseCommand:     *cor.NewBaseCommand(name),
		ffmpeg:          ffmpeg,
		store:           store,
		numberOfWorkers: numberOfWorkers,
	}
}

// extractJob is the unit of work handed to an extraction worker.
type extractJob struct {
	candidate *model.CandidateClip
	jobId     string
}

// extractResult carries a worker's outcome back to the aggregator.
type extractResult struct {
	candidate *model.CandidateClip
	failure   *model.ClipFailure
}

// Execute cuts and publishes every candidate clip.
func (c *ClipExtractor) Execute(context cor.Context) {
	started := time.Now()
	bundle := context.Get(c.GetInputParam()).(*CandidateBundle)
	jobId, _ := context.Get(jobs.GetJobIdParameterName()).(string)

	var wg sync.WaitGroup
	work := make(chan *extractJob, len(bundle.Candidates))
	results := make(chan *extractResult, len(bundle.Candidates))

	for w := 0; w < c.numberOfWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range work {
				results <- c.extractOne(context.GetContext(), bundle.Source, j)
			}
		}()
	}

	for _, cand := range bundle.Candidates {
		work <- &extractJob{candidate: cand, jobId: jobId}
	}
	close(work)
	wg.Wait()
	close(results)

	survivors := make([]*model.CandidateClip, 0, len(bundle.Candidates))
	failures := make([]*model.ClipFailure, 0)
	for r := range results {
		if r.failure != nil {
			failures = append(failures, r.failure)
			continue
		}
		survivors = append(survivors, r.candidate)
	}
	// Workers return out of order; restore the ranking.
	sort.Slice(survivors, func(i, j int) bool { return survivors[i].Rank < survivors[j].Rank })

	if len(failures) > 0 {
		context.Add(jobs.GetClipFailuresParameterName(), failures)
	}
	if len(survivors) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("all %d clip extractions failed", len(bundle.Candidates)))
		return
	}

	slog.Info("clip extraction complete",
		"requested", len(bundle.Candidates),
		"produced", len(survivors),
		"failed", len(failures))

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())

	timings := stageSeconds(context)
	total := 0.0
	for _, v := range timings {
		total += v
	}
	context.Add(c.GetOutputParam(), &model.AnalysisResult{
		VibeAnalysis: &model.VibeAnalysis{TopClips: survivors},
		FailedClips:  failures,
		Performance: &model.PerformanceReport{
			TotalSeconds: math.Round(total*100) / 100,
			StageSeconds: timings,
		},
	})
}

// extractOne cuts, thumbnails, and publishes a single candidate. Any error
// becomes an isolated ClipFailure.
func (c *ClipExtractor) extractOne(ctx goctx.Context, source *SourceMedia, j *extractJob) *extractResult {
	cand := j.candidate
	fail := func(err error) *extractResult {
		slog.Warn("clip extraction failed",
			"rank", cand.Rank, "start", cand.StartTime, "end", cand.EndTime, "error", err)
		return &extractResult{failure: &model.ClipFailure{
			Rank:   cand.Rank,
			Start:  cand.StartTime,
			End:    cand.EndTime,
			Reason: err.Error(),
		}}
	}

	clipLocal := filepath.Join(source.WorkDir, fmt.Sprintf("clip_%d.mp4", cand.Rank))
	if err := c.ffmpeg.CutClip(ctx, source.LocalPath, cand.StartTime, cand.Duration, source.Request.FastMode, clipLocal); err != nil {
		return fail(err)
	}

	// The thumbnail frame comes from one second into the clip, clamped for
	// clips shorter than that.
	thumbAt := cand.StartTime + math.Min(1, cand.Duration/2)
	thumbLocal := filepath.Join(source.WorkDir, fmt.Sprintf("thumb_%d.jpg", cand.Rank))
	if err := c.ffmpeg.Thumbnail(ctx, source.LocalPath, thumbAt, thumbLocal); err != nil {
		return fail(err)
	}

	clipURL, err := c.store.Put(ctx, clipLocal, clipObjectName(cand.Rank, j.jobId, cand.StartTime, cand.EndTime))
	if err != nil {
		return fail(err)
	}
	thumbURL, err := c.store.Put(ctx, thumbLocal, thumbObjectName(cand.Rank, j.jobId, cand.StartTime))
	if err != nil {
		return fail(err)
	}

	cand.ClipRef = clipURL
	cand.ThumbnailRef = thumbURL
	return &extractResult{candidate: cand}
}

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
// vibe analysis command, which scores every candidate window and ranks the
// survivors into clip candidates.
//
// Logic Flow:
//  1. When the request opted out of vibe analysis, scoring is skipped
//     entirely and evenly spaced fallback candidates are emitted instead.
//  2. Otherwise a worker pool scores the windows concurrently. Window
//     scoring failures are isolated: a window whose score call fails is
//     dropped from ranking, and the job only fails if every single window
//     failed to score.
//  3. The scored windows are ranked into the top candidates. If nothing
//     clears the score floor, the fallback selection keeps the job useful.
package commands

import (
	goctx "context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/analysis"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// VibeAnalyzer scores candidate windows against the requested vibe and age
// group in parallel and ranks them.
type VibeAnalyzer struct {
	cor.BaseCommand
	scorer          analysis.Scorer
	numberOfWorkers int
	topClips        int
}

// NewVibeAnalyzer is the constructor for the VibeAnalyzer command.
func NewVibeAnalyzer(name string, scorer analysis.Scorer, numberOfWorkers int, topClips int) *VibeAnalyzer {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 4
	}
	return &VibeAnalyzer{
		BaseCommand:     *cor.NewBaseCommand(name),
		scorer:          scorer,
		numberOfWorkers: numberOfWorkers,
		topClips:        topClips,
	}
}

// scoreJob is the unit of work handed to a scoring worker.
type scoreJob struct {
	index  int
	window *model.ChunkWindow
}

// scoreResult carries a worker's output back to the aggregator.
type scoreResult struct {
	index int
	score *model.WindowScore
	err   error
}

// Execute scores and ranks the windows.
func (c *VibeAnalyzer) Execute(context cor.Context) {
	started := time.Now()
	bundle := context.Get(c.GetInputParam()).(*WindowBundle)
	req := bundle.Source.Request
	targets := analysis.Targets{Vibe: req.ProjectContext.Vibe, AgeGroup: req.ProjectContext.AgeGroup}

	if !req.IncludeVibeAnalysis {
		candidates := c.fallback(bundle.Source, req)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
		context.Add(c.GetOutputParam(), &CandidateBundle{Source: bundle.Source, Candidates: candidates})
		return
	}

	scores := c.scoreWindows(context.GetContext(), bundle.Windows, targets)

	scored := 0
	for _, s := range scores {
		if s != nil {
			scored++
		}
	}
	if scored == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("scoring failed for all %d windows", len(bundle.Windows)))
		return
	}

	candidates := analysis.Rank(bundle.Windows, scores, targets, c.topClips)
	if len(candidates) == 0 {
		// Nothing cleared the score floor. Fall back rather than returning
		// an empty result for an otherwise healthy job.
		slog.Warn("no window cleared the score floor, using fallback selection",
			"windows", len(bundle.Windows), "vibe", targets.Vibe)
		candidates = c.fallback(bundle.Source, req)
	}

	slog.Info("vibe analysis complete",
		"windows", len(bundle.Windows),
		"scored", scored,
		"candidates", len(candidates))

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(c.GetOutputParam(), &CandidateBundle{Source: bundle.Source, Candidates: candidates})
}

// scoreWindows fans the windows out over the worker pool and collects the
// scores back in window order. A nil entry marks a window whose scoring
// failed.
func (c *VibeAnalyzer) scoreWindows(ctx goctx.Context, windows []*model.ChunkWindow, targets analysis.Targets) []*model.WindowScore {
	var wg sync.WaitGroup
	jobs := make(chan *scoreJob, len(windows))
	results := make(chan *scoreResult, len(windows))

	for w := 0; w < c.numberOfWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				score, err := c.scorer.Score(ctx, j.window, targets)
				results <- &scoreResult{index: j.index, score: score, err: err}
			}
		}()
	}

	for i, w := range windows {
		jobs <- &scoreJob{index: i, window: w}
	}
	close(jobs)
	wg.Wait()
	close(results)

	scores := make([]*model.WindowScore, len(windows))
	for r := range results {
		if r.err != nil {
			slog.Warn("window scoring failed", "window", r.index, "error", r.err)
			continue
		}
		scores[r.index] = r.score
	}
	return scores
}

// fallback emits evenly spaced candidates across the source duration.
func (c *VibeAnalyzer) fallback(source *SourceMedia, req *model.ProcessRequest) []*model.CandidateClip {
	count := c.topClips
	if count <= 0 {
		count = analysis.DefaultTopClips
	}
	return analysis.FallbackCandidates(source.Duration, req.ProjectContext.TargetDuration, count, req.ProjectContext.Vibe)
}

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
// command that renders each timeline item into a concatenation-ready
// video segment.
//
// Logic Flow:
// Clip items already are video and pass through untouched (the concat
// filter normalizes geometry later). Image and text items are rendered
// into real video segments with silent audio tracks by a worker pool,
// since still rendering is where the encoding time goes. Any segment
// failure fails the whole render.
package commands

import (
	goctx "context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// SegmentRenderer turns every timeline placement into a local video
// segment file.
type SegmentRenderer struct {
	cor.BaseCommand
	ffmpeg          *media.FFmpeg
	numberOfWorkers int
}

// NewSegmentRenderer is the constructor for the SegmentRenderer command.
func NewSegmentRenderer(name string, ffmpeg *media.FFmpeg, numberOfWorkers int) *SegmentRenderer {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 2
	}
	return &SegmentRenderer{
		BaseCommand:     *cor.NewBaseCommand(name),
		ffmpeg:          ffmpeg,
		numberOfWorkers: numberOfWorkers,
	}
}

// segmentJob is the unit of work handed to a rendering worker.
type segmentJob struct {
	index     int
	item      *model.TimelineItem
	localPath string
	duration  float64
	outPath   string
}

// segmentResult carries a worker's outcome back to the aggregator.
type segmentResult struct {
	index int
	path  string
	err   error
}

// Execute renders all segments, stills concurrently.
func (c *SegmentRenderer) Execute(context cor.Context) {
	started := time.Now()
	assets := context.Get(c.GetInputParam()).(*RenderAssets)

	segments := make([]string, len(assets.Plan.Placements))
	var stills []*segmentJob
	for i, p := range assets.Plan.Placements {
		if !p.Item.IsStill() {
			// Clip items are already video; the concat stage normalizes them.
			segments[i] = assets.ItemPaths[i]
			continue
		}
		stills = append(stills, &segmentJob{
			index:     i,
			item:      p.Item,
			localPath: assets.ItemPaths[i],
			duration:  p.End - p.Start,
			outPath:   filepath.Join(assets.WorkDir, fmt.Sprintf("segment_%d.mp4", i)),
		})
	}

	if len(stills) > 0 {
		var wg sync.WaitGroup
		work := make(chan *segmentJob, len(stills))
		results := make(chan *segmentResult, len(stills))

		for w := 0; w < c.numberOfWorkers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range work {
					results <- c.renderStill(context.GetContext(), j)
				}
			}()
		}
		for _, j := range stills {
			work <- j
		}
		close(work)
		wg.Wait()
		close(results)

		for r := range results {
			if r.err != nil {
				c.GetErrorCounter().Add(context.GetContext(), 1)
				context.AddError(c.GetName(), fmt.Errorf("segment %d render failed: %w", r.index, r.err))
				return
			}
			segments[r.index] = r.path
		}
	}

	slog.Info("segments rendered", "total", len(segments), "stills", len(stills))
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	assets.SegmentPaths = segments
	context.Add(c.GetOutputParam(), assets)
}

// renderStill produces the video segment for one image or text item.
func (c *SegmentRenderer) renderStill(ctx goctx.Context, j *segmentJob) *segmentResult {
	var err error
	switch j.item.Kind {
	case model.TimelineItemImage:
		err = c.ffmpeg.StillFromImage(ctx, j.localPath, j.duration, j.outPath)
	case model.TimelineItemText:
		err = c.ffmpeg.StillFromText(ctx, j.item.Text, j.duration, j.outPath)
	default:
		err = fmt.Errorf("item kind %q is not a still", j.item.Kind)
	}
	if err != nil {
		return &segmentResult{index: j.index, err: err}
	}
	return &segmentResult{index: j.index, path: j.outPath}
}

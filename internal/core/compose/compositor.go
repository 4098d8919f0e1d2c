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

// Package compose plans the final timeline render: it lays the ordered
// timeline items onto an absolute time axis, derives where background
// music should be audible, and clamps audio overlays to the program's
// bounds. All of this is pure planning; the actual FFmpeg work happens in
// the render commands that consume the plan.
package compose

import (
	"math"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// Placement is one timeline item resolved onto the absolute time axis.
type Placement struct {
	Item  *model.TimelineItem
	Start float64 // Absolute start within the final video, seconds.
	End   float64
}

// Plan is the fully resolved layout of a render request.
type Plan struct {
	Placements []Placement
	Total      float64            // Total program length, seconds.
	BgmRegions []model.BgmRegion  // Where background music plays at full volume.
	ClipsCount int                // How many real clips (non-stills) the timeline holds.
}

// Layout places the items end to end and derives the plan. Items retain
// their request order; each starts exactly where its predecessor ended.
func Layout(items []*model.TimelineItem) *Plan {
	plan := &Plan{}
	cursor := 0.0
	for _, item := range items {
		dur := item.Duration
		if item.IsStill() && dur <= 0 {
			dur = model.DefaultStillDuration
		}
		plan.Placements = append(plan.Placements, Placement{
			Item:  item,
			Start: round3(cursor),
			End:   round3(cursor + dur),
		})
		cursor += dur
		if !item.IsStill() {
			plan.ClipsCount++
		}
	}
	plan.Total = round3(cursor)
	plan.BgmRegions = bgmRegions(plan.Placements)
	return plan
}

// bgmRegions finds the maximal runs of consecutive still items. Music is
// audible exactly over those runs; a clip between two stills splits the
// music into two regions.
func bgmRegions(placements []Placement) []model.BgmRegion {
	var out []model.BgmRegion
	openAt := -1.0
	closeRegion := func(end float64) {
		if openAt >= 0 && end > openAt {
			out = append(out, model.BgmRegion{Start: openAt, Duration: round3(end - openAt)})
		}
		openAt = -1
	}
	for _, p := range placements {
		if p.Item.IsStill() {
			if openAt < 0 {
				openAt = p.Start
			}
			continue
		}
		closeRegion(p.Start)
	}
	if len(placements) > 0 {
		closeRegion(placements[len(placements)-1].End)
	}
	return out
}

// ClampAudioWindow confines an overlay's [start, start+duration) window to
// the program bounds. A zero or negative duration means "until the end".
// The returned ok is false when the window lies entirely outside the
// program and the overlay should be skipped.
func ClampAudioWindow(start float64, duration float64, total float64) (s float64, d float64, ok bool) {
	if total <= 0 || start >= total {
		return 0, 0, false
	}
	if start < 0 {
		start = 0
	}
	end := total
	if duration > 0 {
		end = math.Min(start+duration, total)
	}
	if end <= start {
		return 0, 0, false
	}
	return round3(start), round3(end - start), true
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

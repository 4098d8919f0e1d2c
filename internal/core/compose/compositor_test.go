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

// Package compose_test contains unit tests for the timeline layout
// planner: absolute placement, background music regions, and audio
// overlay clamping.
package compose_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/compose"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clip(duration float64) *model.TimelineItem {
	return &model.TimelineItem{Kind: model.TimelineItemClip, Ref: "gs://bucket/clip.mp4", Duration: duration}
}

func image(duration float64) *model.TimelineItem {
	return &model.TimelineItem{Kind: model.TimelineItemImage, Ref: "gs://bucket/card.png", Duration: duration}
}

func text(duration float64) *model.TimelineItem {
	return &model.TimelineItem{Kind: model.TimelineItemText, Text: "Coming soon", Duration: duration}
}

// TestLayoutPlacesItemsEndToEnd verifies absolute placement and the music
// region derived from a trailing run of stills.
func TestLayoutPlacesItemsEndToEnd(t *testing.T) {
	plan := compose.Layout([]*model.TimelineItem{clip(5), image(3), text(2)})

	require.Len(t, plan.Placements, 3)
	assert.Equal(t, 0.0, plan.Placements[0].Start)
	assert.Equal(t, 5.0, plan.Placements[0].End)
	assert.Equal(t, 5.0, plan.Placements[1].Start)
	assert.Equal(t, 8.0, plan.Placements[1].End)
	assert.Equal(t, 8.0, plan.Placements[2].Start)
	assert.Equal(t, 10.0, plan.Placements[2].End)

	assert.Equal(t, 10.0, plan.Total)
	assert.Equal(t, 1, plan.ClipsCount)

	// The image and text form one contiguous still run, so music plays
	// over a single region.
	require.Len(t, plan.BgmRegions, 1)
	assert.Equal(t, model.BgmRegion{Start: 5.0, Duration: 5.0}, plan.BgmRegions[0])
}

// TestLayoutSplitsMusicAroundClips verifies that a clip between two stills
// splits the music into separate regions, so clip audio is never covered.
func TestLayoutSplitsMusicAroundClips(t *testing.T) {
	plan := compose.Layout([]*model.TimelineItem{image(3), clip(4), text(2)})

	require.Len(t, plan.BgmRegions, 2)
	assert.Equal(t, model.BgmRegion{Start: 0.0, Duration: 3.0}, plan.BgmRegions[0])
	assert.Equal(t, model.BgmRegion{Start: 7.0, Duration: 2.0}, plan.BgmRegions[1])
}

// TestLayoutDefaultsStillDuration verifies that stills without an explicit
// duration get the default.
func TestLayoutDefaultsStillDuration(t *testing.T) {
	plan := compose.Layout([]*model.TimelineItem{image(0), text(0)})
	assert.Equal(t, 2*model.DefaultStillDuration, plan.Total)
	assert.Equal(t, 0, plan.ClipsCount)
	require.Len(t, plan.BgmRegions, 1)
	assert.Equal(t, 0.0, plan.BgmRegions[0].Start)
}

// TestLayoutAllClipsHasNoMusic verifies that a timeline without stills
// produces no music regions.
func TestLayoutAllClipsHasNoMusic(t *testing.T) {
	plan := compose.Layout([]*model.TimelineItem{clip(5), clip(3)})
	assert.Empty(t, plan.BgmRegions)
	assert.Equal(t, 2, plan.ClipsCount)
}

// TestClampAudioWindow exercises the overlay clamping table.
func TestClampAudioWindow(t *testing.T) {
	cases := []struct {
		name           string
		start, dur     float64
		total          float64
		wantS, wantD   float64
		wantOk         bool
	}{
		{"inside bounds", 2, 3, 10, 2, 3, true},
		{"runs past end", 8, 5, 10, 8, 2, true},
		{"open ended", 4, 0, 10, 4, 6, true},
		{"negative start", -2, 5, 10, 0, 5, true},
		{"starts after end", 12, 3, 10, 0, 0, false},
		{"empty program", 0, 3, 0, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, d, ok := compose.ClampAudioWindow(tc.start, tc.dur, tc.total)
			assert.Equal(t, tc.wantOk, ok)
			if ok {
				assert.Equal(t, tc.wantS, s)
				assert.Equal(t, tc.wantD, d)
			}
		})
	}
}

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

// Package analysis_test contains unit tests for the scoring and ranking
// logic: the fixed weight combination, the dense ranking with its
// tie-break, the minimum score floor, and the evenly spaced fallback.
package analysis_test

import (
	"context"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/analysis"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// window is a small helper building a scored window over [start, end).
func window(start, end float64, text string) *model.ChunkWindow {
	return &model.ChunkWindow{
		Start: start,
		End:   end,
		Segments: []*model.TranscriptSegment{
			{Start: start, End: end, Text: text},
		},
	}
}

// TestOverallAppliesFixedWeights verifies the weighted combination and its
// rounding on a hand-computed case.
func TestOverallAppliesFixedWeights(t *testing.T) {
	score := &model.WindowScore{VibeMatch: 80, AgeGroupMatch: 60, ClipPotential: 70}
	// 0.40*80 + 0.25*60 + 0.35*70 = 32 + 15 + 24.5 = 71.5, rounds to 72.
	assert.Equal(t, 72.0, analysis.Overall(score))
}

// TestOverallClampsOutOfRangeScores verifies that sub-scores outside
// [0, 100] are clamped before combining, so a misbehaving scorer cannot
// push a candidate past the scale.
func TestOverallClampsOutOfRangeScores(t *testing.T) {
	score := &model.WindowScore{VibeMatch: 150, AgeGroupMatch: -20, ClipPotential: 100}
	// Clamped: 100, 0, 100 -> 0.40*100 + 0 + 0.35*100 = 75.
	assert.Equal(t, 75.0, analysis.Overall(score))
}

// TestRankOrdersDensely verifies descending order by overall score with
// dense 1-based ranks and the earlier-start tie-break.
func TestRankOrdersDensely(t *testing.T) {
	windows := []*model.ChunkWindow{
		window(0, 8, "a"),
		window(8, 16, "b"),
		window(16, 24, "c"),
	}
	scores := []*model.WindowScore{
		{VibeMatch: 50, AgeGroupMatch: 50, ClipPotential: 50},
		{VibeMatch: 90, AgeGroupMatch: 90, ClipPotential: 90},
		{VibeMatch: 50, AgeGroupMatch: 50, ClipPotential: 50},
	}
	targets := analysis.Targets{Vibe: "Happy", AgeGroup: "teens"}

	ranked := analysis.Rank(windows, scores, targets, 5)
	require.Len(t, ranked, 3)

	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 8.0, ranked[0].StartTime)
	// The two 50-score windows tie; the earlier one must come first.
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 0.0, ranked[1].StartTime)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, 16.0, ranked[2].StartTime)

	assert.Equal(t, "Happy Clip 1", ranked[0].Title)
	assert.Equal(t, "Happy", ranked[0].Vibe)
}

// TestRankDropsLowAndUnscoredWindows verifies the minimum score floor and
// that windows with no score (failed scoring) are skipped.
func TestRankDropsLowAndUnscoredWindows(t *testing.T) {
	windows := []*model.ChunkWindow{
		window(0, 8, "a"),
		window(8, 16, "b"),
		window(16, 24, "c"),
	}
	scores := []*model.WindowScore{
		{VibeMatch: 10, AgeGroupMatch: 10, ClipPotential: 10}, // overall 10, below floor
		nil, // scoring failed for this window
		{VibeMatch: 80, AgeGroupMatch: 80, ClipPotential: 80},
	}

	ranked := analysis.Rank(windows, scores, analysis.Targets{Vibe: "cool"}, 5)
	require.Len(t, ranked, 1)
	assert.Equal(t, 16.0, ranked[0].StartTime)
	assert.Equal(t, "Cool Clip 1", ranked[0].Title)
}

// TestRankTruncatesToTopN verifies the requested candidate count is honored.
func TestRankTruncatesToTopN(t *testing.T) {
	var windows []*model.ChunkWindow
	var scores []*model.WindowScore
	for i := 0; i < 10; i++ {
		windows = append(windows, window(float64(i*8), float64((i+1)*8), "w"))
		scores = append(scores, &model.WindowScore{VibeMatch: 60, AgeGroupMatch: 60, ClipPotential: 60})
	}
	ranked := analysis.Rank(windows, scores, analysis.Targets{}, 3)
	assert.Len(t, ranked, 3)
}

// TestHeuristicScorerIsDeterministic verifies that re-scoring an identical
// window yields identical sub-scores: the ranking must be reproducible.
func TestHeuristicScorerIsDeterministic(t *testing.T) {
	scorer := analysis.NewHeuristicScorer()
	targets := analysis.Targets{Vibe: "Happy", AgeGroup: "teens"}
	w := window(0, 8, "What an amazing day, this is awesome and everyone is smiling!")

	first, err := scorer.Score(context.Background(), w, targets)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := scorer.Score(context.Background(), w, targets)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// TestHeuristicScorerPrefersOnVibeText verifies that text matching the
// target vibe lexicon outscores neutral text on vibe match.
func TestHeuristicScorerPrefersOnVibeText(t *testing.T) {
	scorer := analysis.NewHeuristicScorer()
	targets := analysis.Targets{Vibe: "Happy", AgeGroup: "general"}

	onVibe, err := scorer.Score(context.Background(),
		window(0, 8, "We love this awesome day, such great joy and a wonderful smile!"), targets)
	require.NoError(t, err)

	neutral, err := scorer.Score(context.Background(),
		window(8, 16, "The quarterly report covers inventory figures and related filings."), targets)
	require.NoError(t, err)

	assert.Greater(t, onVibe.VibeMatch, neutral.VibeMatch)
}

// TestFallbackCandidatesSpacing verifies the evenly spaced fallback:
// correct count, even stride, neutral scores, and bounds clamped to the
// source duration.
func TestFallbackCandidatesSpacing(t *testing.T) {
	out := analysis.FallbackCandidates(60, 8, 3, "Fun")
	require.Len(t, out, 3)

	assert.Equal(t, 0.0, out[0].StartTime)
	assert.Equal(t, 20.0, out[1].StartTime)
	assert.Equal(t, 40.0, out[2].StartTime)
	for i, c := range out {
		assert.Equal(t, i+1, c.Rank)
		assert.Equal(t, 8.0, c.Duration)
		assert.Equal(t, 50.0, c.Scores.Overall)
		assert.LessOrEqual(t, c.EndTime, 60.0)
	}
}

// TestFallbackCandidatesShortSource verifies that a source shorter than
// the clip length still yields clamped, usable candidates.
func TestFallbackCandidatesShortSource(t *testing.T) {
	out := analysis.FallbackCandidates(6, 0, 2, "")
	require.NotEmpty(t, out)
	for _, c := range out {
		assert.LessOrEqual(t, c.EndTime, 6.0)
		assert.GreaterOrEqual(t, c.EndTime-c.StartTime, 1.0)
	}
	assert.Equal(t, "Highlight Clip 1", out[0].Title)
}

// TestFallbackCandidatesEmptyInput verifies degenerate inputs yield nothing.
func TestFallbackCandidatesEmptyInput(t *testing.T) {
	assert.Nil(t, analysis.FallbackCandidates(0, 8, 3, "Fun"))
	assert.Nil(t, analysis.FallbackCandidates(60, 8, 0, "Fun"))
}

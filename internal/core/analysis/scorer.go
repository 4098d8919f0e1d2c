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

// Package analysis scores candidate windows against a target vibe and
// audience age group, and ranks them into clip candidates.
//
// Every window receives three independent sub-scores in [0, 100]:
// vibe_match, age_group_match, and clip_potential. The overall score is a
// fixed weighted mean of the three — the weights are constants of this
// package, not tunables, so re-running analysis on identical input always
// yields the identical ranking. Candidates are ranked densely (1-based) by
// overall score descending, with ties broken by the earlier start time.
package analysis

import (
	"context"
	"math"
	"sort"
	"strconv"
	"unicode"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// The fixed combination weights for the overall score. vibe_match carries
// the most weight because it is the primary creative target, clip_potential
// is next because an on-vibe window still has to stand alone as a clip, and
// age_group_match refines between otherwise comparable candidates.
const (
	WeightVibeMatch     = 0.40
	WeightAgeGroupMatch = 0.25
	WeightClipPotential = 0.35
)

// MinOverallScore is the floor below which a scored window is not offered
// as a clip candidate.
const MinOverallScore = 30.0

// DefaultTopClips is how many ranked candidates a job returns by default.
const DefaultTopClips = 5

// Targets carries the creative targets a window is scored against.
type Targets struct {
	Vibe     string
	AgeGroup string
}

// Scorer produces the three sub-scores for one window. Implementations
// must be deterministic for identical inputs, or document precisely where
// nondeterminism enters (the generative scorer pins temperature to zero
// and is the only sanctioned exception).
type Scorer interface {
	Score(ctx context.Context, window *model.ChunkWindow, targets Targets) (*model.WindowScore, error)
}

// Overall combines the sub-scores with the fixed weights, clamping each
// input into [0, 100] first and rounding half-up to the nearest integer.
func Overall(s *model.WindowScore) float64 {
	v := clampScore(s.VibeMatch)
	a := clampScore(s.AgeGroupMatch)
	p := clampScore(s.ClipPotential)
	return math.Round(WeightVibeMatch*v + WeightAgeGroupMatch*a + WeightClipPotential*p)
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// scoredWindow pairs a window with its scores during ranking.
type scoredWindow struct {
	window  *model.ChunkWindow
	score   *model.WindowScore
	overall float64
}

// Rank filters, orders, and ranks scored windows into clip candidates.
// Windows whose overall score does not clear MinOverallScore are dropped;
// the survivors are sorted by overall descending (earlier start wins ties),
// truncated to topN, and assigned dense 1-based ranks and titles.
func Rank(windows []*model.ChunkWindow, scores []*model.WindowScore, targets Targets, topN int) []*model.CandidateClip {
	if topN <= 0 {
		topN = DefaultTopClips
	}

	ranked := make([]*scoredWindow, 0, len(windows))
	for i, w := range windows {
		if i >= len(scores) || scores[i] == nil {
			continue
		}
		overall := Overall(scores[i])
		if overall <= MinOverallScore {
			continue
		}
		ranked = append(ranked, &scoredWindow{window: w, score: scores[i], overall: overall})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].overall != ranked[j].overall {
			return ranked[i].overall > ranked[j].overall
		}
		return ranked[i].window.Start < ranked[j].window.Start
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	out := make([]*model.CandidateClip, 0, len(ranked))
	for i, sw := range ranked {
		out = append(out, &model.CandidateClip{
			Rank:      i + 1,
			StartTime: sw.window.Start,
			EndTime:   sw.window.End,
			Duration:  sw.window.Duration(),
			Title:     candidateTitle(targets.Vibe, i+1),
			Vibe:      targets.Vibe,
			Scores: model.ClipScores{
				VibeMatch:     clampScore(sw.score.VibeMatch),
				AgeGroupMatch: clampScore(sw.score.AgeGroupMatch),
				ClipPotential: clampScore(sw.score.ClipPotential),
				Overall:       sw.overall,
			},
			Reason: sw.score.Reason,
		})
	}
	return out
}

// FallbackCandidates produces evenly spaced candidates over the source
// duration when scoring is disabled or yields nothing rankable, so an
// analysis job still completes with usable clips.
func FallbackCandidates(duration float64, clipLength float64, count int, vibe string) []*model.CandidateClip {
	if duration <= 0 || count <= 0 {
		return nil
	}
	if clipLength <= 0 || clipLength > duration {
		clipLength = math.Min(duration, 8)
	}
	stride := duration / float64(count)
	out := make([]*model.CandidateClip, 0, count)
	for i := 0; i < count; i++ {
		start := stride * float64(i)
		end := math.Min(start+clipLength, duration)
		if end-start < 1 {
			break
		}
		out = append(out, &model.CandidateClip{
			Rank:      i + 1,
			StartTime: round2(start),
			EndTime:   round2(end),
			Duration:  round2(end - start),
			Title:     candidateTitle(vibe, i+1),
			Vibe:      vibe,
			Scores:    model.ClipScores{VibeMatch: 50, AgeGroupMatch: 50, ClipPotential: 50, Overall: 50},
			Reason:    "evenly spaced fallback selection",
		})
	}
	return out
}

func candidateTitle(vibe string, rank int) string {
	if len(vibe) == 0 {
		vibe = "Highlight"
	}
	return capitalize(vibe) + " Clip " + strconv.Itoa(rank)
}

// capitalize upper-cases the first rune so lower-case vocabulary entries
// ("cool", "musical") still yield presentable titles.
func capitalize(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

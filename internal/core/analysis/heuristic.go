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

// This file implements the lexical fallback scorer. It runs when no
// generative model is configured (local development, CI) and whenever the
// pipeline must stay fully offline. The scoring is a pure function of the
// window text and the targets: same input, same scores, every run.
package analysis

import (
	"context"
	"math"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// vibeLexicons maps each supported vibe to the words that signal it in a
// transcript. Matching is case-insensitive on whole words.
var vibeLexicons = map[string][]string{
	"happy":      {"laugh", "smile", "joy", "great", "love", "awesome", "yay", "haha", "wonderful", "celebrate"},
	"dramatic":   {"never", "betrayed", "shocking", "truth", "secret", "destroyed", "revealed", "confession", "stakes"},
	"intense":    {"fight", "now", "hurry", "danger", "attack", "run", "fast", "scream", "explode", "critical"},
	"fun":        {"game", "play", "party", "joke", "silly", "crazy", "wild", "prank", "lol", "funny"},
	"inspiring":  {"dream", "believe", "achieve", "overcome", "courage", "hope", "journey", "possible", "grow"},
	"mysterious": {"strange", "unknown", "hidden", "wonder", "shadow", "whisper", "vanish", "riddle", "curious"},
	"emotional":  {"cry", "tears", "heart", "miss", "goodbye", "forever", "lost", "mother", "father", "remember"},
	"cool":       {"smooth", "style", "slick", "epic", "legend", "fresh", "iconic", "flawless"},
	"musical":    {"sing", "song", "melody", "beat", "rhythm", "dance", "chorus", "tune", "harmony"},
}

// ageLexicons lists vocabulary that reads as aimed at each audience.
var ageLexicons = map[string][]string{
	"kids":         {"fun", "play", "friend", "magic", "animal", "color", "learn", "silly"},
	"teens":        {"school", "friend", "game", "vibe", "literally", "crush", "viral", "trend"},
	"young-adults": {"work", "life", "money", "career", "relationship", "travel", "college"},
	"adults":       {"family", "work", "home", "invest", "health", "career", "mortgage"},
	"seniors":      {"remember", "years", "history", "garden", "family", "tradition", "retire"},
}

// HeuristicScorer scores windows from surface features of their text:
// lexicon hits for the vibe and age group, speech density, punctuation
// energy, and how close the window length sits to an ideal clip length.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the lexical scorer. It holds no state.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score implements Scorer. It never fails; a window with no text simply
// scores low.
func (s *HeuristicScorer) Score(_ context.Context, window *model.ChunkWindow, targets Targets) (*model.WindowScore, error) {
	text := window.Text()
	words := strings.Fields(strings.ToLower(stripPunct(text)))
	dur := window.Duration()

	// Speech density: lively speech runs around 2.5 words per second, so
	// normalize against that and cap the contribution.
	density := 0.0
	if dur > 0 {
		density = math.Min(float64(len(words))/dur/2.5, 1.0)
	}

	vibeHits := lexiconHits(words, vibeLexicons[strings.ToLower(targets.Vibe)])
	vibe := math.Round(clampScore(30 + 16*float64(vibeHits) + 20*density))

	age := 60.0
	if lex, ok := ageLexicons[strings.ToLower(targets.AgeGroup)]; ok {
		age = clampScore(50 + 10*float64(lexiconHits(words, lex)))
	}
	age = math.Round(age)

	exclaims := float64(strings.Count(text, "!"))
	questions := float64(strings.Count(text, "?"))
	potential := 35 + 6*exclaims + 4*questions + 25*density
	if isSelfContained(text) {
		potential += 10
	}
	// Clips near eight seconds hold attention best; drift costs points.
	potential += math.Max(0, 10-math.Abs(dur-8))
	potential = math.Round(clampScore(potential))

	return &model.WindowScore{
		VibeMatch:     vibe,
		AgeGroupMatch: age,
		ClipPotential: potential,
		Reason:        "lexical scoring from transcript features",
	}, nil
}

func lexiconHits(words []string, lexicon []string) int {
	if len(lexicon) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(lexicon))
	for _, w := range lexicon {
		set[w] = struct{}{}
	}
	hits := 0
	for _, w := range words {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	return hits
}

// isSelfContained checks whether the window reads like a complete thought:
// it starts on a capitalized word and ends on sentence punctuation.
func isSelfContained(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) == 0 {
		return false
	}
	first := rune(t[0])
	last := t[len(t)-1]
	return first >= 'A' && first <= 'Z' && (last == '.' || last == '!' || last == '?')
}

func stripPunct(in string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"', '\'':
			return ' '
		}
		return r
	}, in)
}

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

// Package chunk_test contains unit tests for the chunking engine. The
// central property under test: windows are ordered, non-overlapping, and
// together cover the transcript span exactly, for both strategies and for
// arbitrary segment layouts.
package chunk_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/chunk"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTranscript builds a transcript from (start, end) pairs.
func makeTranscript(spans [][2]float64) *model.Transcript {
	segments := make([]*model.TranscriptSegment, 0, len(spans))
	for i, s := range spans {
		segments = append(segments, &model.TranscriptSegment{
			Start: s[0],
			End:   s[1],
			Text:  fmt.Sprintf("segment %d", i),
		})
	}
	return &model.Transcript{Segments: segments}
}

// assertExactCover verifies the core chunking invariant: the first window
// starts at the span start, the last ends at the span end, and every window
// begins exactly where its predecessor ended.
func assertExactCover(t *testing.T, transcript *model.Transcript, windows []*model.ChunkWindow) {
	t.Helper()
	require.NotEmpty(t, windows)
	start, end := transcript.Span()
	assert.Equal(t, start, windows[0].Start)
	assert.Equal(t, end, windows[len(windows)-1].End)
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End, windows[i].Start,
			"window %d must start where window %d ended", i, i-1)
	}
}

// TestFixedWindowsUniformSegments verifies the fixed strategy on a perfectly
// regular transcript: 120 seconds of 5-second segments with a 30-second
// target partitions into exactly four 30-second windows.
func TestFixedWindowsUniformSegments(t *testing.T) {
	var spans [][2]float64
	for s := 0.0; s < 120.0; s += 5.0 {
		spans = append(spans, [2]float64{s, s + 5.0})
	}
	transcript := makeTranscript(spans)

	opts := chunk.DefaultOptions()
	opts.TargetLength = 30

	windows := chunk.Windows(transcript, model.ChunkStrategyFixed, opts)
	require.Len(t, windows, 4)
	assertExactCover(t, transcript, windows)
	for _, w := range windows {
		assert.Equal(t, 30.0, w.Duration())
	}
}

// TestWindowsCoverGeneratedSegments is the property test: for randomly laid
// out segments (with silence gaps between some of them), both strategies
// must cover the span exactly with no overlaps. The generator is seeded so
// failures reproduce.
func TestWindowsCoverGeneratedSegments(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		var spans [][2]float64
		cursor := rng.Float64() * 5
		count := 5 + rng.Intn(40)
		for i := 0; i < count; i++ {
			length := 0.5 + rng.Float64()*2.5
			spans = append(spans, [2]float64{cursor, cursor + length})
			cursor += length
			if rng.Float64() < 0.3 {
				// Occasional silence between utterances.
				cursor += rng.Float64() * 2.5
			}
		}
		transcript := makeTranscript(spans)

		for _, strategy := range []model.ChunkStrategy{model.ChunkStrategyFixed, model.ChunkStrategyAdaptive} {
			windows := chunk.Windows(transcript, strategy, chunk.DefaultOptions())
			assertExactCover(t, transcript, windows)
		}
	}
}

// TestShortTranscriptYieldsSingleWindow verifies that a transcript shorter
// than the minimum window length is one window spanning the whole thing.
func TestShortTranscriptYieldsSingleWindow(t *testing.T) {
	transcript := makeTranscript([][2]float64{{0, 1.0}, {1.0, 2.2}})
	windows := chunk.Windows(transcript, model.ChunkStrategyAdaptive, chunk.DefaultOptions())
	require.Len(t, windows, 1)
	assert.Equal(t, 0.0, windows[0].Start)
	assert.Equal(t, 2.2, windows[0].End)
	assert.Len(t, windows[0].Segments, 2)
}

// TestEmptyTranscriptYieldsNoWindows verifies the empty-input edge case.
func TestEmptyTranscriptYieldsNoWindows(t *testing.T) {
	assert.Nil(t, chunk.Windows(nil, model.ChunkStrategyFixed, chunk.DefaultOptions()))
	assert.Nil(t, chunk.Windows(&model.Transcript{}, model.ChunkStrategyFixed, chunk.DefaultOptions()))
}

// TestAdaptiveBreaksAtSilence verifies that the adaptive strategy closes a
// window at a qualifying silence gap once the minimum length is reached.
func TestAdaptiveBreaksAtSilence(t *testing.T) {
	// Two dense passages separated by a 2-second silence at t=4.
	transcript := makeTranscript([][2]float64{
		{0, 2}, {2, 4},
		{6, 8}, {8, 10},
	})
	opts := chunk.Options{TargetLength: 8, MinLength: 3, MaxLength: 10, SilenceGap: 1.0}

	windows := chunk.Windows(transcript, model.ChunkStrategyAdaptive, opts)
	require.Len(t, windows, 2)
	assert.Equal(t, 4.0, windows[0].End)
	assert.Equal(t, 4.0, windows[1].Start)
	assertExactCover(t, transcript, windows)
}

// TestFixedFoldsTrailingStub verifies that a trailing stub much shorter
// than the target is folded into its predecessor instead of becoming a
// candidate of its own.
func TestFixedFoldsTrailingStub(t *testing.T) {
	var spans [][2]float64
	for s := 0.0; s < 33.0; s += 1.0 {
		spans = append(spans, [2]float64{s, s + 1.0})
	}
	transcript := makeTranscript(spans)

	opts := chunk.DefaultOptions()
	opts.TargetLength = 8

	windows := chunk.Windows(transcript, model.ChunkStrategyFixed, opts)
	assertExactCover(t, transcript, windows)
	for _, w := range windows {
		assert.GreaterOrEqual(t, w.Duration(), opts.TargetLength/4,
			"no window should be a stub shorter than a quarter target")
	}
}

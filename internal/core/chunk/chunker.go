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

// Package chunk implements the chunking engine that slices a transcript
// into ordered candidate windows.
//
// Two strategies are supported:
//
//   - fixed: partitions the transcript into windows of a configured target
//     length, with boundaries snapped to the nearest segment boundary so a
//     transcript segment is never split mid-text.
//   - adaptive: grows a window until a sustained silence gap between
//     segments fires or the maximum window length is reached, keeping every
//     window's length inside [MinLength, MaxLength].
//
// Both strategies uphold the same structural invariant: windows are
// non-overlapping and their union covers the transcript span exactly. Each
// window starts where the previous one ended (the first starts at the
// transcript's start), so silence gaps between segments are absorbed into
// the window that follows them rather than leaking out as uncovered time.
// A transcript shorter than the minimum window length yields exactly one
// window spanning the whole transcript.
package chunk

import (
	"math"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// Options configures the chunking engine. All values are seconds.
type Options struct {
	TargetLength float64 // Desired window length for the fixed strategy.
	MinLength    float64 // Lower bound for adaptive windows.
	MaxLength    float64 // Upper bound for adaptive windows.
	SilenceGap   float64 // Inter-segment silence that triggers an adaptive boundary.
}

// DefaultOptions mirrors the production defaults: 8 second windows bounded
// to [3, 10] with a one second silence trigger.
func DefaultOptions() Options {
	return Options{
		TargetLength: 8,
		MinLength:    3,
		MaxLength:    10,
		SilenceGap:   1.0,
	}
}

// Windows derives candidate windows from the transcript using the given
// strategy. An empty transcript yields no windows.
func Windows(t *model.Transcript, strategy model.ChunkStrategy, opts Options) []*model.ChunkWindow {
	if t == nil || len(t.Segments) == 0 {
		return nil
	}
	start, end := t.Span()

	// A transcript shorter than the minimum window is one window, whole.
	if end-start < opts.MinLength {
		return []*model.ChunkWindow{{Start: start, End: end, Segments: t.Segments}}
	}

	if strategy == model.ChunkStrategyAdaptive {
		return adaptiveWindows(t.Segments, opts)
	}
	return fixedWindows(t.Segments, opts)
}

// fixedWindows partitions the segments into windows of roughly
// opts.TargetLength seconds. A window closes at the segment boundary
// nearest to the target: when adding a segment overshoots the target, the
// boundary lands before or after that segment depending on which side is
// closer to the target length.
func fixedWindows(segments []*model.TranscriptSegment, opts Options) []*model.ChunkWindow {
	target := opts.TargetLength
	if target <= 0 {
		target = DefaultOptions().TargetLength
	}

	var out []*model.ChunkWindow
	winStart := segments[0].Start
	var current []*model.TranscriptSegment

	closeWindow := func(end float64) {
		out = append(out, &model.ChunkWindow{Start: winStart, End: end, Segments: current})
		winStart = end
		current = nil
	}

	for _, seg := range segments {
		withSeg := seg.End - winStart
		if withSeg >= target {
			withoutSeg := seg.Start - winStart
			if len(current) > 0 && math.Abs(withoutSeg-target) < math.Abs(withSeg-target) {
				// The boundary before this segment is the closer snap point.
				closeWindow(seg.Start)
				current = append(current, seg)
			} else {
				current = append(current, seg)
				closeWindow(seg.End)
			}
			continue
		}
		current = append(current, seg)
	}
	if len(current) > 0 {
		closeWindow(segments[len(segments)-1].End)
	}

	// A stub of a trailing window is folded into its predecessor instead of
	// being emitted as a clip candidate of its own.
	if n := len(out); n > 1 && out[n-1].Duration() < target/4 {
		prev, last := out[n-2], out[n-1]
		prev.End = last.End
		prev.Segments = append(prev.Segments, last.Segments...)
		out = out[:n-1]
	}
	return out
}

// adaptiveWindows grows each window until a qualifying silence gap follows
// the current segment or the maximum length is reached.
func adaptiveWindows(segments []*model.TranscriptSegment, opts Options) []*model.ChunkWindow {
	var out []*model.ChunkWindow
	winStart := segments[0].Start
	var current []*model.TranscriptSegment

	closeWindow := func(end float64) {
		out = append(out, &model.ChunkWindow{Start: winStart, End: end, Segments: current})
		winStart = end
		current = nil
	}

	for i, seg := range segments {
		current = append(current, seg)
		dur := seg.End - winStart

		if dur >= opts.MaxLength {
			closeWindow(seg.End)
			continue
		}
		if i+1 < len(segments) {
			gap := segments[i+1].Start - seg.End
			if dur >= opts.MinLength && gap >= opts.SilenceGap {
				closeWindow(seg.End)
			}
		}
	}
	if len(current) > 0 {
		closeWindow(segments[len(segments)-1].End)
	}

	return mergeShortTail(out, opts)
}

// mergeShortTail repairs a trailing adaptive window that came out shorter
// than the minimum: it is merged into its predecessor, and if the merge
// overshoots the maximum the combined window is re-split at the segment
// boundary closest to its midpoint.
func mergeShortTail(windows []*model.ChunkWindow, opts Options) []*model.ChunkWindow {
	n := len(windows)
	if n < 2 || windows[n-1].Duration() >= opts.MinLength {
		return windows
	}

	prev, last := windows[n-2], windows[n-1]
	merged := &model.ChunkWindow{
		Start:    prev.Start,
		End:      last.End,
		Segments: append(append([]*model.TranscriptSegment{}, prev.Segments...), last.Segments...),
	}
	windows = windows[:n-1]
	windows[n-2] = merged

	if merged.Duration() <= opts.MaxLength {
		return windows
	}

	// Re-split at the interior segment boundary closest to the midpoint.
	mid := merged.Start + merged.Duration()/2
	bestIdx, bestDist := -1, math.MaxFloat64
	for i := 0; i < len(merged.Segments)-1; i++ {
		boundary := merged.Segments[i].End
		if d := math.Abs(boundary - mid); d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	if bestIdx < 0 {
		return windows
	}

	boundary := merged.Segments[bestIdx].End
	left := &model.ChunkWindow{Start: merged.Start, End: boundary, Segments: merged.Segments[:bestIdx+1]}
	right := &model.ChunkWindow{Start: boundary, End: merged.End, Segments: merged.Segments[bestIdx+1:]}
	windows[len(windows)-1] = left
	return append(windows, right)
}

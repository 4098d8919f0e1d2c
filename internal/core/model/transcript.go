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

// Package model defines the core data structures for the application.
// This file holds the transcription output and the chunk windows derived
// from it. Both are produced once per job run and treated as read-only by
// every downstream stage.
package model

import "strings"

// TranscriptSegment is one time-coded utterance from the speech recognizer.
// Segments are ordered chronologically; times are seconds from the start of
// the source media, non-negative, and non-overlapping.
type TranscriptSegment struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
	Text  string  `json:"text"`
}

// Transcript is the full output of the transcription stage.
type Transcript struct {
	Segments   []*TranscriptSegment `json:"segments"`
	Text       string               `json:"text"`
	Language   string               `json:"language,omitempty"`
	Duration   float64              `json:"duration"`
	WordCount  int                  `json:"word_count"`
	SourceFile string               `json:"source_file,omitempty"`
}

// Span returns the time range covered by the transcript, from the start of
// the first segment to the end of the last. An empty transcript spans zero.
func (t *Transcript) Span() (start, end float64) {
	if len(t.Segments) == 0 {
		return 0, 0
	}
	return t.Segments[0].Start, t.Segments[len(t.Segments)-1].End
}

// ChunkWindow is a contiguous, time-bounded slice of the transcript that is
// considered as one clip candidate. Windows produced by the chunking engine
// are ordered, non-overlapping, and together cover the transcript span
// exactly: each window starts where the previous one ended.
type ChunkWindow struct {
	Start    float64              `json:"start_time"`
	End      float64              `json:"end_time"`
	Segments []*TranscriptSegment `json:"-"`
}

// Duration returns the window length in seconds.
func (w *ChunkWindow) Duration() float64 {
	return w.End - w.Start
}

// Text concatenates the window's segment texts into one block for scoring.
func (w *ChunkWindow) Text() string {
	parts := make([]string, 0, len(w.Segments))
	for _, s := range w.Segments {
		text := strings.TrimSpace(s.Text)
		if len(text) > 0 {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

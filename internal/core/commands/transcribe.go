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
// transcription command.
//
// Logic Flow:
//  1. FFmpeg extracts the source's audio track as 16 kHz mono PCM, the
//     only input format whisper.cpp accepts.
//  2. whisper.cpp transcribes the WAV and writes a JSON sidecar with
//     word-level timing collapsed into segments.
//  3. The sidecar is parsed into the transcript model. An empty transcript
//     (a video with no recognizable speech) is a pipeline failure: nothing
//     downstream can chunk or score silence.
package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
)

// Transcribe converts the fetched source's speech into a timed transcript.
type Transcribe struct {
	cor.BaseCommand
	ffmpeg  *media.FFmpeg
	whisper *media.Whisper
}

// NewTranscribe is the constructor for the Transcribe command.
func NewTranscribe(name string, ffmpeg *media.FFmpeg, whisper *media.Whisper) *Transcribe {
	return &Transcribe{BaseCommand: *cor.NewBaseCommand(name), ffmpeg: ffmpeg, whisper: whisper}
}

// Execute contains the core logic for audio extraction and transcription.
func (c *Transcribe) Execute(context cor.Context) {
	started := time.Now()
	source := context.Get(c.GetInputParam()).(*SourceMedia)

	wavPath := filepath.Join(source.WorkDir, "audio.wav")
	if err := c.ffmpeg.ExtractAudio(context.GetContext(), source.LocalPath, wavPath); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("audio extraction failed: %w", err))
		return
	}
	context.AddTempFile(wavPath)

	outPrefix := filepath.Join(source.WorkDir, "transcript")
	transcript, err := c.whisper.Transcribe(context.GetContext(), wavPath, outPrefix)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("transcription failed: %w", err))
		return
	}
	context.AddTempFile(outPrefix + ".json")

	if len(transcript.Segments) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("no speech recognized in %s", source.Request.VideoURL))
		return
	}
	transcript.SourceFile = source.LocalPath

	slog.Info("transcription complete",
		"segments", len(transcript.Segments),
		"words", transcript.WordCount,
		"language", transcript.Language)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(c.GetOutputParam(), &TranscriptBundle{Source: source, Transcript: transcript})
}

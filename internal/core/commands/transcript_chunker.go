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
// command that slices the transcript into candidate windows.
package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/chunk"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
)

// TranscriptChunker derives ordered, non-overlapping candidate windows
// from the transcript using the strategy the request selected.
type TranscriptChunker struct {
	cor.BaseCommand
	opts chunk.Options
}

// NewTranscriptChunker is the constructor for the TranscriptChunker command.
func NewTranscriptChunker(name string, opts chunk.Options) *TranscriptChunker {
	return &TranscriptChunker{BaseCommand: *cor.NewBaseCommand(name), opts: opts}
}

// Execute runs the chunking engine over the transcript.
func (c *TranscriptChunker) Execute(context cor.Context) {
	started := time.Now()
	bundle := context.Get(c.GetInputParam()).(*TranscriptBundle)

	windows := chunk.Windows(bundle.Transcript, bundle.Source.Request.ChunkStrategy, c.opts)
	if len(windows) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("chunking produced no windows from %d segments", len(bundle.Transcript.Segments)))
		return
	}

	slog.Info("transcript chunked",
		"strategy", bundle.Source.Request.ChunkStrategy,
		"windows", len(windows))

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(c.GetOutputParam(), &WindowBundle{
		Source:     bundle.Source,
		Transcript: bundle.Transcript,
		Windows:    windows,
	})
}

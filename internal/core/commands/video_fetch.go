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
// first command of the analysis pipeline: materializing the source video
// on local disk.
//
// Logic Flow:
//  1. The analysis request arrives in the context. A scratch directory is
//     created for this job; every downstream artifact (audio track,
//     transcript sidecar, cut clips) lands there and is swept with the
//     chain's temp-file tracking when the job finishes.
//  2. The object store resolves the source reference — http(s) download,
//     gs:// object, or local path depending on the store implementation.
//  3. The downloaded bytes are sniffed with the filetype library. A source
//     that is not recognizable video fails the job here, before any
//     expensive transcription work starts.
//  4. ffprobe reports the container duration, which the analysis stage
//     later needs for fallback clip placement.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
)

// VideoFetch downloads the source video into a job-scoped scratch
// directory and verifies it is actually video.
type VideoFetch struct {
	cor.BaseCommand
	store  services.ObjectStore
	ffmpeg *media.FFmpeg
}

// NewVideoFetch is the constructor for the VideoFetch command.
func NewVideoFetch(name string, store services.ObjectStore, ffmpeg *media.FFmpeg) *VideoFetch {
	return &VideoFetch{BaseCommand: *cor.NewBaseCommand(name), store: store, ffmpeg: ffmpeg}
}

// Execute contains the core logic for fetching and validating the source.
func (c *VideoFetch) Execute(context cor.Context) {
	started := time.Now()
	req := context.Get(c.GetInputParam()).(*model.ProcessRequest)

	workDir, err := os.MkdirTemp("", "clip-pipeline-")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("could not create scratch directory: %w", err))
		return
	}
	context.AddTempFile(workDir)

	localPath, err := c.store.Fetch(context.GetContext(), req.VideoURL, workDir)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to fetch source %s: %w", req.VideoURL, err))
		return
	}

	kind, err := sniffType(localPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if kind.MIME.Type != "video" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("source %s is %s, not video", req.VideoURL, kind.MIME.Value))
		return
	}

	duration, err := c.ffmpeg.ProbeDuration(context.GetContext(), localPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to probe source duration: %w", err))
		return
	}

	slog.Info("fetched source media",
		"source", req.VideoURL,
		"local_path", localPath,
		"mime_type", kind.MIME.Value,
		"duration", duration)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	recordStageSeconds(context, c.GetName(), time.Since(started).Seconds())
	context.Add(GetProcessRequestParameterName(), req)
	context.Add(c.GetOutputParam(), &SourceMedia{
		Request:   req,
		LocalPath: localPath,
		MIMEType:  kind.MIME.Value,
		Duration:  duration,
		WorkDir:   workDir,
	})
}

// sniffType reads the file header and classifies it with the filetype
// library. Only the first 262 bytes are needed.
func sniffType(path string) (types.Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Unknown, fmt.Errorf("could not open fetched file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := f.Read(head)
	if err != nil || n == 0 {
		return types.Unknown, fmt.Errorf("could not read fetched file header: %w", err)
	}
	kind, err := filetype.Match(head[:n])
	if err != nil {
		return types.Unknown, fmt.Errorf("could not classify fetched file: %w", err)
	}
	return kind, nil
}

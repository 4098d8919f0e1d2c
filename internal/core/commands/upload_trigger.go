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
// command attached to the upload Pub/Sub listener.
//
// Logic Flow:
// When a video lands in the upload bucket, GCS publishes a notification to
// the upload topic. This command parses that notification, ignores
// non-video objects (thumbnails, sidecars), and submits an analysis job
// for the new source with the deployment's default creative targets. The
// submitted job id becomes the command output so the listener can log it.
package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// UploadTrigger parses a GCS upload notification and submits an analysis
// job for the uploaded video.
type UploadTrigger struct {
	cor.BaseCommand
	orchestrator *jobs.Orchestrator
	defaults     model.ProjectContext
}

// NewUploadTrigger is the constructor for the UploadTrigger command.
func NewUploadTrigger(name string, orchestrator *jobs.Orchestrator, defaults model.ProjectContext) *UploadTrigger {
	return &UploadTrigger{
		BaseCommand:  *cor.NewBaseCommand(name),
		orchestrator: orchestrator,
		defaults:     defaults,
	}
}

// Execute parses the notification and submits the job.
func (c *UploadTrigger) Execute(context cor.Context) {
	in := context.Get(c.GetInputParam()).(string)

	var notification cloud.GCSPubSubNotification
	if err := json.Unmarshal([]byte(in), &notification); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to unmarshal GCS notification: %w", err))
		return
	}

	if !strings.HasPrefix(notification.ContentType, "video/") {
		// Not an error: buckets hold thumbnails and sidecar files too.
		slog.Debug("ignoring non-video upload",
			"object", notification.Name, "content_type", notification.ContentType)
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		return
	}

	req := &model.ProcessRequest{
		VideoURL:            fmt.Sprintf("gs://%s/%s", notification.Bucket, notification.Name),
		ChunkStrategy:       model.ChunkStrategyFixed,
		IncludeVibeAnalysis: true,
		ProjectContext:      c.defaults,
	}

	job, err := c.orchestrator.SubmitAnalysis(context.GetContext(), req)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to submit analysis for %s: %w", req.VideoURL, err))
		return
	}

	slog.Info("upload triggered analysis job", "job_id", job.Id, "source", req.VideoURL)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), job.Id)
}

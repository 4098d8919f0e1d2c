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

// Package main contains the logic for setting up and starting the Pub/Sub message listeners.
// These listeners are responsible for initiating backend processing in response to events,
// such as new video uploads to Google Cloud Storage.
//
// Functions:
//   - SetupListeners: Initializes and starts the listener for the upload topic,
//     attaching the command that auto-submits analysis jobs for new videos.
package main

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/commands"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// SetupListeners configures and starts the background Pub/Sub listeners.
//
// When a video lands in the upload bucket, GCS publishes a notification to
// the upload topic. The attached command parses it and submits an analysis
// job with the deployment's default creative targets, so uploads flow into
// the pipeline without an explicit API call.
//
// Inputs:
//   - config: The application's configuration, containing settings for storage, topics, etc.
//   - cloudClients: A struct containing all the initialized Google Cloud service clients.
//   - ctx: The application's root context, used to manage the lifecycle of the listeners.
//
// Outputs:
//   - This function does not return any value. It starts the listeners as background goroutines.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners["UploadTopic"]
	if !ok {
		slog.Warn("no upload topic subscription configured, uploads will not auto-submit jobs")
		return
	}

	defaults := model.ProjectContext{
		Vibe:     config.Pipeline.DefaultVibe,
		AgeGroup: config.Pipeline.DefaultAgeGroup,
	}

	// Assign the trigger command to the listener and start receiving. The
	// listener only acks a message when the command recorded no errors, so
	// failed submissions are redelivered (and eventually dead-lettered).
	listener.SetCommand(commands.NewUploadTrigger("upload-trigger", state.orchestrator, defaults))
	listener.Listen(ctx)
}

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

// Package main contains the setup and initialization logic for the application's state.
// This file is responsible for creating and managing a centralized state manager
// that holds all shared dependencies: configuration, Google Cloud service clients,
// the media tool wrappers, the job registry, and the pipeline orchestrator.
//
// It ensures that the application is configured correctly based on the environment,
// initializes the clients the deployment actually needs (a local deployment runs
// with no cloud clients at all), and starts background processes like the job
// janitor and the Pub/Sub upload listener.
//
// Functions:
//   - SetupOS: Configures necessary environment variables for the application,
//     pointing to the correct configuration files.
//   - GetConfig: A singleton function that loads the application's configuration
//     from TOML files. It ensures the configuration is loaded only once.
//   - InitState: The core initialization function that creates the service clients,
//     the object store, the workflows, and the orchestrator, and starts the
//     background listeners.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/services"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/workflow"
)

// StateManager holds all the shared dependencies for the application, acting as a
// centralized container for service clients and configurations. This avoids the
// need for global variables and makes dependency management cleaner.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	store        services.ObjectStore
	ffmpeg       *media.FFmpeg
	whisper      *media.Whisper
	clipService  *services.ClipService
	registry     *jobs.Registry
	orchestrator *jobs.Orchestrator
}

// state is a package-level variable that holds the single instance of StateManager.
var state = &StateManager{}

// SetupOS sets the necessary environment variables that the configuration loader
// uses to find the correct TOML files.
//
// This function sets the prefix for the configuration directory and specifies
// the runtime environment (e.g., "local", "test", "prod"), allowing for
// environment-specific overrides of the base configuration.
//
// Outputs:
//   - error: An error if setting any of the environment variables fails.
func SetupOS() (err error) {
	// Set the directory where configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the current runtime environment to "local". The config loader will
	// look for a ".env.local.toml" file to override base settings.
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides a singleton instance of the application configuration.
// It ensures that the configuration is loaded from the file system only once.
// On the first call, it sets up the OS environment and loads the configuration
// from the TOML files. Subsequent calls return the cached configuration.
//
// Outputs:
//   - *cloud.Config: A pointer to the loaded application configuration struct.
func GetConfig() *cloud.Config {
	// If the config has not been loaded yet...
	if state.config == nil {
		// Set up the environment variables required for config loading.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os environment: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the .toml files into the struct.
		cloud.LoadConfig(&config)
		// Store the loaded config in the state manager.
		state.config = config
	}
	// Return the cached config.
	return state.config
}

// InitState initializes the entire application state.
// It orchestrates the creation of all necessary services and clients based on the
// application configuration and wires them together.
//
// Inputs:
//   - ctx: The root context.Context for the application, used for managing
//     the lifecycle of client connections and background processes.
//
// This function performs the following steps:
//  1. Loads the application configuration.
//  2. Initializes the Google Cloud service clients when cloud storage is
//     enabled; a local deployment skips them entirely.
//  3. Builds the object store, the FFmpeg and whisper wrappers, and the
//     optional BigQuery clip service.
//  4. Constructs the analysis and render workflows and wires them into the
//     job orchestrator as per-job chain factories.
//  5. Starts the job janitor and, on cloud deployments, the Pub/Sub upload
//     listener.
func InitState(ctx context.Context) {
	// Get the application configuration.
	config := GetConfig()

	// Cloud clients are only needed when the deployment stores media in GCS.
	// Everything else (ffmpeg, whisper, the job registry) is local machinery.
	if config.Storage.UseCloudStorage {
		cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
		if err != nil {
			panic(err)
		}
		state.cloud = cloudClients

		state.store = services.NewGCSStore(
			cloudClients.StorageClient,
			cloudClients.IAMClient,
			config.Application.SignerServiceAccountEmail,
			config.Storage.OutputBucket)

		// The clips warehouse is optional even on cloud deployments.
		if len(config.BigQueryDataSource.DatasetName) > 0 {
			state.clipService = &services.ClipService{
				BigqueryClient: cloudClients.BiqQueryClient,
				DatasetName:    config.BigQueryDataSource.DatasetName,
				ClipTable:      config.BigQueryDataSource.ClipTable,
			}
		}
	} else {
		state.store = services.NewLocalStore(config.Storage.LocalOutputDir, config.Storage.LocalBaseURL)
	}

	// Wrap the external media binaries.
	runner := media.NewExecRunner()
	state.ffmpeg = media.NewFFmpeg(config.Tools.FfmpegPath, config.Tools.FfprobePath, runner)
	state.whisper = media.NewWhisper(
		config.Tools.WhisperPath,
		config.Tools.WhisperModel,
		config.Tools.WhisperLanguage,
		config.Tools.WhisperThreads,
		runner)

	// Build the two pipeline workflows and wire them into the orchestrator
	// as factories: each submitted job gets its own freshly built chain.
	analysisWorkflow := workflow.NewClipAnalysisWorkflow(
		config, state.cloud, state.store, state.ffmpeg, state.whisper, state.clipService, "vibe-scorer")
	renderWorkflow := workflow.NewTimelineRenderWorkflow(config, state.store, state.ffmpeg)

	state.registry = jobs.NewRegistry()
	state.orchestrator = jobs.NewOrchestrator(
		state.registry,
		func(req *model.ProcessRequest) cor.Chain { return analysisWorkflow.BuildChain(req) },
		func(req *model.RenderRequest) cor.Chain { return renderWorkflow.BuildChain(req) })

	// Sweep terminal jobs out of the registry after the retention window.
	retention := time.Duration(config.Jobs.RetentionMinutes) * time.Minute
	if retention <= 0 {
		retention = time.Hour
	}
	interval := time.Duration(config.Jobs.JanitorIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	state.registry.StartJanitor(ctx.Done(), retention, interval)

	// Configure and start the Pub/Sub listener that reacts to GCS upload events.
	if state.cloud != nil {
		SetupListeners(config, state.cloud, ctx)
	}
}

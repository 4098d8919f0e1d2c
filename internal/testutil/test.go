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

// Package test provides utility functions and mock data to support the application's
// test suite. It helps in setting up a consistent test environment, loading
// test-specific configurations, and providing sample data for workflows and services.
package test

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// StateManager acts as a simple in-memory cache for the application configuration
// during test runs. This prevents the need to reload configuration files for every
// test, speeding up the test suite.
type StateManager struct {
	config *cloud.Config
}

// state is a package-level variable that holds the singleton instance of StateManager,
// ensuring that the configuration is loaded only once per test run.
var state = &StateManager{}

// HandleErr is a simple test helper function that checks if an error is not nil.
// If an error exists, it fails the test immediately by calling t.Errorf.
// This is a convenience function to reduce boilerplate error-checking code in tests.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestUploadMessageText returns a hardcoded JSON string that simulates a
// Pub/Sub notification message from Google Cloud Storage for a video file
// finalized in the upload bucket. This mock data is used to test the upload
// trigger command.
//
// Returns:
//   - A string containing the JSON payload of a GCS notification.
func GetTestUploadMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "clip_pipeline_uploads/test-trailer-001.mp4/1728615848664286",
  "selfLink": "https://www.googleapis.com/storage/v1/b/clip_pipeline_uploads/o/test-trailer-001.mp4",
  "name": "test-trailer-001.mp4",
  "bucket": "clip_pipeline_uploads",
  "generation": "1728615848664286",
  "metageneration": "1",
  "contentType": "video/mp4",
  "timeCreated": "2024-10-11T03:04:08.672Z",
  "updated": "2024-10-11T03:04:08.672Z",
  "storageClass": "STANDARD",
  "timeStorageClassUpdated": "2024-10-11T03:04:08.672Z",
  "size": "259348037",
  "md5Hash": "67c1rAU+1RYZzK5zp8iBkA==",
  "mediaLink": "https://storage.googleapis.com/download/storage/v1/b/clip_pipeline_uploads/o/test-trailer-001.mp4?generation=1728615848664286&alt=media",
  "metadata": { "touch": "18" },
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAE="
	}`
}

// GetTestSidecarMessageText returns a notification payload for a non-video
// object landing in the upload bucket. The upload trigger is expected to
// ignore these without error.
//
// Returns:
//   - A string containing the JSON payload of a GCS notification.
func GetTestSidecarMessageText() string {
	return `{
  "kind": "storage#object",
  "id": "clip_pipeline_uploads/test-trailer-001.jpg/1728615848664287",
  "name": "test-trailer-001.jpg",
  "bucket": "clip_pipeline_uploads",
  "generation": "1728615848664287",
  "metageneration": "1",
  "contentType": "image/jpeg",
  "timeCreated": "2024-10-11T03:04:09.672Z",
  "updated": "2024-10-11T03:04:09.672Z",
  "storageClass": "STANDARD",
  "size": "84512",
  "crc32c": "IYeSTw==",
  "etag": "CN658+yrhYkDEAF="
}
`
}

// WriteTestVideo writes a file that carries a valid MP4 header so the
// pipeline's type sniffing accepts it as video. The body is filler; tests
// that use it stub out the actual media tool invocations.
//
// Inputs:
//   - t: The current test, used for fatal setup failures.
//   - dir: The directory to create the file in.
//   - name: The file name.
//
// Returns:
//   - The absolute path of the created file.
func WriteTestVideo(t *testing.T, dir string, name string) string {
	t.Helper()
	header := []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
		'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00,
		'm', 'p', '4', '2', 'i', 's', 'o', 'm',
	}
	content := append(header, make([]byte, 1024)...)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write test video: %v", err)
	}
	return path
}

// GetTestTranscript returns a small timed transcript covering 0..24s,
// shaped like real whisper output for a short trailer.
//
// Returns:
//   - A pointer to a populated model.Transcript.
func GetTestTranscript() *model.Transcript {
	segments := []*model.TranscriptSegment{
		{Start: 0.0, End: 3.2, Text: "Welcome back everyone, this is the moment we have been waiting for."},
		{Start: 3.2, End: 7.8, Text: "The crowd is going wild and the energy in here is absolutely amazing!"},
		{Start: 7.8, End: 12.4, Text: "I never thought we would make it this far, but here we are."},
		{Start: 12.4, End: 17.0, Text: "Every single practice, every early morning, it all led to this."},
		{Start: 17.0, End: 20.5, Text: "Can you believe what just happened? Unbelievable!"},
		{Start: 20.5, End: 24.0, Text: "Thanks for watching, and we will see you in the next one."},
	}
	text := ""
	words := 0
	for _, s := range segments {
		if len(text) > 0 {
			text += " "
		}
		text += s.Text
		words += len(strings.Fields(s.Text))
	}
	return &model.Transcript{
		Segments:  segments,
		Text:      text,
		Language:  "en",
		Duration:  24.0,
		WordCount: words,
	}
}

// GetTestWhisperJSON returns the raw JSON a whisper.cpp run with -oj would
// produce for a two-segment clip, used to test transcript parsing.
//
// Returns:
//   - A string containing the whisper output JSON.
func GetTestWhisperJSON() string {
	return `{
  "systeminfo": "AVX = 1 | AVX2 = 1 | AVX512 = 0",
  "model": { "type": "base", "multilingual": false, "vocab": 51864 },
  "result": { "language": "en" },
  "transcription": [
    {
      "timestamps": { "from": "00:00:00,000", "to": "00:00:04,500" },
      "offsets": { "from": 0, "to": 4500 },
      "text": " Welcome back everyone."
    },
    {
      "timestamps": { "from": "00:00:04,500", "to": "00:00:09,250" },
      "offsets": { "from": 4500, "to": 9250 },
      "text": " This is the moment we have been waiting for."
    }
  ]
}`
}

// SetupOS configures the necessary environment variables that the configuration
// loader (`cloud.LoadConfig`) depends on. By setting these variables, we can
// direct the loader to use the test-specific configuration files (e.g.,
// `configs/.env.test.toml`) instead of production or development ones.
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	// Set the directory where the configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Set the runtime environment identifier to "test". This causes the loader
	// to look for a file named ".env.test.toml" for overrides.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration.
// It ensures that the configuration is loaded from TOML files only once and
// is cached in the package-level `state` variable for subsequent calls.
// This is the primary way tests should retrieve their configuration.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	// Check if the config is already cached.
	if state.config == nil {
		// If not cached, set up the OS environment for the test configuration.
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		// Create a new, empty config struct.
		config := cloud.NewConfig()
		// Load the configuration from the TOML files into the struct.
		// `LoadConfig` handles the hierarchical loading (base file + test override).
		cloud.LoadConfig(&config)
		// Cache the loaded config in our state manager.
		state.config = config
	}
	// Return the cached configuration.
	return state.config
}

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

// Package media_test contains unit tests for the external tool wrappers.
// The tests run against a recording Runner, so no ffmpeg or whisper binary
// is required.
package media_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	testutil "github.com/jaycherian/gcp-go-clip-pipeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseWhisperJSON verifies the conversion of whisper.cpp output:
// millisecond offsets become seconds and the aggregate fields are derived.
func TestParseWhisperJSON(t *testing.T) {
	transcript, err := media.ParseWhisperJSON([]byte(testutil.GetTestWhisperJSON()))
	require.NoError(t, err)

	require.Len(t, transcript.Segments, 2)
	assert.Equal(t, 0.0, transcript.Segments[0].Start)
	assert.Equal(t, 4.5, transcript.Segments[0].End)
	assert.Equal(t, "Welcome back everyone.", transcript.Segments[0].Text)
	assert.Equal(t, 4.5, transcript.Segments[1].Start)
	assert.Equal(t, 9.25, transcript.Segments[1].End)

	assert.Equal(t, "en", transcript.Language)
	assert.Equal(t, 9.25, transcript.Duration)
	assert.Equal(t, 12, transcript.WordCount)
	assert.Contains(t, transcript.Text, "Welcome back everyone. This is the moment")
}

// TestParseWhisperJSONDropsEmptySegments verifies that whitespace-only
// segments (whisper emits these around long silences) are excluded.
func TestParseWhisperJSONDropsEmptySegments(t *testing.T) {
	raw := `{
  "result": { "language": "en" },
  "transcription": [
    { "offsets": { "from": 0, "to": 1000 }, "text": "   " },
    { "offsets": { "from": 1000, "to": 2000 }, "text": " hello " }
  ]
}`
	transcript, err := media.ParseWhisperJSON([]byte(raw))
	require.NoError(t, err)
	require.Len(t, transcript.Segments, 1)
	assert.Equal(t, "hello", transcript.Segments[0].Text)
	assert.Equal(t, 1, transcript.WordCount)
}

// TestParseWhisperJSONRejectsGarbage verifies malformed output is an error.
func TestParseWhisperJSONRejectsGarbage(t *testing.T) {
	_, err := media.ParseWhisperJSON([]byte("not json at all"))
	assert.Error(t, err)
}

// TestTranscribeReadsSidecarOutput verifies the full invocation: the
// wrapper passes the JSON output flags and parses the sidecar file the
// process leaves behind.
func TestTranscribeReadsSidecarOutput(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "audio")

	runner := &scriptedRunner{
		run: func(ctx context.Context, bin string, args []string) error {
			assert.Equal(t, "whisper-cli", bin)
			assert.Contains(t, args, "-oj")
			assert.Contains(t, args, prefix)
			return os.WriteFile(prefix+".json", []byte(testutil.GetTestWhisperJSON()), 0o644)
		},
	}
	whisper := media.NewWhisper("", "", "en", 0, runner)

	transcript, err := whisper.Transcribe(context.Background(), filepath.Join(dir, "audio.wav"), prefix)
	require.NoError(t, err)
	assert.Len(t, transcript.Segments, 2)
	assert.Equal(t, 9.25, transcript.Duration)
}

// scriptedRunner lets a test script the behavior of tool invocations.
type scriptedRunner struct {
	run    func(ctx context.Context, bin string, args []string) error
	output func(ctx context.Context, bin string, args []string) ([]byte, error)
}

func (r *scriptedRunner) Run(ctx context.Context, bin string, args []string) error {
	if r.run == nil {
		return nil
	}
	return r.run(ctx, bin, args)
}

func (r *scriptedRunner) Output(ctx context.Context, bin string, args []string) ([]byte, error) {
	if r.output == nil {
		return nil, nil
	}
	return r.output(ctx, bin, args)
}

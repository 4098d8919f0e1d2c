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

package media_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProbeDurationParsesOutput verifies the ffprobe invocation and the
// parsing of its single-line answer, including surrounding whitespace.
func TestProbeDurationParsesOutput(t *testing.T) {
	runner := &scriptedRunner{
		output: func(ctx context.Context, bin string, args []string) ([]byte, error) {
			assert.Equal(t, "ffprobe", bin)
			assert.Contains(t, strings.Join(args, " "), "format=duration")
			return []byte("42.375000\n"), nil
		},
	}
	ffmpeg := media.NewFFmpeg("", "", runner)

	dur, err := ffmpeg.ProbeDuration(context.Background(), "/tmp/video.mp4")
	require.NoError(t, err)
	assert.Equal(t, 42.375, dur)
}

// TestProbeDurationRejectsUnparsableOutput verifies a clear error when
// ffprobe answers with something that is not a number.
func TestProbeDurationRejectsUnparsableOutput(t *testing.T) {
	runner := &scriptedRunner{
		output: func(ctx context.Context, bin string, args []string) ([]byte, error) {
			return []byte("N/A"), nil
		},
	}
	ffmpeg := media.NewFFmpeg("", "", runner)

	_, err := ffmpeg.ProbeDuration(context.Background(), "/tmp/video.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparsable")
}

// TestCutClipSelectsCodecMode verifies the two cutting modes: stream copy
// for fast cuts and an x264 re-encode for frame-accurate ones.
func TestCutClipSelectsCodecMode(t *testing.T) {
	var captured string
	runner := &scriptedRunner{
		run: func(ctx context.Context, bin string, args []string) error {
			captured = strings.Join(args, " ")
			return nil
		},
	}
	ffmpeg := media.NewFFmpeg("", "", runner)

	require.NoError(t, ffmpeg.CutClip(context.Background(), "/tmp/in.mp4", 12.5, 8, true, "/tmp/out.mp4"))
	assert.Contains(t, captured, "-ss 12.500")
	assert.Contains(t, captured, "-c copy")

	require.NoError(t, ffmpeg.CutClip(context.Background(), "/tmp/in.mp4", 12.5, 8, false, "/tmp/out.mp4"))
	assert.Contains(t, captured, "libx264")
	assert.NotContains(t, captured, "-c copy")
}

// TestExtractAudioTargetsWhisperFormat verifies the WAV conversion asks for
// 16 kHz mono PCM.
func TestExtractAudioTargetsWhisperFormat(t *testing.T) {
	var captured string
	runner := &scriptedRunner{
		run: func(ctx context.Context, bin string, args []string) error {
			assert.Equal(t, "ffmpeg", bin)
			captured = strings.Join(args, " ")
			return nil
		},
	}
	ffmpeg := media.NewFFmpeg("", "", runner)

	require.NoError(t, ffmpeg.ExtractAudio(context.Background(), "/tmp/in.mp4", "/tmp/out.wav"))
	assert.Contains(t, captured, "-ar 16000")
	assert.Contains(t, captured, "-ac 1")
	assert.Contains(t, captured, "pcm_s16le")
}

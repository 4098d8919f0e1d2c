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

// This file wraps the whisper.cpp command line. Transcription runs in two
// steps: FFmpeg first converts the source audio to the 16 kHz mono WAV
// that whisper.cpp requires, then the whisper binary emits a JSON sidecar
// file that is parsed into the transcript model.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// Whisper issues whisper.cpp invocations through a Runner.
type Whisper struct {
	Bin       string // Path to the whisper.cpp main binary.
	ModelPath string // Optional path to a ggml model file.
	Language  string // Optional language hint; empty means auto-detect.
	Threads   int    // Worker threads for the whisper process.
	Runner    Runner
}

// NewWhisper is the constructor for the whisper.cpp tool wrapper.
func NewWhisper(bin string, modelPath string, language string, threads int, runner Runner) *Whisper {
	if len(bin) == 0 {
		bin = "whisper-cli"
	}
	if threads <= 0 {
		threads = 4
	}
	return &Whisper{Bin: bin, ModelPath: modelPath, Language: language, Threads: threads, Runner: runner}
}

// Transcribe runs whisper.cpp over the WAV file and parses the JSON output
// it leaves at outPrefix.json.
func (w *Whisper) Transcribe(ctx context.Context, wavPath string, outPrefix string) (*model.Transcript, error) {
	args := []string{
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-t", strconv.Itoa(w.Threads),
	}
	if len(w.ModelPath) > 0 {
		args = append(args, "-m", w.ModelPath)
	}
	if len(w.Language) > 0 {
		args = append(args, "-l", w.Language)
	}

	if err := w.Runner.Run(ctx, w.Bin, args); err != nil {
		return nil, err
	}

	jsonPath := outPrefix + ".json"
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read whisper output %s: %w", jsonPath, err)
	}
	return ParseWhisperJSON(raw)
}

// whisperOutput mirrors the JSON shape whisper.cpp writes with -oj.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"` // milliseconds
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
}

// ParseWhisperJSON converts raw whisper.cpp JSON into a Transcript.
// Segments with empty text are dropped; offsets are converted from
// milliseconds to seconds.
func ParseWhisperJSON(raw []byte) (*model.Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	t := &model.Transcript{Language: out.Result.Language}
	var full strings.Builder
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if len(text) == 0 {
			continue
		}
		t.Segments = append(t.Segments, &model.TranscriptSegment{
			Start: float64(seg.Offsets.From) / 1000.0,
			End:   float64(seg.Offsets.To) / 1000.0,
			Text:  text,
		})
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)
		t.WordCount += len(strings.Fields(text))
	}
	t.Text = full.String()
	if n := len(t.Segments); n > 0 {
		t.Duration = t.Segments[n-1].End
	}
	return t, nil
}

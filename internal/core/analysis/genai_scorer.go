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

// This file implements the generative scorer. It prompts a Gemini model
// with the window's transcript text and the creative targets, and parses
// the model's JSON response into sub-scores.
//
// The prompt embeds a complete example of the expected JSON output
// (few-shot prompting), which keeps the model's responses consistent and
// parsable. The model wrapper handles rate limiting; this file adds the
// retry and telemetry plumbing shared by every Gemini call site.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/cloud"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// GenAIScorer scores windows by prompting a rate-limited Gemini model.
type GenAIScorer struct {
	generativeAIModel        *cloud.QuotaAwareGenerativeAIModel // The rate-limited generative model client.
	template                 *template.Template                 // The Go template for building the scoring prompt.
	geminiInputTokenCounter  metric.Int64Counter                // OTel counter for input tokens.
	geminiOutputTokenCounter metric.Int64Counter                // OTel counter for output tokens.
	geminiRetryCounter       metric.Int64Counter                // OTel counter for retries.
}

// NewGenAIScorer is the constructor for the GenAIScorer.
//
// Inputs:
//   - generativeAIModel: The rate-limited wrapper for the generative model client.
//   - promptTemplate: A parsed Go template for the scoring prompt. It may
//     reference WINDOW_TEXT, START_TIME, END_TIME, VIBE, AGE_GROUP, VIBES,
//     AGE_GROUPS, and EXAMPLE_JSON.
//
// Outputs:
//   - *GenAIScorer: A pointer to the newly instantiated scorer, including
//     initialized telemetry counters.
func NewGenAIScorer(
	generativeAIModel *cloud.QuotaAwareGenerativeAIModel,
	promptTemplate *template.Template) *GenAIScorer {

	meter := otel.Meter("github.com/GoogleCloudPlatform/solutions/media")
	out := &GenAIScorer{
		generativeAIModel: generativeAIModel,
		template:          promptTemplate,
	}
	out.geminiInputTokenCounter, _ = meter.Int64Counter("vibe-scorer.gemini.token.input")
	out.geminiOutputTokenCounter, _ = meter.Int64Counter("vibe-scorer.gemini.token.output")
	out.geminiRetryCounter, _ = meter.Int64Counter("vibe-scorer.gemini.token.retry")
	return out
}

// GenerateParams creates the map of dynamic data to be injected into the
// prompt template for one window.
func (s *GenAIScorer) GenerateParams(window *model.ChunkWindow, targets Targets) map[string]interface{} {
	params := make(map[string]interface{})
	params["WINDOW_TEXT"] = window.Text()
	params["START_TIME"] = fmt.Sprintf("%.2f", window.Start)
	params["END_TIME"] = fmt.Sprintf("%.2f", window.End)
	params["VIBE"] = targets.Vibe
	params["AGE_GROUP"] = targets.AgeGroup
	params["VIBES"] = strings.Join(model.Vibes, ", ")
	params["AGE_GROUPS"] = strings.Join(model.AgeGroups, ", ")

	// Few-shot prompting: a complete, well-formed JSON example steers the
	// model to return scores in the exact shape the parser expects.
	exampleScore, _ := json.Marshal(model.GetExampleWindowScore())
	params["EXAMPLE_JSON"] = string(exampleScore)
	return params
}

// Score implements Scorer. It renders the prompt, calls the model, and
// parses the JSON response into a WindowScore.
func (s *GenAIScorer) Score(ctx context.Context, window *model.ChunkWindow, targets Targets) (*model.WindowScore, error) {
	var buffer bytes.Buffer
	if err := s.template.Execute(&buffer, s.GenerateParams(window, targets)); err != nil {
		return nil, fmt.Errorf("failed to execute scoring prompt template: %w", err)
	}

	contents := cloud.NewTextPart(buffer.String())
	out, err := cloud.GenerateMultiModalResponse(
		ctx,
		s.geminiInputTokenCounter,
		s.geminiOutputTokenCounter,
		s.geminiRetryCounter,
		0,
		s.generativeAIModel,
		contents)
	if err != nil {
		return nil, fmt.Errorf("gemini scoring request failed: %w", err)
	}

	score := &model.WindowScore{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), score); err != nil {
		return nil, fmt.Errorf("failed to parse scoring response %q: %w", out, err)
	}
	return score, nil
}

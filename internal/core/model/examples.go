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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides factory functions for creating hardcoded, example
// instances of the data models.
//
// These example objects are used for "few-shot" prompting with the
// generative AI models. By providing a concrete example of the desired JSON
// output structure within the prompt itself, we guide the AI to return data
// that is consistent, correctly formatted, and easily parsable.
package model

// GetExampleWindowScore creates a sample WindowScore object. It is embedded
// in the vibe scoring prompt so the model returns sub-scores in the exact
// JSON shape the parser expects, with integer-valued scores in [0, 100]
// and a short one-sentence justification.
//
// Outputs:
//   - *WindowScore: A pointer to a hardcoded WindowScore object.
func GetExampleWindowScore() *WindowScore {
	return &WindowScore{
		VibeMatch:     82,
		AgeGroupMatch: 74,
		ClipPotential: 88,
		Reason:        "Self-contained joke with a clear punchline; energetic delivery matches the requested mood.",
	}
}

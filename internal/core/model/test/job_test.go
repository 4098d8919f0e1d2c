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

// Package model_test contains unit tests for the data models defined in the
// model package. This file tests the job lifecycle vocabulary: terminal
// states, stage identification, and stage progress mapping.
package model_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestJobStatusTerminal verifies which statuses permit further transitions.
func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, model.JobStatusQueued.Terminal())
	assert.False(t, model.JobStatusRunning.Terminal())
	assert.True(t, model.JobStatusCompleted.Terminal())
	assert.True(t, model.JobStatusFailed.Terminal())
}

// TestKnownStage verifies that pipeline command names map back to stages
// and that helper command names are ignored.
func TestKnownStage(t *testing.T) {
	stage, ok := model.KnownStage(string(model.StageTranscribing))
	assert.True(t, ok)
	assert.Equal(t, model.StageTranscribing, stage)

	_, ok = model.KnownStage("some-helper-command")
	assert.False(t, ok)
}

// TestStageProgressMonotonic verifies that progress advances through the
// analysis stages in execution order, since clients drive progress bars
// directly off these values.
func TestStageProgressMonotonic(t *testing.T) {
	order := []model.Stage{
		model.StageFetchingSource,
		model.StageTranscribing,
		model.StageChunking,
		model.StageAnalyzingVibe,
		model.StageExtractingClips,
		model.StagePersistingClips,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Progress(), order[i-1].Progress(),
			"stage %s should report more progress than %s", order[i], order[i-1])
	}
}

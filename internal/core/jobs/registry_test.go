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

// Package jobs_test contains unit tests for the job registry: lifecycle
// transitions, the polling error taxonomy, and terminal-state immutability.
package jobs_test

import (
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistryCreateAndGet verifies the initial state of a new job and
// that lookups return copies of it.
func TestRegistryCreateAndGet(t *testing.T) {
	registry := jobs.NewRegistry()
	created := registry.Create(model.JobKindAnalysis)

	assert.NotEmpty(t, created.Id)
	assert.Equal(t, model.JobStatusQueued, created.Status)
	assert.Equal(t, 0.0, created.Progress)

	fetched, err := registry.Get(created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, fetched.Id)

	// Mutating the returned copy must not touch the registry's state.
	fetched.Status = model.JobStatusFailed
	again, err := registry.Get(created.Id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, again.Status)
}

// TestRegistryUnknownJob verifies the not-found taxonomy for both polling
// surfaces and deletion.
func TestRegistryUnknownJob(t *testing.T) {
	registry := jobs.NewRegistry()

	_, err := registry.Get("no-such-job")
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	_, err = registry.Result("no-such-job")
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	assert.ErrorIs(t, registry.Delete("no-such-job"), jobs.ErrNotFound)
}

// TestRegistryResultNotReady verifies that requesting the result of a
// queued or running job yields ErrNotReady, not a failure.
func TestRegistryResultNotReady(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create(model.JobKindAnalysis)

	_, err := registry.Result(job.Id)
	assert.ErrorIs(t, err, jobs.ErrNotReady)

	registry.StartStep(job.Id, model.StageTranscribing)
	_, err = registry.Result(job.Id)
	assert.ErrorIs(t, err, jobs.ErrNotReady)
}

// TestRegistryStartStepAdvancesProgress verifies the stage bookkeeping a
// status poll observes.
func TestRegistryStartStepAdvancesProgress(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create(model.JobKindAnalysis)

	registry.StartStep(job.Id, model.StageFetchingSource)
	snapshot, err := registry.Get(job.Id)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, snapshot.Status)
	assert.Equal(t, model.StageFetchingSource, snapshot.CurrentStep)
	assert.Equal(t, model.StageFetchingSource.Progress(), snapshot.Progress)

	registry.StartStep(job.Id, model.StageAnalyzingVibe)
	snapshot, _ = registry.Get(job.Id)
	assert.Equal(t, model.StageAnalyzingVibe, snapshot.CurrentStep)
	assert.Greater(t, snapshot.Progress, model.StageFetchingSource.Progress())
}

// TestRegistryCompleteStoresResult verifies the completed transition and
// result retrieval.
func TestRegistryCompleteStoresResult(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create(model.JobKindAnalysis)

	payload := &model.AnalysisResult{VibeAnalysis: &model.VibeAnalysis{}}
	registry.Complete(job.Id, payload)

	snapshot, _ := registry.Get(job.Id)
	assert.Equal(t, model.JobStatusCompleted, snapshot.Status)
	assert.Equal(t, 1.0, snapshot.Progress)

	result, err := registry.Result(job.Id)
	require.NoError(t, err)
	assert.Same(t, payload, result)
}

// TestRegistryFailSurfacesMessage verifies the failed transition and that
// the captured message is returned verbatim through the result surface.
func TestRegistryFailSurfacesMessage(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create(model.JobKindRender)

	registry.Fail(job.Id, "compositing_timeline: concatenation failed")

	_, err := registry.Result(job.Id)
	var failed *jobs.FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "compositing_timeline: concatenation failed", failed.Message)
}

// TestRegistryTerminalStateIsImmutable verifies that no transition can
// move a job out of a terminal state, including a straggling StartStep
// from a pipeline goroutine.
func TestRegistryTerminalStateIsImmutable(t *testing.T) {
	registry := jobs.NewRegistry()
	job := registry.Create(model.JobKindAnalysis)

	registry.Fail(job.Id, "boom")
	registry.Complete(job.Id, "should be ignored")
	registry.StartStep(job.Id, model.StageExtractingClips)
	registry.AddClipFailure(job.Id, &model.ClipFailure{Rank: 1, Reason: "late"})

	snapshot, _ := registry.Get(job.Id)
	assert.Equal(t, model.JobStatusFailed, snapshot.Status)
	assert.Equal(t, "boom", snapshot.Error)
	assert.Empty(t, snapshot.FailedClips)
}

// TestRegistryListNewestFirst verifies the listing order.
func TestRegistryListNewestFirst(t *testing.T) {
	registry := jobs.NewRegistry()
	first := registry.Create(model.JobKindAnalysis)
	second := registry.Create(model.JobKindRender)

	listed := registry.List()
	require.Len(t, listed, 2)
	// Both jobs may share a timestamp at this resolution; just verify both
	// are present and deletion shrinks the listing.
	ids := map[string]bool{listed[0].Id: true, listed[1].Id: true}
	assert.True(t, ids[first.Id])
	assert.True(t, ids[second.Id])

	require.NoError(t, registry.Delete(first.Id))
	assert.Len(t, registry.List(), 1)
}

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

// This file tests the orchestrator: synchronous payload validation, the
// asynchronous chain launch, and how chain outcomes fold into the job.
package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCommand is a minimal pipeline stage for exercising the orchestrator.
// It emits a fixed output, or records a fixed error instead.
type stubCommand struct {
	cor.BaseCommand
	output interface{}
	err    error
}

func newStubCommand(name string, output interface{}, err error) *stubCommand {
	return &stubCommand{BaseCommand: *cor.NewBaseCommand(name), output: output, err: err}
}

func (c *stubCommand) Execute(context cor.Context) {
	if c.err != nil {
		context.AddError(c.GetName(), c.err)
		return
	}
	context.Add(c.GetOutputParam(), c.output)
}

// chainOf builds a single-command chain the way the workflow factories do.
func chainOf(name string, commands ...cor.Command) cor.Chain {
	chain := cor.NewBaseChain(name)
	for _, c := range commands {
		chain.AddCommand(c)
	}
	return chain
}

func waitForTerminal(t *testing.T, registry *jobs.Registry, jobId string) model.Job {
	t.Helper()
	var snapshot model.Job
	require.Eventually(t, func() bool {
		var err error
		snapshot, err = registry.Get(jobId)
		require.NoError(t, err)
		return snapshot.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return snapshot
}

// TestSubmitAnalysisRejectsInvalidPayloads verifies that malformed requests
// are rejected synchronously, before any job exists in the registry.
func TestSubmitAnalysisRejectsInvalidPayloads(t *testing.T) {
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(registry,
		func(req *model.ProcessRequest) cor.Chain { t.Fatal("factory must not run"); return nil },
		nil)

	cases := []*model.ProcessRequest{
		nil,
		{VideoURL: "   "},
		{VideoURL: "gs://bucket/video.mp4", ChunkStrategy: "jittery"},
	}
	for _, req := range cases {
		_, err := orchestrator.SubmitAnalysis(context.Background(), req)
		var invalid *jobs.InvalidPayloadError
		assert.ErrorAs(t, err, &invalid)
	}
	assert.Empty(t, registry.List())
}

// TestSubmitRenderRejectsEmptyTimeline verifies the render payload check.
func TestSubmitRenderRejectsEmptyTimeline(t *testing.T) {
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(registry, nil,
		func(req *model.RenderRequest) cor.Chain { t.Fatal("factory must not run"); return nil })

	for _, req := range []*model.RenderRequest{nil, {}} {
		_, err := orchestrator.SubmitRender(context.Background(), req)
		var invalid *jobs.InvalidPayloadError
		assert.ErrorAs(t, err, &invalid)
	}
	assert.Empty(t, registry.List())
}

// TestSubmitAnalysisDefaultsChunkStrategy verifies that an omitted strategy
// is filled in before the factory sees the request.
func TestSubmitAnalysisDefaultsChunkStrategy(t *testing.T) {
	registry := jobs.NewRegistry()
	var seen model.ChunkStrategy
	orchestrator := jobs.NewOrchestrator(registry,
		func(req *model.ProcessRequest) cor.Chain {
			seen = req.ChunkStrategy
			return chainOf("test-pipeline", newStubCommand("noop", "done", nil))
		},
		nil)

	job, err := orchestrator.SubmitAnalysis(context.Background(), &model.ProcessRequest{VideoURL: "gs://bucket/video.mp4"})
	require.NoError(t, err)
	assert.Equal(t, model.ChunkStrategyFixed, seen)
	waitForTerminal(t, registry, job.Id)
}

// TestOrchestratorCompletesJobWithChainOutput verifies the happy path: the
// last command's output becomes the job result and stage starts are
// reported to the registry.
func TestOrchestratorCompletesJobWithChainOutput(t *testing.T) {
	registry := jobs.NewRegistry()
	result := &model.AnalysisResult{}
	orchestrator := jobs.NewOrchestrator(registry,
		func(req *model.ProcessRequest) cor.Chain {
			return chainOf("test-pipeline",
				newStubCommand(string(model.StageFetchingSource), "fetched", nil),
				newStubCommand(string(model.StageTranscribing), result, nil))
		},
		nil)

	job, err := orchestrator.SubmitAnalysis(context.Background(), &model.ProcessRequest{VideoURL: "gs://bucket/video.mp4"})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)

	snapshot := waitForTerminal(t, registry, job.Id)
	assert.Equal(t, model.JobStatusCompleted, snapshot.Status)
	assert.Equal(t, model.StageTranscribing, snapshot.CurrentStep)

	got, err := registry.Result(job.Id)
	require.NoError(t, err)
	assert.Same(t, result, got)
}

// ctxSensitiveCommand fails if the Go context the chain runs under has been
// canceled, the way every exec-backed stage does, and emits its output
// otherwise.
type ctxSensitiveCommand struct {
	cor.BaseCommand
	output interface{}
}

func (c *ctxSensitiveCommand) Execute(context cor.Context) {
	// Give the submitter time to return and cancel its request context.
	time.Sleep(50 * time.Millisecond)
	if err := context.GetContext().Err(); err != nil {
		context.AddError(c.GetName(), err)
		return
	}
	context.Add(c.GetOutputParam(), c.output)
}

// TestOrchestratorOutlivesSubmissionContext verifies the submit-then-poll
// contract: canceling the submission context (as net/http does the moment
// the handler returns) must not kill the pipeline already in flight.
func TestOrchestratorOutlivesSubmissionContext(t *testing.T) {
	registry := jobs.NewRegistry()
	result := &model.AnalysisResult{}
	orchestrator := jobs.NewOrchestrator(registry,
		func(req *model.ProcessRequest) cor.Chain {
			stage := &ctxSensitiveCommand{
				BaseCommand: *cor.NewBaseCommand(string(model.StageFetchingSource)),
				output:      result,
			}
			return chainOf("test-pipeline", stage)
		},
		nil)

	submitCtx, cancel := context.WithCancel(context.Background())
	job, err := orchestrator.SubmitAnalysis(submitCtx, &model.ProcessRequest{VideoURL: "gs://bucket/video.mp4"})
	require.NoError(t, err)
	cancel()

	snapshot := waitForTerminal(t, registry, job.Id)
	assert.Equal(t, model.JobStatusCompleted, snapshot.Status)
	assert.Empty(t, snapshot.Error)
}

// TestOrchestratorFailsJobOnChainError verifies that a command error fails
// the job with the command name and message in the captured error.
func TestOrchestratorFailsJobOnChainError(t *testing.T) {
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(registry,
		func(req *model.ProcessRequest) cor.Chain {
			return chainOf("test-pipeline",
				newStubCommand(string(model.StageFetchingSource), nil, errors.New("source not readable")))
		},
		nil)

	job, err := orchestrator.SubmitAnalysis(context.Background(), &model.ProcessRequest{VideoURL: "gs://bucket/video.mp4"})
	require.NoError(t, err)

	snapshot := waitForTerminal(t, registry, job.Id)
	assert.Equal(t, model.JobStatusFailed, snapshot.Status)
	assert.Contains(t, snapshot.Error, string(model.StageFetchingSource))
	assert.Contains(t, snapshot.Error, "source not readable")
}

// TestOrchestratorFailsJobWithoutResult verifies that a chain finishing
// cleanly but emitting nothing is treated as a failure, not a silent
// completion with a nil result.
func TestOrchestratorFailsJobWithoutResult(t *testing.T) {
	registry := jobs.NewRegistry()
	orchestrator := jobs.NewOrchestrator(registry, nil,
		func(req *model.RenderRequest) cor.Chain {
			return chainOf("test-pipeline", newStubCommand("silent", nil, nil))
		})

	job, err := orchestrator.SubmitRender(context.Background(),
		&model.RenderRequest{Items: []*model.TimelineItem{{Kind: model.TimelineItemText, Text: "hello"}}})
	require.NoError(t, err)

	snapshot := waitForTerminal(t, registry, job.Id)
	assert.Equal(t, model.JobStatusFailed, snapshot.Status)
	assert.Contains(t, snapshot.Error, "without producing a result")
}

// TestOrchestratorRecordsClipFailures verifies that isolated per-clip
// failures land in the job's metadata without failing the job.
func TestOrchestratorRecordsClipFailures(t *testing.T) {
	registry := jobs.NewRegistry()
	failure := &model.ClipFailure{Rank: 2, Reason: "extraction failed"}
	orchestrator := jobs.NewOrchestrator(registry,
		func(req *model.ProcessRequest) cor.Chain {
			reporter := newStubCommand("report-clip-failure", &model.AnalysisResult{}, nil)
			return chainWithFailure{Chain: chainOf("test-pipeline", reporter), failure: failure}
		},
		nil)

	job, err := orchestrator.SubmitAnalysis(context.Background(), &model.ProcessRequest{VideoURL: "gs://bucket/video.mp4"})
	require.NoError(t, err)

	snapshot := waitForTerminal(t, registry, job.Id)
	assert.Equal(t, model.JobStatusCompleted, snapshot.Status)
	require.Len(t, snapshot.FailedClips, 1)
	assert.Equal(t, failure.Rank, snapshot.FailedClips[0].Rank)
}

// chainWithFailure decorates a chain to plant a clip failure in the shared
// context, the way the clip extractor does.
type chainWithFailure struct {
	cor.Chain
	failure *model.ClipFailure
}

func (c chainWithFailure) Execute(context cor.Context) {
	context.Add(jobs.GetClipFailuresParameterName(), []*model.ClipFailure{c.failure})
	c.Chain.Execute(context)
}

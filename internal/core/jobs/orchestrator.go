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

// Package jobs owns the asynchronous job lifecycle. This file implements
// the orchestrator, the single entry point for submitting pipeline work.
//
// Logic Flow:
//  1. A submission is validated synchronously. Malformed payloads are
//     rejected with an InvalidPayloadError before any job exists.
//  2. A job is created in the registry and its id returned immediately.
//  3. A fresh command chain is built for the job (one chain per job, so a
//     chain can never be executed twice) and launched on a goroutine.
//  4. A chain observer reports each starting command that corresponds to a
//     known stage back to the registry, which is what status polls see.
//  5. When the chain finishes, the collected context state is folded into
//     the job: errors fail it, otherwise the final output completes it.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/cor"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// GetClipFailuresParameterName returns the context key under which the clip
// extractor records isolated per-clip failures. The orchestrator copies
// them into the job's metadata after the chain completes.
func GetClipFailuresParameterName() string {
	return "__clip_failures__"
}

// GetJobIdParameterName returns the context key carrying the owning job's
// id, so commands can stamp artifacts with it.
func GetJobIdParameterName() string {
	return "__job_id__"
}

// AnalysisPipelineFactory builds a fresh analysis chain for one submission.
type AnalysisPipelineFactory func(req *model.ProcessRequest) cor.Chain

// RenderPipelineFactory builds a fresh render chain for one submission.
type RenderPipelineFactory func(req *model.RenderRequest) cor.Chain

// Orchestrator validates submissions, tracks them in the registry, and runs
// their pipelines asynchronously.
type Orchestrator struct {
	registry        *Registry
	analysisFactory AnalysisPipelineFactory
	renderFactory   RenderPipelineFactory
}

// NewOrchestrator wires the orchestrator to its registry and the two
// pipeline factories.
func NewOrchestrator(
	registry *Registry,
	analysisFactory AnalysisPipelineFactory,
	renderFactory RenderPipelineFactory) *Orchestrator {
	return &Orchestrator{
		registry:        registry,
		analysisFactory: analysisFactory,
		renderFactory:   renderFactory,
	}
}

// Registry exposes the underlying job store for the polling surface.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// SubmitAnalysis validates and launches an analysis job. The returned job
// snapshot carries the id the client will poll with.
func (o *Orchestrator) SubmitAnalysis(ctx context.Context, req *model.ProcessRequest) (model.Job, error) {
	if req == nil || len(strings.TrimSpace(req.VideoURL)) == 0 {
		return model.Job{}, &InvalidPayloadError{Reason: "video_url is required"}
	}
	if len(req.ChunkStrategy) == 0 {
		req.ChunkStrategy = model.ChunkStrategyFixed
	}
	if req.ChunkStrategy != model.ChunkStrategyFixed && req.ChunkStrategy != model.ChunkStrategyAdaptive {
		return model.Job{}, &InvalidPayloadError{Reason: fmt.Sprintf("unknown chunk_strategy %q", req.ChunkStrategy)}
	}

	job := o.registry.Create(model.JobKindAnalysis)
	chain := o.analysisFactory(req)
	o.launch(ctx, job.Id, chain, req)
	return job, nil
}

// SubmitRender validates and launches a render job.
func (o *Orchestrator) SubmitRender(ctx context.Context, req *model.RenderRequest) (model.Job, error) {
	if req == nil || len(req.Items) == 0 {
		return model.Job{}, &InvalidPayloadError{Reason: "timeline_clips must not be empty"}
	}

	job := o.registry.Create(model.JobKindRender)
	chain := o.renderFactory(req)
	o.launch(ctx, job.Id, chain, req)
	return job, nil
}

// launch runs the chain for the given job on its own goroutine. The chain
// is owned exclusively by that goroutine, which guarantees that no stage
// runs twice for the same job no matter how often the job is polled.
func (o *Orchestrator) launch(ctx context.Context, jobId string, chain cor.Chain, payload interface{}) {
	chain.OnCommandStart(func(commandName string) {
		if stage, ok := model.KnownStage(commandName); ok {
			o.registry.StartStep(jobId, stage)
		}
	})

	// The submission context belongs to the caller (an HTTP request that
	// returns as soon as the job id is handed back). The pipeline must
	// outlive it, so the chain runs on a detached context that keeps the
	// caller's values (trace linkage) but not its cancelation.
	pipelineCtx := context.WithoutCancel(ctx)

	go func() {
		tracer := otel.Tracer("job-orchestrator")
		spanCtx, span := tracer.Start(pipelineCtx, fmt.Sprintf("job_%s", jobId))
		defer span.End()

		// A panic in any stage must surface as a failed job, never as a
		// crashed server.
		defer func() {
			if rec := recover(); rec != nil {
				span.SetStatus(codes.Error, "pipeline panic")
				o.registry.Fail(jobId, fmt.Sprintf("pipeline panic: %v", rec))
				slog.Error("pipeline panic", "job_id", jobId, "panic", rec)
			}
		}()

		started := time.Now()
		chainCtx := cor.NewBaseContext()
		defer chainCtx.Close()
		chainCtx.SetContext(spanCtx)
		chainCtx.Add(GetJobIdParameterName(), jobId)
		chainCtx.Add(cor.CtxIn, payload)

		chain.Execute(chainCtx)

		// Per-clip failures are metadata, not errors: copy them over
		// before deciding the job's fate.
		if failures, ok := chainCtx.Get(GetClipFailuresParameterName()).([]*model.ClipFailure); ok {
			for _, f := range failures {
				o.registry.AddClipFailure(jobId, f)
			}
		}

		if chainCtx.HasErrors() {
			span.SetStatus(codes.Error, "pipeline failed")
			o.registry.Fail(jobId, flattenErrors(chainCtx.GetErrors()))
			return
		}

		result := chainCtx.Get(cor.CtxOut)
		if result == nil {
			// The last command in the chain always emits the final payload.
			span.SetStatus(codes.Error, "pipeline produced no result")
			o.registry.Fail(jobId, "pipeline completed without producing a result")
			return
		}

		span.SetStatus(codes.Ok, "pipeline completed")
		o.registry.Complete(jobId, result)
		slog.Info("job completed", "job_id", jobId, "elapsed", time.Since(started).String())
	}()
}

// flattenErrors folds the chain's error map into one stable, readable
// message. Keys are sorted so the captured message is deterministic.
func flattenErrors(errs map[string]error) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, errs[k]))
	}
	return strings.Join(parts, "; ")
}

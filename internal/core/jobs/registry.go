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

// Package jobs owns the asynchronous job lifecycle: submission, progress
// tracking through named stages, result storage, and failure capture. This
// file implements the in-memory job registry.
//
// The registry is the only shared mutable state between the HTTP surface
// (many concurrent status polls) and the pipeline goroutines (one writer
// per job). All reads return value copies taken under the lock, so a poll
// can never observe a torn job. Transitions only move forward; once a job
// is terminal every further mutation is ignored.
package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// Sentinel errors returned by the polling surface. They are translated to
// HTTP statuses at the API layer and never cross the boundary as panics.
var (
	// ErrNotFound indicates an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady indicates a result request for a job that has not
	// completed yet. Polling through this state is expected, not an error
	// condition on the job itself.
	ErrNotReady = errors.New("job result not ready")
)

// InvalidPayloadError rejects a malformed submission synchronously, before
// any job is created.
type InvalidPayloadError struct {
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload: %s", e.Reason)
}

// FailedError carries the captured message of a failed job to a caller
// that requested its result.
type FailedError struct {
	Message string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("job failed: %s", e.Message)
}

// Registry is the concurrent job store. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*model.Job)}
}

// Create allocates a new queued job of the given kind and returns a copy.
func (r *Registry) Create(kind model.JobKind) model.Job {
	now := time.Now().UTC()
	job := &model.Job{
		Id:        uuid.NewString(),
		Kind:      kind,
		Status:    model.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.mu.Lock()
	r.jobs[job.Id] = job
	r.mu.Unlock()
	return *job
}

// Get returns a copy of the job, or ErrNotFound.
func (r *Registry) Get(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return *job, nil
}

// Result returns the final payload of a completed job. It fails with
// ErrNotFound for unknown ids, a FailedError for failed jobs, and
// ErrNotReady for every non-terminal state.
func (r *Registry) Result(id string) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch job.Status {
	case model.JobStatusCompleted:
		return job.Result, nil
	case model.JobStatusFailed:
		return nil, &FailedError{Message: job.Error}
	default:
		return nil, ErrNotReady
	}
}

// List returns copies of all jobs, most recent first.
func (r *Registry) List() []model.Job {
	r.mu.RLock()
	out := make([]model.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a job and its stored result, or returns ErrNotFound.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

// StartStep records that the named stage has just begun. The job moves to
// running on its first stage. No-op for terminal jobs so a straggling
// pipeline goroutine can never resurrect a failed job.
func (r *Registry) StartStep(id string, stage model.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = model.JobStatusRunning
	job.CurrentStep = stage
	job.Progress = stage.Progress()
	job.UpdatedAt = time.Now().UTC()
}

// AddClipFailure records an isolated per-clip extraction failure against
// the job's metadata. The job itself keeps running.
func (r *Registry) AddClipFailure(id string, failure *model.ClipFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.FailedClips = append(job.FailedClips, failure)
	job.UpdatedAt = time.Now().UTC()
}

// Complete transitions the job to completed and stores its result payload.
func (r *Registry) Complete(id string, result interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = model.JobStatusCompleted
	job.Progress = 1.0
	job.Result = result
	job.UpdatedAt = time.Now().UTC()
}

// Fail transitions the job to failed with the captured error message.
func (r *Registry) Fail(id string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return
	}
	job.Status = model.JobStatusFailed
	job.Error = message
	job.UpdatedAt = time.Now().UTC()
}

// StartJanitor launches a background sweep that removes terminal jobs older
// than the retention window. It returns immediately; the sweep stops when
// the context is canceled.
func (r *Registry) StartJanitor(done <-chan struct{}, retention time.Duration, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				r.mu.Lock()
				for id, job := range r.jobs {
					if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
						delete(r.jobs, id)
						slog.Info("janitor removed expired job", "job_id", id, "status", job.Status)
					}
				}
				r.mu.Unlock()
			}
		}
	}()
}

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

// Package media wraps the external tools the pipeline shells out to:
// FFmpeg for cutting, rendering, and mixing, ffprobe for inspection, and
// whisper.cpp for transcription. This file defines the process runner
// abstraction that every tool invocation goes through, so commands and
// tests can substitute a fake without spawning processes.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Runner executes an external binary. Implementations must honor context
// cancellation by killing the child process.
type Runner interface {
	// Run executes the binary and waits for it to exit.
	Run(ctx context.Context, bin string, args []string) error
	// Output executes the binary and returns its standard output.
	Output(ctx context.Context, bin string, args []string) ([]byte, error)
}

// ExecRunner runs binaries with os/exec. Child stderr is passed through to
// the server's stderr so tool diagnostics land in the process logs.
type ExecRunner struct{}

// NewExecRunner creates the production process runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error running %s: %w", bin, err)
	}
	return nil
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, bin string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("error running %s: %w", bin, err)
	}
	return out, nil
}

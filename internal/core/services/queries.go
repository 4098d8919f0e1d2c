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

// Package services contains the business logic for interacting with data sources.
// This file, `queries.go`, centralizes all the BigQuery SQL query strings used
// by the application's services. Storing queries as constants in a dedicated
// file improves maintainability, readability, and reusability. The queries use
// `fmt.Sprintf` format verbs (e.g., %s, %d) as placeholders for dynamic values
// that will be injected at runtime.
package services

const (
	// QryFindClipsByJob retrieves every clip row produced by one analysis
	// job, in rank order.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the clips table.
	// - `%s`: The job id whose clips should be returned.
	QryFindClipsByJob = "SELECT * FROM `%s` WHERE job_id = '%s' ORDER BY rank asc"

	// QryFindClipsBySource retrieves the most recent clip rows extracted
	// from a given source video, across all jobs.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the clips table.
	// - `%s`: The source video URL.
	// - `%d`: The maximum number of rows to return.
	QryFindClipsBySource = "SELECT * FROM `%s` WHERE source_url = '%s' ORDER BY created_at desc, rank asc LIMIT %d"

	// QryTopClipsByVibe powers the catalog view: the strongest clips for a
	// vibe across every processed source, ranked by overall score.
	//
	// Placeholders:
	// - `%s`: The fully qualified name of the clips table.
	// - `%s`: The vibe to filter on.
	// - `%d`: The maximum number of rows to return.
	QryTopClipsByVibe = "SELECT * FROM `%s` WHERE vibe = '%s' ORDER BY overall desc LIMIT %d"
)

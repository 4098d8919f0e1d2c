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

// Package model defines the data structures for the application. This file
// defines the warehouse row shapes persisted to BigQuery. The `bigquery`
// struct tags drive the client library's automatic column mapping.
package model

import "time"

// ClipRecord is one extracted clip as it lands in the clips table. One row
// is written per successful clip per analysis job, so the table accumulates
// the full extraction history across runs.
type ClipRecord struct {
	JobId         string    `bigquery:"job_id" json:"job_id"`
	SourceURL     string    `bigquery:"source_url" json:"source_url"`
	Rank          int       `bigquery:"rank" json:"rank"`
	Title         string    `bigquery:"title" json:"title"`
	Vibe          string    `bigquery:"vibe" json:"vibe"`
	AgeGroup      string    `bigquery:"age_group" json:"age_group"`
	StartTime     float64   `bigquery:"start_time" json:"start_time"`
	EndTime       float64   `bigquery:"end_time" json:"end_time"`
	Duration      float64   `bigquery:"duration" json:"duration"`
	VibeMatch     float64   `bigquery:"vibe_match" json:"vibe_match"`
	AgeGroupMatch float64   `bigquery:"age_group_match" json:"age_group_match"`
	ClipPotential float64   `bigquery:"clip_potential" json:"clip_potential"`
	Overall       float64   `bigquery:"overall" json:"overall"`
	ClipURI       string    `bigquery:"clip_uri" json:"clip_uri"`
	ThumbnailURI  string    `bigquery:"thumbnail_uri" json:"thumbnail_uri"`
	CreatedAt     time.Time `bigquery:"created_at" json:"created_at"`
}

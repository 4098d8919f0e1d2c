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

// Package services contains the business logic for interacting with data
// sources. This file defines the ClipService, the data access layer for the
// clips warehouse in BigQuery. Analysis jobs stream their extracted clips
// into the table through this service, and the catalog endpoints query it
// back out.
package services

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"google.golang.org/api/iterator"
)

// ClipService encapsulates the client and configuration needed to read and
// write clip rows in BigQuery.
type ClipService struct {
	BigqueryClient *bigquery.Client // Client for interacting with Google BigQuery.
	DatasetName    string           // The name of the BigQuery dataset.
	ClipTable      string           // The name of the table holding clip rows.
}

// GetFQN returns the complete, queryable name for the clips table,
// formatted with dots instead of colons.
func (s *ClipService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ClipTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", -1)
}

// Insert streams the clip rows into the table. The client library maps
// struct fields to columns using the `bigquery` tags on ClipRecord.
func (s *ClipService) Insert(ctx context.Context, records []*model.ClipRecord) error {
	if len(records) == 0 {
		return nil
	}
	ins := s.BigqueryClient.Dataset(s.DatasetName).Table(s.ClipTable).Inserter()
	if err := ins.Put(ctx, records); err != nil {
		return fmt.Errorf("bigquery insert failed for %d clip rows: %w", len(records), err)
	}
	return nil
}

// FindByJob returns the clips produced by one analysis job, in rank order.
func (s *ClipService) FindByJob(ctx context.Context, jobId string) ([]*model.ClipRecord, error) {
	queryText := fmt.Sprintf(QryFindClipsByJob, s.GetFQN(), jobId)
	return s.run(ctx, queryText)
}

// FindBySource returns the most recently extracted clips for a source
// video, across jobs.
func (s *ClipService) FindBySource(ctx context.Context, sourceURL string, maxResults int) ([]*model.ClipRecord, error) {
	queryText := fmt.Sprintf(QryFindClipsBySource, s.GetFQN(), sourceURL, maxResults)
	return s.run(ctx, queryText)
}

// TopByVibe returns the strongest clips for a vibe across all sources.
func (s *ClipService) TopByVibe(ctx context.Context, vibe string, maxResults int) ([]*model.ClipRecord, error) {
	queryText := fmt.Sprintf(QryTopClipsByVibe, s.GetFQN(), vibe, maxResults)
	return s.run(ctx, queryText)
}

// run executes a query and scans every row into a ClipRecord.
func (s *ClipService) run(ctx context.Context, queryText string) ([]*model.ClipRecord, error) {
	q := s.BigqueryClient.Query(queryText)
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read from BigQuery: %w", err)
	}

	out := make([]*model.ClipRecord, 0)
	for {
		r := &model.ClipRecord{}
		err := itr.Next(r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

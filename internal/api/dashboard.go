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

// Package api contains auxiliary API route definitions for the server.
// This file defines the dashboard statistics endpoint, a coarse summary of
// the job registry for operational dashboards.
//
// Functions:
//   - Dashboard: Sets up a route group for statistics-related endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// Dashboard configures the API routes for the statistics endpoint.
// It creates a new route group "/stats" nested under the main API router group.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the new "/stats" route group will be added.
//   - registry: The job registry the statistics are computed from.
//
// Outputs:
//   - This function does not return any value. It modifies the provided *gin.RouterGroup
//     by adding a new route handler.
func Dashboard(r *gin.RouterGroup, registry *jobs.Registry) {
	// Create a new router group for any statistics-related endpoints, prefixed with "/stats".
	stats := r.Group("/stats")
	{
		// Register a handler for a GET request to the "/stats" endpoint.
		// It returns the job counts broken down by kind and by status.
		stats.GET("", func(c *gin.Context) {
			byStatus := make(map[model.JobStatus]int)
			byKind := make(map[model.JobKind]int)
			all := registry.List()
			for _, job := range all {
				byStatus[job.Status]++
				byKind[job.Kind]++
			}
			c.JSON(http.StatusOK, gin.H{
				"total":     len(all),
				"by_status": byStatus,
				"by_kind":   byKind,
			})
		})
	}
}

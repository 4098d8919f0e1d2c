// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the clip pipeline backend server.
//
// This application sets up and runs a web server using the Gin framework. It provides a REST API
// for submitting video analysis jobs, polling their progress, rendering timelines, and uploading
// source files. The server is instrumented with OpenTelemetry for logging, tracing, and metrics.
//
// The main function initializes the application's configuration, sets up logging and telemetry,
// and initializes the application state, including the job orchestrator and, on cloud
// deployments, clients for Google Cloud services. All pipeline work is asynchronous: submission
// endpoints return a job id immediately and clients poll the status endpoints until the job
// reaches a terminal state.
//
// Functions:
//   - main: The main entry point of the application. It sets up the server, configures routes,
//     initializes services, and handles graceful shutdown.
//   - ProcessRouter: Sets up the job submission and polling routes for both the analysis and
//     render pipelines.
//   - ConfigRouter: Exposes the fixed scoring vocabularies (vibes, age groups).
//   - ClipsRouter: Exposes the clips warehouse catalog on deployments that persist
//     clips to BigQuery.
//   - FileUpload: Configures the endpoint for multipart file uploads feeding the pipeline.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/api"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/jobs"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/jaycherian/gcp-go-clip-pipeline/internal/telemetry"
)

// main is the primary entry point for the application.
// It orchestrates the setup of logging, telemetry, configuration, cloud services,
// the web server, API routes, and background listeners. It also handles graceful
// shutdown of the server upon receiving an interrupt signal.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// Create a new context that can be cancelled. This is the root context for the application.
	ctx, cancel := context.WithCancel(context.Background())
	// Defer the cancel function to be called when main exits, ensuring all child contexts are cancelled.
	defer cancel()

	// Load application configuration from TOML files.
	config := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state, including all necessary service clients.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Add OpenTelemetry middleware to the Gin router to trace incoming requests.
	// This will automatically create spans for each request.
	r.Use(otelgin.Middleware("clip-pipeline-server"))

	// Configure Cross-Origin Resource Sharing (CORS) middleware.
	// Using cors.Default() provides a permissive configuration suitable for development,
	// allowing requests from any origin.
	r.Use(cors.Default())

	// Health probe for load balancers and local smoke tests.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Local deployments serve published clips and renders straight from the
	// output directory; cloud deployments hand out signed GCS URLs instead.
	if !config.Storage.UseCloudStorage && len(config.Storage.LocalOutputDir) > 0 {
		r.Static("/files", config.Storage.LocalOutputDir)
	}

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	{
		// Register the routes for pipeline processing and file upload functionality.
		ProcessRouter(apiV1)
		ConfigRouter(apiV1)
		FileUpload(apiV1)
		api.Dashboard(apiV1, state.registry)

		// The clips catalog reads the BigQuery warehouse, which only exists
		// on cloud deployments that configured a dataset.
		if state.clipService != nil {
			ClipsRouter(apiV1, state.clipService)
		}
	}

	// Configure the HTTP server with the address and handler.
	srv := &http.Server{
		Addr:         ":8080",
		Handler:      r,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block the main thread.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("filed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Set up a channel to listen for OS interrupt signals (e.g., Ctrl+C).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	// Block until a signal is received on the quit channel.
	<-quit
	slog.Info("Shutdown Server ...")

	// Create a context with a timeout for the graceful shutdown.
	// This gives active requests 5 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// ProcessRouter sets up the API routes for the asynchronous pipelines.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the process routes will be added. This allows
//     nesting routes under a common path prefix (e.g., "/api/v1").
//
// Outputs:
//   - This function does not return any values. It modifies the provided *gin.RouterGroup
//     by adding new route handlers.
//
// This function defines the following endpoints:
//   - POST /process: Submits an analysis job for a source video.
//   - GET /process/status/:job_id: Returns the job's current status and progress.
//   - GET /process/result/:job_id: Returns the ranked clip candidates of a completed job.
//   - POST /process/render-timeline: Submits a timeline render job.
//   - GET /process/render-status/:job_id, /process/render-result/:job_id: Render polling.
//   - GET /process/jobs: Lists all known jobs, most recent first.
//   - DELETE /process/job/:job_id: Removes a job and its stored result.
func ProcessRouter(r *gin.RouterGroup) {
	// Group all pipeline routes under the "/process" path.
	process := r.Group("/process")
	{
		// Handler for POST /process
		process.POST("", func(c *gin.Context) {
			var req model.ProcessRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			job, err := state.orchestrator.SubmitAnalysis(c.Request.Context(), &req)
			if err != nil {
				respondSubmissionError(c, err)
				return
			}
			// The job id is all a client needs; everything else is polled.
			c.JSON(http.StatusAccepted, gin.H{"job_id": job.Id, "status": job.Status})
		})

		// Handler for POST /process/render-timeline
		process.POST("/render-timeline", func(c *gin.Context) {
			var req model.RenderRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			job, err := state.orchestrator.SubmitRender(c.Request.Context(), &req)
			if err != nil {
				respondSubmissionError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"job_id": job.Id, "status": job.Status})
		})

		// Both pipelines share the registry, so status and result polling is
		// the same handler under two names.
		process.GET("/status/:job_id", jobStatus)
		process.GET("/render-status/:job_id", jobStatus)
		process.GET("/result/:job_id", jobResult)
		process.GET("/render-result/:job_id", jobResult)

		// Handler for GET /process/jobs
		process.GET("/jobs", func(c *gin.Context) {
			c.JSON(http.StatusOK, state.registry.List())
		})

		// Handler for DELETE /process/job/:job_id
		process.DELETE("/job/:job_id", func(c *gin.Context) {
			if err := state.registry.Delete(c.Param("job_id")); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"deleted": c.Param("job_id")})
		})
	}
}

// jobStatus returns the polled snapshot of a job.
func jobStatus(c *gin.Context) {
	job, err := state.registry.Get(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// jobResult returns the final payload of a completed job. Polling through
// a non-terminal state is expected, so "not ready" is a 202 with the job
// snapshot rather than an error, and a failed job surfaces its captured
// message verbatim.
func jobResult(c *gin.Context) {
	id := c.Param("job_id")
	result, err := state.registry.Result(id)
	if err != nil {
		var failed *jobs.FailedError
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, jobs.ErrNotReady):
			job, _ := state.registry.Get(id)
			c.JSON(http.StatusAccepted, job)
		case errors.As(err, &failed):
			c.JSON(http.StatusOK, gin.H{"job_id": id, "status": model.JobStatusFailed, "error": failed.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondSubmissionError maps a submission failure onto an HTTP status:
// malformed payloads are the client's fault, anything else is ours.
func respondSubmissionError(c *gin.Context, err error) {
	var invalid *jobs.InvalidPayloadError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// clipCatalog is the read surface of the clips warehouse the catalog routes
// are served from.
type clipCatalog interface {
	FindByJob(ctx context.Context, jobId string) ([]*model.ClipRecord, error)
	FindBySource(ctx context.Context, sourceURL string, maxResults int) ([]*model.ClipRecord, error)
	TopByVibe(ctx context.Context, vibe string, maxResults int) ([]*model.ClipRecord, error)
}

// defaultCatalogLimit caps catalog listings when the client does not ask
// for a specific page size.
const defaultCatalogLimit = 25

// ClipsRouter sets up the catalog routes over the clips warehouse.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the catalog routes will be added.
//   - catalog: The warehouse read service backing the routes.
//
// This function defines the following endpoints:
//   - GET /clips/job/:job_id: Every clip one analysis job produced, in rank order.
//   - GET /clips/source?url=&limit=: The most recent clips cut from one source video.
//   - GET /clips/top?vibe=&limit=: The strongest clips for a vibe across all sources.
func ClipsRouter(r *gin.RouterGroup, catalog clipCatalog) {
	clips := r.Group("/clips")
	{
		// Handler for GET /clips/job/:job_id
		clips.GET("/job/:job_id", func(c *gin.Context) {
			records, err := catalog.FindByJob(c.Request.Context(), c.Param("job_id"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"clips": records})
		})

		// Handler for GET /clips/source
		clips.GET("/source", func(c *gin.Context) {
			sourceURL := c.Query("url")
			if len(sourceURL) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
				return
			}
			records, err := catalog.FindBySource(c.Request.Context(), sourceURL, catalogLimit(c))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"clips": records})
		})

		// Handler for GET /clips/top
		clips.GET("/top", func(c *gin.Context) {
			vibe := c.Query("vibe")
			if len(vibe) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "vibe query parameter is required"})
				return
			}
			records, err := catalog.TopByVibe(c.Request.Context(), vibe, catalogLimit(c))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"clips": records})
		})
	}
}

// catalogLimit reads the optional "limit" query parameter, falling back to
// the default page size for absent or unusable values.
func catalogLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultCatalogLimit
	}
	return limit
}

// ConfigRouter exposes the fixed scoring vocabularies so clients can build
// their pickers without hardcoding them.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the config routes will be added.
func ConfigRouter(r *gin.RouterGroup) {
	config := r.Group("/config")
	{
		// Handler for GET /config/vibe-categories
		config.GET("/vibe-categories", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"vibes":      model.Vibes,
				"age_groups": model.AgeGroups,
			})
		})
	}
}

// FileUpload sets up the route for handling file uploads.
//
// Inputs:
//   - r: A *gin.RouterGroup to which the file upload route will be added.
//
// Outputs:
//   - This function does not return any values. It registers a POST route on the
//     provided router group.
//
// This function configures a POST endpoint at "/uploads" that accepts multipart/form-data.
// It processes one or more files sent under the "files" form field. On cloud deployments
// the files land in the upload bucket, whose GCS notification feeds the pipeline through
// the Pub/Sub listener. On local deployments the files are published through the local
// object store instead, and the response carries their references so a client can submit
// an analysis job explicitly.
func FileUpload(r *gin.RouterGroup) {
	// Group the upload route under "/uploads".
	upload := r.Group("/uploads")
	{
		// Handler for POST /uploads
		upload.POST("", func(c *gin.Context) {
			// Parse the multipart form from the request.
			form, err := c.MultipartForm()
			if err != nil {
				c.String(http.StatusBadRequest, "get form err: %s", err.Error())
				return
			}
			// Get all files associated with the "files" field.
			files := form.File["files"]

			uploaded := make([]string, 0, len(files))
			// Loop through all the uploaded files.
			for _, file := range files {
				// Define a temporary local path to save the file.
				localPath := filepath.Join(os.TempDir(), file.Filename)
				// Save the uploaded file to the local temporary path.
				if err := c.SaveUploadedFile(file, localPath); err != nil {
					c.String(http.StatusBadRequest, "upload file err: %s", err.Error())
					return
				}

				ref, err := publishUpload(c, localPath, file.Filename)
				if err != nil {
					log.Printf("failed to publish upload %s: %v\n", file.Filename, err)
					c.Status(http.StatusInternalServerError)
					return
				}
				uploaded = append(uploaded, ref)

				// Remove the temporary local file after successful upload.
				if err := os.Remove(localPath); err != nil {
					log.Printf("failed to remove file from server: %v\n", err)
				}
			}
			// Respond with the references of the published sources.
			c.JSON(http.StatusOK, gin.H{"uploaded": uploaded})
		})
	}
}

// publishUpload places one uploaded file where the pipeline can reach it
// and returns the reference a client would submit for analysis.
func publishUpload(c *gin.Context, localPath string, filename string) (string, error) {
	// On cloud deployments the upload bucket is the pipeline's front door:
	// writing the object fires the GCS notification that auto-submits a job.
	if state.config.Storage.UseCloudStorage {
		bucket := state.cloud.StorageClient.Bucket(state.config.Storage.UploadBucket)
		content, err := os.ReadFile(localPath)
		if err != nil {
			return "", err
		}
		wc := bucket.Object(filename).NewWriter(c)
		wc.ContentType = "video/mp4"
		if _, err = wc.Write(content); err != nil {
			return "", err
		}
		if err := wc.Close(); err != nil {
			return "", err
		}
		return "gs://" + state.config.Storage.UploadBucket + "/" + filename, nil
	}

	// Local deployments publish through the object store and return the
	// local reference directly.
	return state.store.Put(c.Request.Context(), localPath, "uploads/"+filename)
}

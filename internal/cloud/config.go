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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for various components, including Google Cloud services, AI models,
// Pub/Sub topics, the external media tools, and prompt templates.
//
// This file centralizes all configuration-related structs, making it easy
// to understand and manage the application's configurable parameters.
//
// Structs:
//   - BigQueryDataSource: Configuration for the BigQuery clips warehouse.
//   - PromptTemplates: Holds the text templates for prompts sent to GenAI models.
//   - VertexAiLLMModel: Configuration for a Vertex AI Large Language Model (LLM).
//   - TopicSubscription: Configuration for a single Pub/Sub topic subscription.
//   - Storage: Configuration for where source and produced media live.
//   - Tools: Paths and options for the FFmpeg and whisper.cpp binaries.
//   - Pipeline: Chunking and scoring parameters for the analysis pipeline.
//   - Jobs: Retention policy for the in-memory job registry.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config object with empty maps.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
// These settings are configured to be non-restrictive, allowing all content categories
// (Dangerous Content, Harassment, Hate Speech, Sexually Explicit) to pass through without
// being blocked. This is a common setup for internal or controlled environments where
// the input data is trusted.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// BigQueryDataSource represents the configuration for the clips warehouse.
// An empty dataset name disables warehouse persistence entirely, which is
// the expected shape for local development.
type BigQueryDataSource struct {
	DatasetName string `toml:"dataset"`    // The name of the BigQuery dataset.
	ClipTable   string `toml:"clip_table"` // The name of the table holding extracted clip rows.
}

// PromptTemplates holds the templates for different types of prompts.
type PromptTemplates struct {
	VibeScorePrompt string `toml:"vibe_score"` // The template for scoring a transcript window against a vibe.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	EnableGoogle       bool    `toml:"enable_google"`       // Whether to enable Google Search for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// TopicSubscription represents the configuration for a Pub/Sub topic subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The name of the Pub/Sub subscription.
	DeadLetterTopic  string `toml:"dead_letter_topic"`  // The name of the dead-letter topic for the subscription.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // The timeout for the subscription in seconds.
}

// Storage represents the configuration for where media lives. With
// UseCloudStorage set, sources resolve from GCS and produced clips publish
// to the output bucket behind signed URLs; otherwise everything stays on
// the local filesystem.
type Storage struct {
	UseCloudStorage bool   `toml:"use_cloud_storage"` // Whether produced media goes to GCS or local disk.
	UploadBucket    string `toml:"upload_bucket"`     // The bucket watched for new source uploads.
	OutputBucket    string `toml:"output_bucket"`     // The bucket produced clips and renders publish to.
	LocalOutputDir  string `toml:"local_output_dir"`  // Local publish directory when cloud storage is off.
	LocalBaseURL    string `toml:"local_base_url"`    // URL prefix the server serves the local directory under.
}

// Tools holds the paths and options for the external binaries the
// pipeline shells out to.
type Tools struct {
	FfmpegPath      string `toml:"ffmpeg_path"`      // Path to ffmpeg; defaults to the one on PATH.
	FfprobePath     string `toml:"ffprobe_path"`     // Path to ffprobe; defaults to the one on PATH.
	WhisperPath     string `toml:"whisper_path"`     // Path to the whisper.cpp binary.
	WhisperModel    string `toml:"whisper_model"`    // Path to the ggml model file, if not baked into the binary.
	WhisperLanguage string `toml:"whisper_language"` // Language hint; empty means auto-detect.
	WhisperThreads  int    `toml:"whisper_threads"`  // Worker threads for the whisper process.
}

// Pipeline holds the chunking and scoring parameters of the analysis
// pipeline.
type Pipeline struct {
	ChunkTargetLength float64 `toml:"chunk_target_length"` // Fixed-strategy window length in seconds.
	ChunkMinLength    float64 `toml:"chunk_min_length"`    // Adaptive lower bound in seconds.
	ChunkMaxLength    float64 `toml:"chunk_max_length"`    // Adaptive upper bound in seconds.
	ChunkSilenceGap   float64 `toml:"chunk_silence_gap"`   // Adaptive silence trigger in seconds.
	TopClips          int     `toml:"top_clips"`           // How many ranked candidates a job returns.
	UseGenerativeAI   bool    `toml:"use_generative_ai"`   // Score with Gemini instead of the lexical scorer.
	DefaultVibe       string  `toml:"default_vibe"`        // Creative target for upload-triggered jobs.
	DefaultAgeGroup   string  `toml:"default_age_group"`   // Audience target for upload-triggered jobs.
}

// Jobs holds the retention policy for the in-memory job registry.
type Jobs struct {
	RetentionMinutes       int `toml:"retention_minutes"`        // How long terminal jobs stay queryable.
	JanitorIntervalMinutes int `toml:"janitor_interval_minutes"` // How often the janitor sweeps.
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // The size of the worker pool for parallel processing tasks.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`               // Media storage configuration.
	Tools              Tools                        `toml:"tools"`                 // External tool configuration.
	Pipeline           Pipeline                     `toml:"pipeline"`              // Chunking and scoring configuration.
	Jobs               Jobs                         `toml:"jobs"`                  // Job registry retention configuration.
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"` // BigQuery clips warehouse configuration.
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`      // Prompt templates configuration.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`   // A map of Pub/Sub topic subscriptions, keyed by a logical name (e.g., "UploadTopic").
	AgentModels        map[string]VertexAiLLMModel  `toml:"agent_models"`          // A map of Vertex AI LLM models, keyed by a logical name (e.g., "vibe-scorer").
}

// NewConfig is a constructor function that creates a new, initialized Config instance.
// It's important to initialize the maps within the struct to avoid nil pointer panics
// when the configuration loader tries to populate them.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map fields initialized.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		AgentModels:        make(map[string]VertexAiLLMModel),
	}
}

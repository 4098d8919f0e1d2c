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

// Package model_test contains unit tests for the data models defined in the
// model package. This file tests the timeline item variants: per-variant
// required fields, the default still duration, and the still classification
// that drives background music placement.
package model_test

import (
	"encoding/json"
	"testing"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestTimelineItemClipRequiresUrlAndDuration verifies that a clip item is
// rejected when either its source url or a positive duration is missing.
func TestTimelineItemClipRequiresUrlAndDuration(t *testing.T) {
	var item model.TimelineItem

	err := json.Unmarshal([]byte(`{"type":"clip","duration":5}`), &item)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"type":"clip","url":"clips/a.mp4"}`), &item)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"type":"clip","url":"clips/a.mp4","duration":-1}`), &item)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"type":"clip","url":"clips/a.mp4","duration":5.5}`), &item)
	assert.NoError(t, err)
	assert.Equal(t, model.TimelineItemClip, item.Kind)
	assert.Equal(t, 5.5, item.Duration)
	assert.False(t, item.IsStill())
}

// TestTimelineItemImageDefaultsDuration verifies that an image item without
// a duration picks up the default still duration.
func TestTimelineItemImageDefaultsDuration(t *testing.T) {
	var item model.TimelineItem
	err := json.Unmarshal([]byte(`{"type":"image","url":"images/logo.png"}`), &item)
	assert.NoError(t, err)
	assert.Equal(t, model.DefaultStillDuration, item.Duration)
	assert.True(t, item.IsStill())

	// A missing url is still a hard failure.
	err = json.Unmarshal([]byte(`{"type":"image"}`), &item)
	assert.Error(t, err)
}

// TestTimelineItemTextRequiresContent verifies the text variant's required
// field and its default duration.
func TestTimelineItemTextRequiresContent(t *testing.T) {
	var item model.TimelineItem
	err := json.Unmarshal([]byte(`{"type":"text"}`), &item)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"type":"text","text":"The End","duration":2}`), &item)
	assert.NoError(t, err)
	assert.Equal(t, "The End", item.Text)
	assert.Equal(t, 2.0, item.Duration)
	assert.True(t, item.IsStill())
}

// TestTimelineItemUnknownKind verifies that an unrecognized type tag fails
// the whole submission rather than being silently dropped.
func TestTimelineItemUnknownKind(t *testing.T) {
	var item model.TimelineItem
	err := json.Unmarshal([]byte(`{"type":"gif","url":"a.gif"}`), &item)
	assert.Error(t, err)
}

// TestRenderRequestUnmarshalsItemList verifies that a full render payload
// decodes into the tagged variants in order.
func TestRenderRequestUnmarshalsItemList(t *testing.T) {
	payload := `{
		"project_name": "launch",
		"timeline_clips": [
			{"type": "clip", "url": "clips/a.mp4", "duration": 5},
			{"type": "image", "url": "images/logo.png", "duration": 3},
			{"type": "text", "text": "Thanks for watching"}
		],
		"bgm_filename": "audio/theme.mp3",
		"bgm_volume": 0.5
	}`
	var req model.RenderRequest
	err := json.Unmarshal([]byte(payload), &req)
	assert.NoError(t, err)
	assert.Len(t, req.Items, 3)
	assert.Equal(t, model.TimelineItemClip, req.Items[0].Kind)
	assert.Equal(t, model.TimelineItemImage, req.Items[1].Kind)
	assert.Equal(t, model.TimelineItemText, req.Items[2].Kind)
	assert.Equal(t, model.DefaultStillDuration, req.Items[2].Duration)
	assert.Equal(t, "audio/theme.mp3", req.BgmFilename)
}

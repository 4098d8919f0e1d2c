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

// Package model defines the core data structures for the application.
// This file models the render timeline: an ordered sequence of
// heterogeneous items (video clips, still images, text cards) plus an
// independently positioned background-audio layer.
//
// TimelineItem is a tagged variant rather than a loosely-typed record:
// the `type` field selects the variant and unmarshalling enforces the
// per-variant required fields, so a missing image source is rejected at
// submission time instead of surfacing halfway through a render.
package model

import (
	"encoding/json"
	"fmt"
)

// DefaultStillDuration is the on-screen duration, in seconds, applied to
// image and text items that do not specify one.
const DefaultStillDuration = 3.0

// TimelineItemKind enumerates the timeline item variants.
type TimelineItemKind string

const (
	TimelineItemClip  TimelineItemKind = "clip"
	TimelineItemImage TimelineItemKind = "image"
	TimelineItemText  TimelineItemKind = "text"
)

// TimelineItem is one entry in the submitted timeline. Exactly the fields
// relevant to its Kind are populated:
//
//   - clip:  Ref (clip reference or URL) and Duration (seconds, > 0)
//   - image: Ref (image reference or URL), Duration optional (default 3s)
//   - text:  Text content, Duration optional (default 3s)
//
// Items are processed strictly in array order; the composed output's total
// duration is the sum of the item durations.
type TimelineItem struct {
	Kind     TimelineItemKind `json:"type"`
	Ref      string           `json:"url,omitempty"`
	Text     string           `json:"text,omitempty"`
	Duration float64          `json:"duration,omitempty"`
}

// timelineItemWire mirrors TimelineItem for two-phase unmarshalling.
type timelineItemWire struct {
	Kind     TimelineItemKind `json:"type"`
	Ref      string           `json:"url"`
	Text     string           `json:"text"`
	Duration *float64         `json:"duration"`
}

// UnmarshalJSON validates the per-variant required fields and applies the
// default still duration. A violation renders the whole submission invalid.
func (t *TimelineItem) UnmarshalJSON(data []byte) error {
	var wire timelineItemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Kind {
	case TimelineItemClip:
		if len(wire.Ref) == 0 {
			return fmt.Errorf("clip timeline item is missing its source url")
		}
		if wire.Duration == nil || *wire.Duration <= 0 {
			return fmt.Errorf("clip timeline item requires a positive duration")
		}
	case TimelineItemImage:
		if len(wire.Ref) == 0 {
			return fmt.Errorf("image timeline item is missing its source url")
		}
	case TimelineItemText:
		if len(wire.Text) == 0 {
			return fmt.Errorf("text timeline item is missing its text content")
		}
	default:
		return fmt.Errorf("unknown timeline item type %q", wire.Kind)
	}

	t.Kind = wire.Kind
	t.Ref = wire.Ref
	t.Text = wire.Text
	if wire.Duration != nil && *wire.Duration > 0 {
		t.Duration = *wire.Duration
	} else {
		t.Duration = DefaultStillDuration
	}
	return nil
}

// IsStill reports whether the item shows static visual content with no
// native audio track. Still items define where background music must carry
// the soundtrack.
func (t *TimelineItem) IsStill() bool {
	return t.Kind == TimelineItemImage || t.Kind == TimelineItemText
}

// AudioItemKind enumerates the audio layer variants.
type AudioItemKind string

const (
	AudioItemBgm    AudioItemKind = "bgm"
	AudioItemEffect AudioItemKind = "effect"
)

// AudioItem is an audio layer entry positioned independently of the visual
// timeline. At most one bgm item is authoritative per render; effect items
// may be many, and overlapping effects are mixed, not rejected.
type AudioItem struct {
	Id          string        `json:"id,omitempty"`
	Label       string        `json:"label,omitempty"`
	Kind        AudioItemKind `json:"kind"`
	StartOffset float64       `json:"start_offset"`
	Duration    float64       `json:"duration,omitempty"`
	Ref         string        `json:"url,omitempty"`
}

// BgmRegion is a derived interval where background music must be present
// because the visual timeline is showing still content. Regions are
// computed once per render submission and never stored.
type BgmRegion struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// RenderResult is the final payload of a render job.
type RenderResult struct {
	RenderId   string  `json:"render_id"`
	Filename   string  `json:"filename"`
	FileSize   int64   `json:"file_size"`
	Duration   float64 `json:"duration"`
	ClipsCount int     `json:"clips_count"`
	HasBgm     bool    `json:"has_bgm"`
	HasSfx     bool    `json:"has_sfx"`
	URL        string  `json:"url"`
}

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

// This file wraps the FFmpeg and ffprobe command lines behind typed
// operations. Simple invocations are expressed as format-string argument
// templates split on spaces; filter-graph invocations (concat, audio
// mixing, text cards) are assembled as argument slices because their
// filter expressions legitimately contain spaces.
//
// Clip cutting supports two modes. Fast mode uses stream copy, which is
// near-instant but snaps to the nearest keyframe; accurate mode re-encodes
// with ultrafast x264 so the cut lands exactly on the requested time.
package media

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-clip-pipeline/internal/core/model"
)

// Argument templates for the simple FFmpeg invocations.
const (
	// AudioExtractArgs pulls the audio track as 16 kHz mono PCM, the input
	// format whisper.cpp expects.
	AudioExtractArgs = "-y -hide_banner -i %s -vn -acodec pcm_s16le -ar 16000 -ac 1 %s"
	// ClipCopyArgs cuts by stream copy. -avoid_negative_ts make_zero keeps
	// the copied stream's timestamps sane when the cut lands mid-GOP.
	ClipCopyArgs = "-y -hide_banner -ss %s -i %s -t %s -c copy -avoid_negative_ts make_zero %s"
	// ClipEncodeArgs cuts by re-encoding for frame-accurate boundaries.
	ClipEncodeArgs = "-y -hide_banner -ss %s -i %s -t %s -c:v libx264 -preset ultrafast -crf 28 -c:a aac %s"
	// ThumbnailArgs grabs one frame as a small JPEG.
	ThumbnailArgs = "-y -hide_banner -ss %s -i %s -frames:v 1 -vf scale=320:180 -q:v 5 %s"
	// ProbeDurationArgs asks ffprobe for the container duration in seconds.
	ProbeDurationArgs = "-v error -show_entries format=duration -of default=noprint_wrappers=1:nokey=1 %s"

	CommandSeparator = " "

	// Canvas geometry for rendered still segments.
	stillWidth  = 1280
	stillHeight = 720
	stillFps    = 30
)

// FFmpeg issues FFmpeg and ffprobe invocations through a Runner.
type FFmpeg struct {
	Bin      string // Path to the ffmpeg executable.
	ProbeBin string // Path to the ffprobe executable.
	Runner   Runner
}

// NewFFmpeg is the constructor for the FFmpeg tool wrapper.
func NewFFmpeg(bin string, probeBin string, runner Runner) *FFmpeg {
	if len(bin) == 0 {
		bin = "ffmpeg"
	}
	if len(probeBin) == 0 {
		probeBin = "ffprobe"
	}
	return &FFmpeg{Bin: bin, ProbeBin: probeBin, Runner: runner}
}

// canvasFilter normalizes a frame to the standard still canvas: scaled to
// fit, padded to center, with square pixels.
func canvasFilter() string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		stillWidth, stillHeight, stillWidth, stillHeight)
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// ExtractAudio writes the source's audio track as a 16 kHz mono WAV file.
func (f *FFmpeg) ExtractAudio(ctx context.Context, src string, wavPath string) error {
	args := fmt.Sprintf(AudioExtractArgs, src, wavPath)
	return f.Runner.Run(ctx, f.Bin, strings.Split(args, CommandSeparator))
}

// CutClip extracts [start, start+duration) from the source into outPath.
func (f *FFmpeg) CutClip(ctx context.Context, src string, start float64, duration float64, fast bool, outPath string) error {
	tmpl := ClipEncodeArgs
	if fast {
		tmpl = ClipCopyArgs
	}
	args := fmt.Sprintf(tmpl, seconds(start), src, seconds(duration), outPath)
	return f.Runner.Run(ctx, f.Bin, strings.Split(args, CommandSeparator))
}

// Thumbnail writes a single preview frame taken at the given offset.
func (f *FFmpeg) Thumbnail(ctx context.Context, src string, at float64, outPath string) error {
	args := fmt.Sprintf(ThumbnailArgs, seconds(at), src, outPath)
	return f.Runner.Run(ctx, f.Bin, strings.Split(args, CommandSeparator))
}

// ProbeDuration returns the media duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, src string) (float64, error) {
	args := fmt.Sprintf(ProbeDurationArgs, src)
	out, err := f.Runner.Output(ctx, f.ProbeBin, strings.Split(args, CommandSeparator))
	if err != nil {
		return 0, err
	}
	dur, err := strconv.ParseFloat(string(bytes.TrimSpace(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable ffprobe duration %q: %w", bytes.TrimSpace(out), err)
	}
	return dur, nil
}

// StillFromImage renders an image into a video segment of the given length
// on the standard canvas, with a silent audio track so the segment can be
// concatenated against real clips.
func (f *FFmpeg) StillFromImage(ctx context.Context, imagePath string, duration float64, outPath string) error {
	args := []string{
		"-y", "-hide_banner",
		"-loop", "1", "-i", imagePath,
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-t", seconds(duration),
		"-vf", canvasFilter(),
		"-r", strconv.Itoa(stillFps),
		"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		outPath,
	}
	return f.Runner.Run(ctx, f.Bin, args)
}

// StillFromText renders a text card: the text drawn centered on a black
// canvas for the given length, again with silent audio.
func (f *FFmpeg) StillFromText(ctx context.Context, text string, duration float64, outPath string) error {
	color := fmt.Sprintf("color=c=black:s=%dx%d:d=%s:r=%d", stillWidth, stillHeight, seconds(duration), stillFps)
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontcolor=white:fontsize=64:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(text))
	args := []string{
		"-y", "-hide_banner",
		"-f", "lavfi", "-i", color,
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-t", seconds(duration),
		"-vf", drawtext,
		"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		outPath,
	}
	return f.Runner.Run(ctx, f.Bin, args)
}

// Concat joins the rendered segments into one video. Every segment is
// normalized to the standard canvas and sample rate inside the filter
// graph, so clips of differing resolutions concatenate cleanly.
func (f *FFmpeg) Concat(ctx context.Context, segments []string, outPath string) error {
	if len(segments) == 0 {
		return fmt.Errorf("nothing to concatenate")
	}

	args := []string{"-y", "-hide_banner"}
	for _, seg := range segments {
		args = append(args, "-i", seg)
	}

	var filter strings.Builder
	for i := range segments {
		fmt.Fprintf(&filter,
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d[v%d];",
			i, stillWidth, stillHeight, stillWidth, stillHeight, stillFps, i)
		fmt.Fprintf(&filter, "[%d:a]aresample=44100[a%d];", i, i)
	}
	for i := range segments {
		fmt.Fprintf(&filter, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[outv][outa]", len(segments))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[outv]", "-map", "[outa]",
		"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outPath)
	return f.Runner.Run(ctx, f.Bin, args)
}

// MixBgm lays background music under the video. The music loops for the
// whole timeline but is only audible inside the given regions (the still
// segments, which carry no speech); elsewhere it ducks to a fifth of the
// configured volume so it never competes with clip audio.
func (f *FFmpeg) MixBgm(ctx context.Context, videoPath string, bgmPath string, regions []model.BgmRegion, volume float64, outPath string) error {
	if volume <= 0 {
		volume = 0.3
	}

	expr := bgmVolumeExpr(regions, volume)
	filter := fmt.Sprintf(
		"[1:a]volume='%s':eval=frame[bgm];[0:a][bgm]amix=inputs=2:duration=first:dropout_transition=0[outa]",
		expr)

	args := []string{
		"-y", "-hide_banner",
		"-i", videoPath,
		"-stream_loop", "-1", "-i", bgmPath,
		"-filter_complex", filter,
		"-map", "0:v", "-map", "[outa]",
		"-c:v", "copy", "-c:a", "aac",
		"-shortest",
		outPath,
	}
	return f.Runner.Run(ctx, f.Bin, args)
}

// MixEffects overlays one-shot sound effects at their start offsets using
// adelay, then mixes them with the program audio.
func (f *FFmpeg) MixEffects(ctx context.Context, videoPath string, effectPaths []string, startOffsets []float64, outPath string) error {
	if len(effectPaths) == 0 || len(effectPaths) != len(startOffsets) {
		return fmt.Errorf("effect paths and offsets must be non-empty and aligned")
	}

	args := []string{"-y", "-hide_banner", "-i", videoPath}
	for _, p := range effectPaths {
		args = append(args, "-i", p)
	}

	var filter strings.Builder
	for i, off := range startOffsets {
		delayMs := int(off * 1000)
		fmt.Fprintf(&filter, "[%d:a]adelay=%d|%d[fx%d];", i+1, delayMs, delayMs, i)
	}
	filter.WriteString("[0:a]")
	for i := range effectPaths {
		fmt.Fprintf(&filter, "[fx%d]", i)
	}
	fmt.Fprintf(&filter, "amix=inputs=%d:duration=first:dropout_transition=0[outa]", len(effectPaths)+1)

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "0:v", "-map", "[outa]",
		"-c:v", "copy", "-c:a", "aac",
		outPath)
	return f.Runner.Run(ctx, f.Bin, args)
}

// bgmVolumeExpr builds the per-frame volume expression: full volume inside
// any region, ducked outside all of them.
func bgmVolumeExpr(regions []model.BgmRegion, volume float64) string {
	if len(regions) == 0 {
		return seconds(volume)
	}
	terms := make([]string, 0, len(regions))
	for _, r := range regions {
		terms = append(terms, fmt.Sprintf("between(t,%s,%s)", seconds(r.Start), seconds(r.Start+r.Duration)))
	}
	cond := terms[0]
	for _, t := range terms[1:] {
		cond = fmt.Sprintf("max(%s,%s)", cond, t)
	}
	return fmt.Sprintf("if(%s,%s,%s)", cond, seconds(volume), seconds(volume*0.2))
}

// escapeDrawtext escapes the characters drawtext treats specially.
func escapeDrawtext(in string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(in)
}

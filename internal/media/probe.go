package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonathan/scene-narrator/internal/db"
)

// ProbeResult is the parsed output of ffprobe
type ProbeResult struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

// Format captures container-level metadata
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Probe runs ffprobe against path and decodes the JSON response
func (t *Transformer) Probe(ctx context.Context, path string) (ProbeResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, errors.New("ffprobe: empty path")
	}

	output, err := t.run(ctx, t.ffprobe, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return ProbeResult{}, errors.Wrapf(err, "ffprobe %s", path)
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, errors.Wrap(err, "ffprobe parse")
	}
	return result, nil
}

// VideoStream returns the first video stream, if any
func (r ProbeResult) VideoStream() (Stream, bool) {
	return r.firstOfType("video")
}

// AudioStream returns the first audio stream, if any
func (r ProbeResult) AudioStream() (Stream, bool) {
	return r.firstOfType("audio")
}

func (r ProbeResult) firstOfType(codecType string) (Stream, bool) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			return s, true
		}
	}
	return Stream{}, false
}

// DurationSeconds returns the container duration, or 0 when unavailable
func (r ProbeResult) DurationSeconds() float64 {
	d := parseFloat(r.Format.Duration)
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return d
}

// Metadata converts the probe result into the stored video metadata
func (r ProbeResult) Metadata() (db.VideoMetadata, error) {
	video, ok := r.VideoStream()
	if !ok {
		return db.VideoMetadata{}, errors.New("no video stream found")
	}

	meta := db.VideoMetadata{
		Duration: r.DurationSeconds(),
		FPS:      parseFrameRate(video.RFrameRate),
		Size:     [2]int{video.Width, video.Height},
	}
	if meta.FPS == 0 {
		meta.FPS = parseFrameRate(video.AvgFrameRate)
	}

	if audio, ok := r.AudioStream(); ok {
		if rate, err := strconv.Atoi(strings.TrimSpace(audio.SampleRate)); err == nil {
			meta.AudioFPS = &rate
		}
		channels := audio.Channels
		meta.AudioNChannels = &channels
	}
	return meta, nil
}

// parseFrameRate parses ffprobe rates such as "30000/1001" or "25"
func parseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	if !found {
		f := parseFloat(num)
		if math.IsNaN(f) {
			return 0
		}
		return f
	}
	n, d := parseFloat(num), parseFloat(den)
	if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

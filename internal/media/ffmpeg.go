// Package media implements the video transforms the pipeline needs on top of ffprobe and ffmpeg.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jonathan/scene-narrator/internal/db"
)

// ErrNoAudioTrack is returned when audio extraction is asked of a silent video
var ErrNoAudioTrack = errors.New("video has no audio track")

// Runner executes an external command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%w: %s", err, tail(string(output), 2000))
	}
	return output, nil
}

// Transformer implements the media operations with ffmpeg binaries
type Transformer struct {
	ffmpeg  string
	ffprobe string
	run     Runner
}

// Option configures a Transformer
type Option func(*Transformer)

// WithBinaries overrides the ffmpeg and ffprobe executables
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(t *Transformer) {
		if strings.TrimSpace(ffmpeg) != "" {
			t.ffmpeg = ffmpeg
		}
		if strings.TrimSpace(ffprobe) != "" {
			t.ffprobe = ffprobe
		}
	}
}

// WithRunner replaces command execution, for tests
func WithRunner(r Runner) Option {
	return func(t *Transformer) {
		t.run = r
	}
}

// NewTransformer creates a Transformer using ffmpeg and ffprobe from PATH by default
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{ffmpeg: "ffmpeg", ffprobe: "ffprobe", run: ExecRunner}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ExtractMetadata returns duration, frame rate, frame size and audio properties of a video
func (t *Transformer) ExtractMetadata(ctx context.Context, videoPath string) (db.VideoMetadata, error) {
	probe, err := t.Probe(ctx, videoPath)
	if err != nil {
		return db.VideoMetadata{}, err
	}
	meta, err := probe.Metadata()
	if err != nil {
		return db.VideoMetadata{}, errors.Wrapf(err, "metadata for %s", videoPath)
	}
	return meta, nil
}

// ExtractAudio writes the video's audio track to outPath as MP3
func (t *Transformer) ExtractAudio(ctx context.Context, videoPath, outPath string) (string, error) {
	probe, err := t.Probe(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if _, ok := probe.AudioStream(); !ok {
		return "", errors.WithStack(ErrNoAudioTrack)
	}
	if err := ensureDir(outPath); err != nil {
		return "", err
	}

	if _, err := t.run(ctx, t.ffmpeg, "-y", "-i", videoPath, "-vn", "-acodec", "libmp3lame", outPath); err != nil {
		return "", errors.Wrapf(err, "extract audio from %s", videoPath)
	}
	return outPath, nil
}

// Trim cuts [start, end) seconds of the video into outPath
func (t *Transformer) Trim(ctx context.Context, videoPath string, start, end float64, outPath string) (string, error) {
	if end <= start {
		return "", errors.Errorf("invalid trim range %.3f-%.3f", start, end)
	}
	if err := ensureDir(outPath); err != nil {
		return "", err
	}

	args := []string{
		"-y", "-i", videoPath,
		"-ss", formatSeconds(start), "-to", formatSeconds(end),
		"-c:v", "libx264", "-c:a", "aac",
		outPath,
	}
	if _, err := t.run(ctx, t.ffmpeg, args...); err != nil {
		return "", errors.Wrapf(err, "trim %s", videoPath)
	}
	return outPath, nil
}

// OverlayAudio replaces the clip's audio with audioPath. When the audio is longer, the
// first frame is held until the clip matches; when shorter, the clip is sped up uniformly.
func (t *Transformer) OverlayAudio(ctx context.Context, videoPath, audioPath, outPath string) (string, error) {
	videoProbe, err := t.Probe(ctx, videoPath)
	if err != nil {
		return "", err
	}
	audioProbe, err := t.Probe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if err := ensureDir(outPath); err != nil {
		return "", err
	}

	args := []string{"-y", "-i", videoPath, "-i", audioPath}
	if filter := OverlayFilter(videoProbe.DurationSeconds(), audioProbe.DurationSeconds()); filter != "" {
		args = append(args, "-filter:v", filter)
	}
	args = append(args,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "libx264", "-c:a", "aac",
		outPath,
	)
	if _, err := t.run(ctx, t.ffmpeg, args...); err != nil {
		return "", errors.Wrapf(err, "overlay %s onto %s", audioPath, videoPath)
	}
	return outPath, nil
}

// OverlayFilter returns the video filter that fits a clip of videoDur seconds to audio
// of audioDur seconds, or "" when no change is needed.
func OverlayFilter(videoDur, audioDur float64) string {
	const epsilon = 0.01
	switch {
	case videoDur <= 0 || audioDur <= 0:
		return ""
	case audioDur-videoDur > epsilon:
		return fmt.Sprintf("tpad=start_mode=clone:start_duration=%s", formatSeconds(audioDur-videoDur))
	case videoDur-audioDur > epsilon:
		return fmt.Sprintf("setpts=%.6f*PTS", audioDur/videoDur)
	default:
		return ""
	}
}

// Concatenate joins the clips in order into outPath
func (t *Transformer) Concatenate(ctx context.Context, clipPaths []string, outPath string) (string, error) {
	if len(clipPaths) == 0 {
		return "", errors.New("no clips to concatenate")
	}
	if err := ensureDir(outPath); err != nil {
		return "", err
	}

	list, err := os.CreateTemp(filepath.Dir(outPath), "concat-*.txt")
	if err != nil {
		return "", errors.Wrap(err, "create concat list")
	}
	defer os.Remove(list.Name())

	if _, err := list.WriteString(ConcatList(clipPaths)); err != nil {
		list.Close()
		return "", errors.Wrap(err, "write concat list")
	}
	if err := list.Close(); err != nil {
		return "", errors.Wrap(err, "close concat list")
	}

	if _, err := t.run(ctx, t.ffmpeg, "-y", "-f", "concat", "-safe", "0", "-i", list.Name(), "-c", "copy", outPath); err != nil {
		return "", errors.Wrap(err, "concatenate clips")
	}
	return outPath, nil
}

// ConcatList renders the input file for ffmpeg's concat demuxer
func ConcatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func ensureDir(outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", outPath)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

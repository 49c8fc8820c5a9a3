package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoProbeJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "r_frame_rate": "30000/1001"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "44100", "channels": 2}
  ],
  "format": {"filename": "in.mp4", "duration": "12.500000", "format_name": "mov,mp4"}
}`

const silentProbeJSON = `{
  "streams": [{"index": 0, "codec_type": "video", "width": 640, "height": 360, "r_frame_rate": "25/1"}],
  "format": {"duration": "4.0"}
}`

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	probes map[string]string
	calls  []call
	err    error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if name == "ffprobe" {
		path := args[len(args)-1]
		out, ok := f.probes[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return []byte(out), nil
	}
	return nil, f.err
}

func (f *fakeRunner) ffmpegCalls() []call {
	var out []call
	for _, c := range f.calls {
		if c.name == "ffmpeg" {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractMetadata(t *testing.T) {
	runner := &fakeRunner{probes: map[string]string{"in.mp4": videoProbeJSON}}
	tr := NewTransformer(WithRunner(runner.run))

	meta, err := tr.ExtractMetadata(context.Background(), "in.mp4")
	require.NoError(t, err)
	assert.Equal(t, 12.5, meta.Duration)
	assert.InDelta(t, 29.97, meta.FPS, 0.01)
	assert.Equal(t, [2]int{1280, 720}, meta.Size)
	require.NotNil(t, meta.AudioFPS)
	assert.Equal(t, 44100, *meta.AudioFPS)
	require.NotNil(t, meta.AudioNChannels)
	assert.Equal(t, 2, *meta.AudioNChannels)
}

func TestExtractMetadata_Silent(t *testing.T) {
	runner := &fakeRunner{probes: map[string]string{"silent.mp4": silentProbeJSON}}
	tr := NewTransformer(WithRunner(runner.run))

	meta, err := tr.ExtractMetadata(context.Background(), "silent.mp4")
	require.NoError(t, err)
	assert.Equal(t, 25.0, meta.FPS)
	assert.Nil(t, meta.AudioFPS)
	assert.Nil(t, meta.AudioNChannels)
}

func TestExtractAudio(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "audio_files", "job_audio.mp3")
	runner := &fakeRunner{probes: map[string]string{"in.mp4": videoProbeJSON}}
	tr := NewTransformer(WithRunner(runner.run))

	got, err := tr.ExtractAudio(context.Background(), "in.mp4", out)
	require.NoError(t, err)
	assert.Equal(t, out, got)
	assert.DirExists(t, filepath.Dir(out))

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-y", "-i", "in.mp4", "-vn", "-acodec", "libmp3lame", out}, calls[0].args)
}

func TestExtractAudio_NoAudioTrack(t *testing.T) {
	runner := &fakeRunner{probes: map[string]string{"silent.mp4": silentProbeJSON}}
	tr := NewTransformer(WithRunner(runner.run))

	_, err := tr.ExtractAudio(context.Background(), "silent.mp4", filepath.Join(t.TempDir(), "a.mp3"))
	assert.ErrorIs(t, err, ErrNoAudioTrack)
	assert.Empty(t, runner.ffmpegCalls())
}

func TestTrim(t *testing.T) {
	runner := &fakeRunner{}
	tr := NewTransformer(WithRunner(runner.run))
	out := filepath.Join(t.TempDir(), "clips", "scene_1.5_4.mp4")

	_, err := tr.Trim(context.Background(), "in.mp4", 1.5, 4, out)
	require.NoError(t, err)

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 1)
	args := strings.Join(calls[0].args, " ")
	assert.Contains(t, args, "-ss 1.500 -to 4.000")
}

func TestTrim_InvalidRange(t *testing.T) {
	tr := NewTransformer(WithRunner((&fakeRunner{}).run))
	_, err := tr.Trim(context.Background(), "in.mp4", 5, 5, filepath.Join(t.TempDir(), "x.mp4"))
	assert.Error(t, err)
}

func TestOverlayFilter(t *testing.T) {
	tests := []struct {
		name     string
		video    float64
		audio    float64
		expected string
	}{
		{"audio longer holds first frame", 4, 6, "tpad=start_mode=clone:start_duration=2.000"},
		{"audio shorter speeds up video", 8, 4, "setpts=0.500000*PTS"},
		{"equal durations", 5, 5.005, ""},
		{"unknown duration", 0, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OverlayFilter(tt.video, tt.audio))
		})
	}
}

func TestOverlayAudio(t *testing.T) {
	runner := &fakeRunner{probes: map[string]string{
		"clip.mp4":  `{"streams":[{"codec_type":"video"}],"format":{"duration":"3"}}`,
		"voice.mp3": `{"streams":[{"codec_type":"audio"}],"format":{"duration":"5"}}`,
	}}
	tr := NewTransformer(WithRunner(runner.run))
	out := filepath.Join(t.TempDir(), "clip_voiceover.mp4")

	_, err := tr.OverlayAudio(context.Background(), "clip.mp4", "voice.mp3", out)
	require.NoError(t, err)

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 1)
	args := strings.Join(calls[0].args, " ")
	assert.Contains(t, args, "-filter:v tpad=start_mode=clone:start_duration=2.000")
	assert.Contains(t, args, "-map 0:v:0 -map 1:a:0")
}

func TestConcatenate(t *testing.T) {
	runner := &fakeRunner{}
	tr := NewTransformer(WithRunner(runner.run))
	dir := t.TempDir()
	out := filepath.Join(dir, "output", "job_output.mp4")

	_, err := tr.Concatenate(context.Background(), []string{"/a/one.mp4", "/a/two.mp4"}, out)
	require.NoError(t, err)

	calls := runner.ffmpegCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, strings.Join(calls[0].args, " "), "-f concat -safe 0")

	// list file is cleaned up
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcatenate_Empty(t *testing.T) {
	tr := NewTransformer(WithRunner((&fakeRunner{}).run))
	_, err := tr.Concatenate(context.Background(), nil, filepath.Join(t.TempDir(), "x.mp4"))
	assert.Error(t, err)
}

func TestConcatList_EscapesQuotes(t *testing.T) {
	list := ConcatList([]string{"/clips/it's.mp4", "/clips/b.mp4"})
	assert.Equal(t, "file '/clips/it'\\''s.mp4'\nfile '/clips/b.mp4'\n", list)
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 25.0, parseFrameRate("25/1"))
	assert.Equal(t, 24.0, parseFrameRate("24"))
	assert.Equal(t, 0.0, parseFrameRate("0/0"))
	assert.Equal(t, 0.0, parseFrameRate(""))
}

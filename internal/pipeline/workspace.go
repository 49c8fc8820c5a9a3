package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Workspace lays out the files a job produces under a base directory
type Workspace struct {
	BaseDir string
}

func (w Workspace) jobDir(videoID uuid.UUID) string {
	return filepath.Join(w.BaseDir, videoID.String())
}

// AudioFile is the audio track extracted from the source video
func (w Workspace) AudioFile(videoID uuid.UUID) string {
	return filepath.Join(w.jobDir(videoID), "audio_files", fmt.Sprintf("%s_audio.mp3", videoID))
}

// ClipFile is the clip cut from the source video for one scene
func (w Workspace) ClipFile(videoID uuid.UUID, start, end float64) string {
	name := fmt.Sprintf("scene_%s_%s.mp4", formatTime(start), formatTime(end))
	return filepath.Join(w.jobDir(videoID), "clips", name)
}

// NarrationFile is the synthesized narration for one scene
func (w Workspace) NarrationFile(videoID, sceneID uuid.UUID) string {
	return filepath.Join(w.jobDir(videoID), "gen_audio", fmt.Sprintf("scene_%s.mp3", sceneID))
}

// OutputFile is the assembled narrated video
func (w Workspace) OutputFile(videoID uuid.UUID) string {
	return filepath.Join(w.jobDir(videoID), "output", fmt.Sprintf("%s_output.mp4", videoID))
}

// VoiceoverFile is the clip path with the narration overlaid, next to the clip
func VoiceoverFile(clipPath string) string {
	return strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + "_voiceover.mp4"
}

func formatTime(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/llm"
	"github.com/jonathan/scene-narrator/internal/schemas"
	"github.com/jonathan/scene-narrator/internal/speech"
)

// Collaborators are the services the step logic delegates to
type Collaborators struct {
	Media       MediaTransformer
	Transcriber Transcriber
	Generator   ContentGenerator
	Speech      SpeechSynthesizer
}

// Stages holds the logic of every pipeline step for jobs in one store
type Stages struct {
	store     Store
	services  Collaborators
	workspace Workspace
	voice     string
	logger    *slog.Logger
}

// NewStages binds step logic to a store handle
func NewStages(store Store, services Collaborators, workspace Workspace, voice string, logger *slog.Logger) *Stages {
	if voice == "" {
		voice = speech.DefaultVoice
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stages{
		store:     store,
		services:  services,
		workspace: workspace,
		voice:     voice,
		logger:    logger,
	}
}

// PreprocessResult is what the preprocess step produced
type PreprocessResult struct {
	Metadata  db.VideoMetadata
	AudioFile string
}

// Preprocess extracts media metadata and the audio track from the source video
func (s *Stages) Preprocess(ctx context.Context, videoID uuid.UUID) (PreprocessResult, error) {
	video, err := s.requireVideo(ctx, videoID)
	if err != nil {
		return PreprocessResult{}, err
	}
	if video.Files.VideoFile == "" {
		return PreprocessResult{}, errors.Errorf("video file not set for video %s", videoID)
	}

	meta, err := s.services.Media.ExtractMetadata(ctx, video.Files.VideoFile)
	if err != nil {
		return PreprocessResult{}, errors.Wrap(err, "video preprocessing failed")
	}

	audioPath, err := s.services.Media.ExtractAudio(ctx, video.Files.VideoFile, s.workspace.AudioFile(videoID))
	if err != nil {
		return PreprocessResult{}, errors.Wrap(err, "video preprocessing failed")
	}

	if err := s.store.SetVideoMetadata(ctx, videoID, meta); err != nil {
		return PreprocessResult{}, errors.Wrap(err, "video preprocessing failed")
	}
	if err := s.store.SetVideoFile(ctx, videoID, db.VideoFileAudio, audioPath); err != nil {
		return PreprocessResult{}, errors.Wrap(err, "video preprocessing failed")
	}
	return PreprocessResult{Metadata: meta, AudioFile: audioPath}, nil
}

// FetchTranscription transcribes the extracted audio and stores the transcript
func (s *Stages) FetchTranscription(ctx context.Context, videoID uuid.UUID) (int, error) {
	video, err := s.requireVideo(ctx, videoID)
	if err != nil {
		return 0, err
	}
	if video.Files.AudioFile == "" {
		return 0, errors.Errorf("audio file not found for video %s", videoID)
	}

	transcript, err := s.services.Transcriber.Transcribe(ctx, video.Files.AudioFile)
	if err != nil {
		return 0, errors.Wrap(err, "transcription process failed")
	}
	if err := s.store.SaveTranscription(ctx, videoID, transcript); err != nil {
		return 0, errors.Wrap(err, "transcription process failed")
	}
	return len(transcript), nil
}

// MakeScenes asks the content generator to split the transcript into narrated scenes
// and replaces the video's scenes with the validated result
func (s *Stages) MakeScenes(ctx context.Context, videoID uuid.UUID) ([]db.Scene, error) {
	transcript, err := s.store.GetTranscription(ctx, videoID)
	if err != nil {
		return nil, errors.Wrap(err, "scene generation failed")
	}
	if transcript == nil {
		return nil, errors.Errorf("transcription not found for video %s", videoID)
	}

	prompt := llm.BuildExtractionPrompt(llm.SceneListSchema(), string(transcript))
	response, err := s.services.Generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, errors.Wrap(err, "scene generation failed")
	}

	list, err := schemas.ParseSceneList(llm.CleanJSONBlock(response))
	if err != nil {
		return nil, errors.Wrap(err, "generated scenes are invalid")
	}

	scenes := make([]db.Scene, len(list.Steps))
	for i, entry := range list.Steps {
		scenes[i] = db.Scene{
			VideoID:           videoID,
			Index:             i,
			Title:             entry.Title,
			TimeStart:         entry.TimeStart,
			TimeEnd:           entry.TimeEnd,
			OriginalNarration: entry.OriginalNarration,
			PolishedNarration: entry.PolishedNarration,
		}
	}
	if err := s.store.ReplaceScenes(ctx, videoID, scenes); err != nil {
		return nil, errors.Wrap(err, "scene generation failed")
	}
	return scenes, nil
}

// ExtractClips cuts one clip per scene from the source video
func (s *Stages) ExtractClips(ctx context.Context, videoID uuid.UUID) ([]string, error) {
	video, err := s.requireVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	scenes, err := s.requireScenes(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(video.Files.VideoFile); err != nil {
		return nil, errors.Wrapf(err, "video file not found at path %q", video.Files.VideoFile)
	}

	clips := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		out := s.workspace.ClipFile(videoID, scene.TimeStart, scene.TimeEnd)
		clip, err := s.services.Media.Trim(ctx, video.Files.VideoFile, scene.TimeStart, scene.TimeEnd, out)
		if err != nil {
			return nil, errors.Wrapf(err, "clip extraction failed for scene %d", scene.Index)
		}
		if err := s.store.SetSceneFile(ctx, scene.ID, db.SceneClipFile, clip); err != nil {
			return nil, errors.Wrap(err, "clip extraction failed")
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// GenerateAudio synthesizes the polished narration of every scene. Scenes without
// narration are skipped.
func (s *Stages) GenerateAudio(ctx context.Context, videoID uuid.UUID) ([]string, error) {
	scenes, err := s.requireScenes(ctx, videoID)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		logger := s.logger.With("scene_id", scene.ID.String(), "scene_index", scene.Index)
		if scene.PolishedNarration == "" {
			logger.Warn("no narration found for scene")
			continue
		}

		out := s.workspace.NarrationFile(videoID, scene.ID)
		path, err := s.services.Speech.Synthesize(ctx, scene.PolishedNarration, s.voice, out)
		if err != nil {
			return nil, errors.Wrapf(err, "audio generation failed for scene %d", scene.Index)
		}
		if err := s.store.SetSceneFile(ctx, scene.ID, db.SceneAudioFile, path); err != nil {
			return nil, errors.Wrap(err, "audio generation failed")
		}
		logger.Debug("generated narration audio", "path", path)
		files = append(files, path)
	}
	return files, nil
}

// AddVoiceover overlays each scene's narration on its clip. Scenes missing either file
// are skipped.
func (s *Stages) AddVoiceover(ctx context.Context, videoID uuid.UUID) ([]string, error) {
	scenes, err := s.requireScenes(ctx, videoID)
	if err != nil {
		return nil, err
	}

	clips := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		logger := s.logger.With("scene_id", scene.ID.String(), "scene_index", scene.Index)
		audioPath := scene.File(db.SceneAudioFile)
		if audioPath == "" {
			logger.Warn("no audio file found for scene")
			continue
		}
		clipPath := scene.File(db.SceneClipFile)
		if clipPath == "" {
			logger.Warn("no video file found for scene")
			continue
		}

		out, err := s.services.Media.OverlayAudio(ctx, clipPath, audioPath, VoiceoverFile(clipPath))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to add voiceover to scene %d", scene.Index)
		}
		if err := s.store.SetSceneFile(ctx, scene.ID, db.SceneVoiceoverClip, out); err != nil {
			return nil, errors.Wrap(err, "failed to add voiceover")
		}
		clips = append(clips, out)
	}
	return clips, nil
}

// AssembleVideo concatenates the voiceover clips in scene order into the final video
func (s *Stages) AssembleVideo(ctx context.Context, videoID uuid.UUID) (string, error) {
	if _, err := s.requireVideo(ctx, videoID); err != nil {
		return "", err
	}
	scenes, err := s.requireScenes(ctx, videoID)
	if err != nil {
		return "", err
	}

	clips := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		clip := scene.File(db.SceneVoiceoverClip)
		if clip == "" {
			return "", errors.Errorf("no voiceover found for scene %d (%s)", scene.Index, scene.ID)
		}
		clips = append(clips, clip)
	}

	out, err := s.services.Media.Concatenate(ctx, clips, s.workspace.OutputFile(videoID))
	if err != nil {
		return "", errors.Wrap(err, "failed to assemble video")
	}
	if err := s.store.SetVideoFile(ctx, videoID, db.VideoFileOutput, out); err != nil {
		return "", errors.Wrap(err, "failed to assemble video")
	}
	return out, nil
}

func (s *Stages) requireVideo(ctx context.Context, videoID uuid.UUID) (*db.Video, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load video")
	}
	if video == nil {
		return nil, errors.Errorf("video record not found for id %s", videoID)
	}
	return video, nil
}

// requireScenes returns the video's scenes ordered by index, failing when there are none
func (s *Stages) requireScenes(ctx context.Context, videoID uuid.UUID) ([]db.Scene, error) {
	scenes, err := s.store.ListScenes(ctx, videoID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scenes")
	}
	if len(scenes) == 0 {
		return nil, errors.Errorf("no scenes found for video %s", videoID)
	}
	return scenes, nil
}

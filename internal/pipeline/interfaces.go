package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/pipeline/steps"
)

// MediaTransformer performs the ffmpeg-style media operations used by the steps
type MediaTransformer interface {
	ExtractMetadata(ctx context.Context, videoPath string) (db.VideoMetadata, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string) (string, error)
	Trim(ctx context.Context, videoPath string, start, end float64, outPath string) (string, error)
	OverlayAudio(ctx context.Context, videoPath, audioPath, outPath string) (string, error)
	Concatenate(ctx context.Context, clipPaths []string, outPath string) (string, error)
}

// Transcriber turns an audio file into a transcript document
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (json.RawMessage, error)
}

// ContentGenerator produces a JSON document from a prompt
type ContentGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer renders narration text to an audio file
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) (string, error)
}

// Store is everything a job run reads and writes. *db.DB satisfies it.
type Store interface {
	steps.StatusStore

	GetVideo(ctx context.Context, videoID uuid.UUID) (*db.Video, error)
	SetVideoMetadata(ctx context.Context, videoID uuid.UUID, meta db.VideoMetadata) error
	SetVideoFile(ctx context.Context, videoID uuid.UUID, key db.VideoFileKey, path string) error

	SaveTranscription(ctx context.Context, videoID uuid.UUID, transcript json.RawMessage) error
	GetTranscription(ctx context.Context, videoID uuid.UUID) (json.RawMessage, error)

	ReplaceScenes(ctx context.Context, videoID uuid.UUID, scenes []db.Scene) error
	ListScenes(ctx context.Context, videoID uuid.UUID) ([]db.Scene, error)
	SetSceneFile(ctx context.Context, sceneID uuid.UUID, field db.SceneFileField, path string) error

	Close()
}

// StoreOpener acquires a store handle for the duration of one job
type StoreOpener interface {
	Open(ctx context.Context) (Store, error)
}

// StoreOpenerFunc adapts a function to StoreOpener
type StoreOpenerFunc func(ctx context.Context) (Store, error)

// Open calls f(ctx)
func (f StoreOpenerFunc) Open(ctx context.Context) (Store, error) {
	return f(ctx)
}

// DatabaseOpener returns a StoreOpener that connects a fresh pool per job
func DatabaseOpener(databaseURL string) StoreOpener {
	return StoreOpenerFunc(func(ctx context.Context) (Store, error) {
		database, err := db.Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return database, nil
	})
}

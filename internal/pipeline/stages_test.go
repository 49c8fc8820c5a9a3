package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/scene-narrator/internal/db"
	"github.com/jonathan/scene-narrator/internal/schemas"
	"github.com/jonathan/scene-narrator/internal/speech"
	"github.com/jonathan/scene-narrator/internal/testsupport"
)

func newStages(store Store, media *fakeMedia, gen *fakeGenerator, sp *fakeSpeech) *Stages {
	return NewStages(store, Collaborators{
		Media:       media,
		Transcriber: &fakeTranscriber{},
		Generator:   gen,
		Speech:      sp,
	}, Workspace{BaseDir: "/work"}, "", nil)
}

func strPtr(s string) *string { return &s }

func TestWorkspacePaths(t *testing.T) {
	w := Workspace{BaseDir: "/data"}
	videoID := uuid.MustParse("5f1d7e7a-0000-4000-8000-000000000001")
	sceneID := uuid.MustParse("5f1d7e7a-0000-4000-8000-000000000002")

	assert.Equal(t, "/data/"+videoID.String()+"/audio_files/"+videoID.String()+"_audio.mp3", w.AudioFile(videoID))
	assert.Equal(t, "/data/"+videoID.String()+"/clips/scene_0_4.5.mp4", w.ClipFile(videoID, 0, 4.5))
	assert.Equal(t, "/data/"+videoID.String()+"/gen_audio/scene_"+sceneID.String()+".mp3", w.NarrationFile(videoID, sceneID))
	assert.Equal(t, "/data/"+videoID.String()+"/output/"+videoID.String()+"_output.mp4", w.OutputFile(videoID))
	assert.Equal(t, "/data/clips/scene_1_2_voiceover.mp4", VoiceoverFile("/data/clips/scene_1_2.mp4"))
}

func TestPreprocess_MissingVideo(t *testing.T) {
	s := newStages(testsupport.NewStore(), &fakeMedia{}, &fakeGenerator{}, &fakeSpeech{})

	_, err := s.Preprocess(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video record not found")
}

func TestFetchTranscription_RequiresAudioFile(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	require.NoError(t, store.CreateVideo(context.Background(), videoID, "/in.mp4"))
	s := newStages(store, &fakeMedia{}, &fakeGenerator{}, &fakeSpeech{})

	_, err := s.FetchTranscription(context.Background(), videoID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio file not found")
}

func TestMakeScenes_ReplacesScenes(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	ctx := context.Background()
	require.NoError(t, store.SaveTranscription(ctx, videoID, json.RawMessage(`{"monologues":[]}`)))
	require.NoError(t, store.ReplaceScenes(ctx, videoID, []db.Scene{{Title: "stale"}, {Title: "stale"}, {Title: "stale", Index: 2}}))

	gen := &fakeGenerator{response: generatedScenes}
	s := newStages(store, &fakeMedia{}, gen, &fakeSpeech{})

	scenes, err := s.MakeScenes(ctx, videoID)
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, 1, scenes[1].Index)
	assert.Equal(t, "Click Settings.", scenes[1].PolishedNarration)

	stored, err := store.ListScenes(ctx, videoID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Intro", stored[0].Title)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], `{"monologues":[]}`)
}

func TestMakeScenes_InvalidResponse(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	ctx := context.Background()
	require.NoError(t, store.SaveTranscription(ctx, videoID, json.RawMessage(`{}`)))

	gen := &fakeGenerator{response: `{"steps": [{"title": "Intro", "time_start": 3, "time_end": 1, "original_narration": "", "polished_narration": ""}]}`}
	s := newStages(store, &fakeMedia{}, gen, &fakeSpeech{})

	_, err := s.MakeScenes(ctx, videoID)
	require.Error(t, err)
	var validationErr *schemas.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	stored, err := store.ListScenes(ctx, videoID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestMakeScenes_MissingTranscription(t *testing.T) {
	s := newStages(testsupport.NewStore(), &fakeMedia{}, &fakeGenerator{}, &fakeSpeech{})

	_, err := s.MakeScenes(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription not found")
}

func TestExtractClips_SourceMissingOnDisk(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	ctx := context.Background()
	require.NoError(t, store.CreateVideo(ctx, videoID, filepath.Join(t.TempDir(), "gone.mp4")))
	require.NoError(t, store.ReplaceScenes(ctx, videoID, []db.Scene{{TimeStart: 0, TimeEnd: 2}}))

	media := &fakeMedia{}
	s := newStages(store, media, &fakeGenerator{}, &fakeSpeech{})

	_, err := s.ExtractClips(ctx, videoID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video file not found")
	assert.Empty(t, media.calls)
}

func TestExtractClips_NoScenes(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	source := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(source, []byte("x"), 0o644))
	require.NoError(t, store.CreateVideo(context.Background(), videoID, source))
	s := newStages(store, &fakeMedia{}, &fakeGenerator{}, &fakeSpeech{})

	_, err := s.ExtractClips(context.Background(), videoID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenes found")
}

func TestGenerateAudio_SkipsScenesWithoutNarration(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	ctx := context.Background()
	require.NoError(t, store.ReplaceScenes(ctx, videoID, []db.Scene{
		{Index: 0, PolishedNarration: "Hi."},
		{Index: 1, PolishedNarration: ""},
	}))

	sp := &fakeSpeech{}
	s := newStages(store, &fakeMedia{}, &fakeGenerator{}, sp)

	files, err := s.GenerateAudio(ctx, videoID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, []string{speech.DefaultVoice}, sp.voices)

	scenes, err := store.ListScenes(ctx, videoID)
	require.NoError(t, err)
	assert.NotEmpty(t, scenes[0].File(db.SceneAudioFile))
	assert.Empty(t, scenes[1].File(db.SceneAudioFile))
}

func TestAddVoiceover_SkipsIncompleteScenes(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	ctx := context.Background()
	require.NoError(t, store.ReplaceScenes(ctx, videoID, []db.Scene{
		{Index: 0, ClipFilePath: strPtr("/c/scene_0_2.mp4"), AudioFilePath: strPtr("/a/0.mp3")},
		{Index: 1, ClipFilePath: strPtr("/c/scene_2_4.mp4")},
		{Index: 2, AudioFilePath: strPtr("/a/2.mp3")},
	}))

	media := &fakeMedia{}
	s := newStages(store, media, &fakeGenerator{}, &fakeSpeech{})

	clips, err := s.AddVoiceover(ctx, videoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/c/scene_0_2_voiceover.mp4"}, clips)
	assert.Equal(t, []string{"overlay"}, media.calls)
}

func TestAssembleVideo_RequiresEveryVoiceover(t *testing.T) {
	store := testsupport.NewStore()
	videoID := uuid.New()
	ctx := context.Background()
	require.NoError(t, store.CreateVideo(ctx, videoID, "/in.mp4"))
	require.NoError(t, store.ReplaceScenes(ctx, videoID, []db.Scene{
		{Index: 0, ClipWithVoiceover: strPtr("/c/0_voiceover.mp4")},
		{Index: 1},
	}))

	media := &fakeMedia{}
	s := newStages(store, media, &fakeGenerator{}, &fakeSpeech{})

	_, err := s.AssembleVideo(ctx, videoID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no voiceover found for scene 1")
	assert.Empty(t, media.concatenated)
}

// Package testsupport provides an in-memory store for exercising the pipeline without PostgreSQL.
package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/scene-narrator/internal/db"
)

// Store is an in-memory implementation of the pipeline store. Every method is safe for
// concurrent use. The hook fields let tests inject failures; they are read under the lock.
type Store struct {
	mu             sync.Mutex
	docs           map[uuid.UUID]*db.StatusDocument
	errorLog       []db.PipelineError
	videos         map[uuid.UUID]*db.Video
	transcriptions map[uuid.UUID]json.RawMessage
	scenes         map[uuid.UUID][]db.Scene
	updates        []AppliedUpdate
	closed         int

	// FetchErr, when set, is returned by FetchStatus
	FetchErr error
	// ApplyErr, when set, is consulted before every ApplyUpdate
	ApplyErr func(videoID uuid.UUID, update db.StatusUpdate) error
	// AppendErr, when set, is returned by AppendError
	AppendErr error
}

// AppliedUpdate records one successful ApplyUpdate call
type AppliedUpdate struct {
	VideoID uuid.UUID
	Update  db.StatusUpdate
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		docs:           make(map[uuid.UUID]*db.StatusDocument),
		videos:         make(map[uuid.UUID]*db.Video),
		transcriptions: make(map[uuid.UUID]json.RawMessage),
		scenes:         make(map[uuid.UUID][]db.Scene),
	}
}

// FetchStatus returns a copy of the job's status document, or nil when absent
func (s *Store) FetchStatus(_ context.Context, videoID uuid.UUID) (*db.StatusDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	return copyDoc(s.docs[videoID]), nil
}

// ApplyUpdate merges update into the job's status document, creating it when absent
func (s *Store) ApplyUpdate(_ context.Context, videoID uuid.UUID, update db.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(videoID, update)
}

// ClaimUpdate applies update only when none of the held keys is true
func (s *Store) ClaimUpdate(_ context.Context, videoID uuid.UUID, held []string, update db.StatusUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[videoID]
	for _, key := range held {
		if doc.Flag(key) {
			return false, nil
		}
	}
	if err := s.applyLocked(videoID, update); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) applyLocked(videoID uuid.UUID, update db.StatusUpdate) error {
	if s.ApplyErr != nil {
		if err := s.ApplyErr(videoID, update); err != nil {
			return err
		}
	}
	doc, ok := s.docs[videoID]
	if !ok {
		doc = &db.StatusDocument{VideoID: videoID}
		s.docs[videoID] = doc
	}
	doc.Apply(update)
	doc.UpdatedAt = time.Now()
	s.updates = append(s.updates, AppliedUpdate{VideoID: videoID, Update: update})
	return nil
}

// AppendError adds an entry to the error log
func (s *Store) AppendError(_ context.Context, videoID uuid.UUID, stepName, errorLogs string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.errorLog = append(s.errorLog, db.PipelineError{
		ID:             uuid.New(),
		VideoID:        videoID,
		StepName:       stepName,
		ErrorLogs:      errorLogs,
		ErrorTimestamp: at,
	})
	return nil
}

// ListErrors returns the job's error log entries in insertion order
func (s *Store) ListErrors(_ context.Context, videoID uuid.UUID) ([]db.PipelineError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.PipelineError
	for _, e := range s.errorLog {
		if e.VideoID == videoID {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateVideo registers a source video file for a job
func (s *Store) CreateVideo(_ context.Context, videoID uuid.UUID, videoFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		v = &db.Video{ID: videoID, CreatedAt: time.Now()}
		s.videos[videoID] = v
	}
	v.Files.VideoFile = videoFile
	return nil
}

// GetVideo returns a copy of the video record, or nil when absent
func (s *Store) GetVideo(_ context.Context, videoID uuid.UUID) (*db.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, nil
	}
	out := *v
	if v.Metadata != nil {
		meta := *v.Metadata
		out.Metadata = &meta
	}
	return &out, nil
}

// SetVideoMetadata stores metadata on an existing video
func (s *Store) SetVideoMetadata(_ context.Context, videoID uuid.UUID, meta db.VideoMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("video not found: %s", videoID)
	}
	v.Metadata = &meta
	return nil
}

// SetVideoFile stores a path under files[key] on an existing video
func (s *Store) SetVideoFile(_ context.Context, videoID uuid.UUID, key db.VideoFileKey, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("video not found: %s", videoID)
	}
	switch key {
	case db.VideoFileSource:
		v.Files.VideoFile = path
	case db.VideoFileAudio:
		v.Files.AudioFile = path
	case db.VideoFileOutput:
		v.Files.OutputFile = path
	default:
		return fmt.Errorf("unknown video file key: %s", key)
	}
	return nil
}

// SaveTranscription stores the transcript for a video
func (s *Store) SaveTranscription(_ context.Context, videoID uuid.UUID, transcript json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcriptions[videoID] = append(json.RawMessage(nil), transcript...)
	return nil
}

// GetTranscription returns the transcript for a video, or nil when absent
func (s *Store) GetTranscription(_ context.Context, videoID uuid.UUID) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transcriptions[videoID]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), t...), nil
}

// ReplaceScenes replaces the scenes of a video, assigning IDs when nil
func (s *Store) ReplaceScenes(_ context.Context, videoID uuid.UUID, scenes []db.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]db.Scene, len(scenes))
	for i := range scenes {
		if scenes[i].ID == uuid.Nil {
			scenes[i].ID = uuid.New()
		}
		scenes[i].VideoID = videoID
		stored[i] = scenes[i]
	}
	s.scenes[videoID] = stored
	return nil
}

// ListScenes returns copies of a video's scenes ordered by index
func (s *Store) ListScenes(_ context.Context, videoID uuid.UUID) ([]db.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.Scene, len(s.scenes[videoID]))
	copy(out, s.scenes[videoID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// SetSceneFile stores a path in one of a scene's file columns
func (s *Store) SetSceneFile(_ context.Context, sceneID uuid.UUID, field db.SceneFileField, path string) error {
	if !field.Valid() {
		return fmt.Errorf("unknown scene file field: %s", field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for videoID, scenes := range s.scenes {
		for i := range scenes {
			if scenes[i].ID == sceneID {
				s.scenes[videoID][i].SetFile(field, path)
				return nil
			}
		}
	}
	return fmt.Errorf("scene not found: %s", sceneID)
}

// Close counts how many times the store handle was released
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

// Closed returns how many times Close was called
func (s *Store) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Updates returns every applied status update in order
func (s *Store) Updates() []AppliedUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AppliedUpdate, len(s.updates))
	copy(out, s.updates)
	return out
}

// SetStatus replaces a job's status document, for arranging test preconditions
func (s *Store) SetStatus(videoID uuid.UUID, flags map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := &db.StatusDocument{VideoID: videoID}
	update := db.NewStatusUpdate()
	for k, v := range flags {
		update.Flags[k] = v
	}
	doc.Apply(update)
	s.docs[videoID] = doc
}

func copyDoc(doc *db.StatusDocument) *db.StatusDocument {
	if doc == nil {
		return nil
	}
	out := &db.StatusDocument{
		VideoID:        doc.VideoID,
		StepsStatus:    make(map[string]bool, len(doc.StepsStatus)),
		Timestamps:     make(map[string]time.Time, len(doc.Timestamps)),
		ExecutionTimes: make(map[string]float64, len(doc.ExecutionTimes)),
		UpdatedAt:      doc.UpdatedAt,
	}
	for k, v := range doc.StepsStatus {
		out.StepsStatus[k] = v
	}
	for k, v := range doc.Timestamps {
		out.Timestamps[k] = v
	}
	for k, v := range doc.ExecutionTimes {
		out.ExecutionTimes[k] = v
	}
	return out
}

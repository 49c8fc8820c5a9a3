package db

import (
	"time"

	"github.com/google/uuid"
)

// StatusDocument is the per-job status record: step flags, transition timestamps,
// and step durations. A nil *StatusDocument means the job has never been touched.
type StatusDocument struct {
	VideoID        uuid.UUID            `json:"video_id"`
	StepsStatus    map[string]bool      `json:"steps_status"`
	Timestamps     map[string]time.Time `json:"timestamps"`
	ExecutionTimes map[string]float64   `json:"execution_times"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Flag returns the boolean stored under key; an absent key reads as false
func (d *StatusDocument) Flag(key string) bool {
	if d == nil {
		return false
	}
	return d.StepsStatus[key]
}

// HasFlag reports whether key is present in steps_status, regardless of its value
func (d *StatusDocument) HasFlag(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.StepsStatus[key]
	return ok
}

// Timestamp returns the timestamp stored under key, if any
func (d *StatusDocument) Timestamp(key string) (time.Time, bool) {
	if d == nil {
		return time.Time{}, false
	}
	ts, ok := d.Timestamps[key]
	return ts, ok
}

// ExecutionTime returns the recorded duration of step in seconds, if any
func (d *StatusDocument) ExecutionTime(step string) (float64, bool) {
	if d == nil {
		return 0, false
	}
	secs, ok := d.ExecutionTimes[step]
	return secs, ok
}

// Apply merges u into the document the same way ApplyUpdate does in SQL:
// sets are merged key by key, then unset keys are removed from steps_status.
func (d *StatusDocument) Apply(u StatusUpdate) {
	if d.StepsStatus == nil {
		d.StepsStatus = make(map[string]bool)
	}
	if d.Timestamps == nil {
		d.Timestamps = make(map[string]time.Time)
	}
	if d.ExecutionTimes == nil {
		d.ExecutionTimes = make(map[string]float64)
	}
	for k, v := range u.Flags {
		d.StepsStatus[k] = v
	}
	for k, v := range u.Timestamps {
		d.Timestamps[k] = v
	}
	for k, v := range u.ExecutionTimes {
		d.ExecutionTimes[k] = v
	}
	for _, k := range u.Unset {
		delete(d.StepsStatus, k)
	}
}

// StatusUpdate is a partial update of a status document. Keys not named are left untouched.
type StatusUpdate struct {
	Flags          map[string]bool
	Timestamps     map[string]time.Time
	ExecutionTimes map[string]float64
	Unset          []string
}

// NewStatusUpdate returns an empty update ready for chaining
func NewStatusUpdate() StatusUpdate {
	return StatusUpdate{
		Flags:          make(map[string]bool),
		Timestamps:     make(map[string]time.Time),
		ExecutionTimes: make(map[string]float64),
	}
}

// SetFlag sets a steps_status key
func (u StatusUpdate) SetFlag(key string, value bool) StatusUpdate {
	u.Flags[key] = value
	return u
}

// SetTimestamp sets a timestamps key
func (u StatusUpdate) SetTimestamp(key string, ts time.Time) StatusUpdate {
	u.Timestamps[key] = ts
	return u
}

// SetExecutionTime records the duration of step in seconds
func (u StatusUpdate) SetExecutionTime(step string, seconds float64) StatusUpdate {
	u.ExecutionTimes[step] = seconds
	return u
}

// UnsetFlag removes a steps_status key
func (u StatusUpdate) UnsetFlag(key string) StatusUpdate {
	u.Unset = append(u.Unset, key)
	return u
}

// PipelineError is one entry of the append-only error log
type PipelineError struct {
	ID             uuid.UUID `json:"id"`
	VideoID        uuid.UUID `json:"video_id"`
	StepName       string    `json:"step_name"`
	ErrorLogs      string    `json:"error_logs"`
	ErrorTimestamp time.Time `json:"error_timestamp"`
}

// VideoFileKey names an entry of the videos.files object
type VideoFileKey string

// Known video file keys
const (
	VideoFileSource VideoFileKey = "video_file"
	VideoFileAudio  VideoFileKey = "audio_file"
	VideoFileOutput VideoFileKey = "output_file"
)

// VideoFiles holds the file paths attached to a video
type VideoFiles struct {
	VideoFile  string `json:"video_file,omitempty"`
	AudioFile  string `json:"audio_file,omitempty"`
	OutputFile string `json:"output_file,omitempty"`
}

// VideoMetadata is the media information extracted during preprocessing
type VideoMetadata struct {
	Duration       float64 `json:"duration"`
	FPS            float64 `json:"fps"`
	Size           [2]int  `json:"size"`
	AudioFPS       *int    `json:"audio_fps"`
	AudioNChannels *int    `json:"audio_nchannels"`
}

// Video represents a videos row without its status columns
type Video struct {
	ID        uuid.UUID      `json:"id"`
	Files     VideoFiles     `json:"files"`
	Metadata  *VideoMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SceneFileField names a per-scene file path column
type SceneFileField string

// Scene file columns
const (
	SceneClipFile      SceneFileField = "clip_file_path"
	SceneAudioFile     SceneFileField = "audio_file_path"
	SceneVoiceoverClip SceneFileField = "clip_with_voiceover"
)

// Valid reports whether f names a known scene file column
func (f SceneFileField) Valid() bool {
	switch f {
	case SceneClipFile, SceneAudioFile, SceneVoiceoverClip:
		return true
	}
	return false
}

// Scene is one narrated segment of a video
type Scene struct {
	ID                uuid.UUID `json:"id"`
	VideoID           uuid.UUID `json:"video_id"`
	Index             int       `json:"scene_index"`
	Title             string    `json:"title"`
	TimeStart         float64   `json:"time_start"`
	TimeEnd           float64   `json:"time_end"`
	OriginalNarration string    `json:"original_narration"`
	PolishedNarration string    `json:"polished_narration"`
	ClipFilePath      *string   `json:"clip_file_path,omitempty"`
	AudioFilePath     *string   `json:"audio_file_path,omitempty"`
	ClipWithVoiceover *string   `json:"clip_with_voiceover,omitempty"`
}

// File returns the path stored in the given scene file column, or "" when unset
func (s *Scene) File(field SceneFileField) string {
	var p *string
	switch field {
	case SceneClipFile:
		p = s.ClipFilePath
	case SceneAudioFile:
		p = s.AudioFilePath
	case SceneVoiceoverClip:
		p = s.ClipWithVoiceover
	}
	if p == nil {
		return ""
	}
	return *p
}

// SetFile stores path in the given scene file column
func (s *Scene) SetFile(field SceneFileField, path string) {
	switch field {
	case SceneClipFile:
		s.ClipFilePath = &path
	case SceneAudioFile:
		s.AudioFilePath = &path
	case SceneVoiceoverClip:
		s.ClipWithVoiceover = &path
	}
}

package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Video Methods
// -----------------------------------------------------------------------------

// CreateVideo registers a source video file for a job, creating the row if needed
func (db *DB) CreateVideo(ctx context.Context, videoID uuid.UUID, videoFile string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO videos (id, files)
		 VALUES ($1, jsonb_build_object('video_file', $2::text))
		 ON CONFLICT (id) DO UPDATE SET
		     files = videos.files || jsonb_build_object('video_file', $2::text),
		     updated_at = NOW()`,
		videoID, videoFile,
	)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// GetVideo retrieves a video's files and metadata. Returns nil, nil when absent.
func (db *DB) GetVideo(ctx context.Context, videoID uuid.UUID) (*Video, error) {
	video := Video{ID: videoID}
	var filesJSON, metadataJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT files, metadata, created_at FROM videos WHERE id = $1`,
		videoID,
	).Scan(&filesJSON, &metadataJSON, &video.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	if err := json.Unmarshal(filesJSON, &video.Files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	if metadataJSON != nil {
		var meta VideoMetadata
		if err := json.Unmarshal(metadataJSON, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		video.Metadata = &meta
	}

	return &video, nil
}

// SetVideoMetadata stores the extracted media metadata on an existing video
func (db *DB) SetVideoMetadata(ctx context.Context, videoID uuid.UUID, meta VideoMetadata) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE videos SET metadata = $2, updated_at = NOW() WHERE id = $1`,
		videoID, metaJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to set video metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video not found: %s", videoID)
	}
	return nil
}

// SetVideoFile stores a single path under files[key] on an existing video
func (db *DB) SetVideoFile(ctx context.Context, videoID uuid.UUID, key VideoFileKey, path string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE videos
		 SET files = jsonb_set(files, ARRAY[$2::text], to_jsonb($3::text)), updated_at = NOW()
		 WHERE id = $1`,
		videoID, string(key), path,
	)
	if err != nil {
		return fmt.Errorf("failed to set video file %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video not found: %s", videoID)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Transcription Methods
// -----------------------------------------------------------------------------

// SaveTranscription stores the transcript for a video, replacing any earlier one
func (db *DB) SaveTranscription(ctx context.Context, videoID uuid.UUID, transcript json.RawMessage) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO transcriptions (video_id, transcription)
		 VALUES ($1, $2)
		 ON CONFLICT (video_id) DO UPDATE SET transcription = $2, created_at = NOW()`,
		videoID, []byte(transcript),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcription: %w", err)
	}
	return nil
}

// GetTranscription retrieves the transcript for a video. Returns nil, nil when absent.
func (db *DB) GetTranscription(ctx context.Context, videoID uuid.UUID) (json.RawMessage, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT transcription FROM transcriptions WHERE video_id = $1`,
		videoID,
	).Scan(&content)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transcription: %w", err)
	}
	return json.RawMessage(content), nil
}

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Scene Methods
// -----------------------------------------------------------------------------

// ReplaceScenes deletes any existing scenes for a video and inserts the given ones
// in a single transaction. Scene IDs are assigned when nil.
func (db *DB) ReplaceScenes(ctx context.Context, videoID uuid.UUID, scenes []Scene) error {
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM scenes WHERE video_id = $1`, videoID); err != nil {
			return fmt.Errorf("failed to delete scenes: %w", err)
		}

		batch := &pgx.Batch{}
		for i := range scenes {
			s := &scenes[i]
			if s.ID == uuid.Nil {
				s.ID = uuid.New()
			}
			s.VideoID = videoID
			batch.Queue(
				`INSERT INTO scenes (id, video_id, scene_index, title, time_start, time_end,
				                     original_narration, polished_narration)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				s.ID, videoID, s.Index, s.Title, s.TimeStart, s.TimeEnd,
				s.OriginalNarration, s.PolishedNarration,
			)
		}

		results := tx.SendBatch(ctx, batch)
		for range scenes {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert scene: %w", err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to replace scenes: %w", err)
	}
	return nil
}

// ListScenes retrieves all scenes for a video ordered by scene_index
func (db *DB) ListScenes(ctx context.Context, videoID uuid.UUID) ([]Scene, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, video_id, scene_index, title, time_start, time_end,
		        original_narration, polished_narration,
		        clip_file_path, audio_file_path, clip_with_voiceover
		 FROM scenes
		 WHERE video_id = $1
		 ORDER BY scene_index ASC`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		var s Scene
		if err := rows.Scan(&s.ID, &s.VideoID, &s.Index, &s.Title, &s.TimeStart, &s.TimeEnd,
			&s.OriginalNarration, &s.PolishedNarration,
			&s.ClipFilePath, &s.AudioFilePath, &s.ClipWithVoiceover); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scenes: %w", err)
	}
	return scenes, nil
}

// SetSceneFile stores a path in one of the scene's file columns
func (db *DB) SetSceneFile(ctx context.Context, sceneID uuid.UUID, field SceneFileField, path string) error {
	if !field.Valid() {
		return fmt.Errorf("unknown scene file field: %s", field)
	}

	// field is whitelisted above
	query := fmt.Sprintf(`UPDATE scenes SET %s = $2 WHERE id = $1`, field)
	tag, err := db.pool.Exec(ctx, query, sceneID, path)
	if err != nil {
		return fmt.Errorf("failed to set scene %s: %w", field, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scene not found: %s", sceneID)
	}
	return nil
}

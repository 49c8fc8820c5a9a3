package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Status Document Methods
// -----------------------------------------------------------------------------

// FetchStatus reads the status document for a job. Returns nil, nil when the job has no row yet.
func (db *DB) FetchStatus(ctx context.Context, videoID uuid.UUID) (*StatusDocument, error) {
	doc := StatusDocument{VideoID: videoID}
	var statusJSON, timestampsJSON, timesJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT steps_status, timestamps, execution_times, updated_at
		 FROM videos WHERE id = $1`,
		videoID,
	).Scan(&statusJSON, &timestampsJSON, &timesJSON, &doc.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}

	if err := json.Unmarshal(statusJSON, &doc.StepsStatus); err != nil {
		return nil, fmt.Errorf("failed to decode steps_status: %w", err)
	}
	if err := json.Unmarshal(timestampsJSON, &doc.Timestamps); err != nil {
		return nil, fmt.Errorf("failed to decode timestamps: %w", err)
	}
	if err := json.Unmarshal(timesJSON, &doc.ExecutionTimes); err != nil {
		return nil, fmt.Errorf("failed to decode execution_times: %w", err)
	}

	return &doc, nil
}

// ApplyUpdate merges a partial update into the job's status document in a single
// statement, creating the row if it does not exist. Sets are applied before unsets.
func (db *DB) ApplyUpdate(ctx context.Context, videoID uuid.UUID, update StatusUpdate) error {
	_, err := db.upsertStatus(ctx, videoID, update, nil)
	return err
}

// ClaimUpdate applies update like ApplyUpdate, but only when none of the steps_status
// keys in held is true at write time. It reports whether the update was applied. The
// check and the write are one statement, so two callers racing for the same keys
// cannot both succeed.
func (db *DB) ClaimUpdate(ctx context.Context, videoID uuid.UUID, held []string, update StatusUpdate) (bool, error) {
	if held == nil {
		held = []string{}
	}
	return db.upsertStatus(ctx, videoID, update, held)
}

func (db *DB) upsertStatus(ctx context.Context, videoID uuid.UUID, update StatusUpdate, held []string) (bool, error) {
	flagsJSON, err := marshalObject(update.Flags)
	if err != nil {
		return false, fmt.Errorf("failed to marshal steps_status: %w", err)
	}
	timestampsJSON, err := marshalObject(update.Timestamps)
	if err != nil {
		return false, fmt.Errorf("failed to marshal timestamps: %w", err)
	}
	timesJSON, err := marshalObject(update.ExecutionTimes)
	if err != nil {
		return false, fmt.Errorf("failed to marshal execution_times: %w", err)
	}
	unset := update.Unset
	if unset == nil {
		// jsonb - NULL yields NULL
		unset = []string{}
	}

	// a NULL $6 applies unconditionally
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO videos (id, steps_status, timestamps, execution_times)
		 VALUES ($1, $2::jsonb - $5::text[], $3::jsonb, $4::jsonb)
		 ON CONFLICT (id) DO UPDATE SET
		     steps_status = (videos.steps_status || EXCLUDED.steps_status) - $5::text[],
		     timestamps = videos.timestamps || EXCLUDED.timestamps,
		     execution_times = videos.execution_times || EXCLUDED.execution_times,
		     updated_at = NOW()
		 WHERE $6::text[] IS NULL OR NOT EXISTS (
		     SELECT 1 FROM unnest($6::text[]) AS k
		     WHERE videos.steps_status->>k = 'true')`,
		videoID, flagsJSON, timestampsJSON, timesJSON, unset, held,
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply status update: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendError inserts an entry into the pipeline error log
func (db *DB) AppendError(ctx context.Context, videoID uuid.UUID, stepName, errorLogs string, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_errors (id, video_id, step_name, error_logs, error_timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), videoID, stepName, errorLogs, at,
	)
	if err != nil {
		return fmt.Errorf("failed to append pipeline error: %w", err)
	}
	return nil
}

// ListErrors returns a job's error log entries, oldest first
func (db *DB) ListErrors(ctx context.Context, videoID uuid.UUID) ([]PipelineError, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, video_id, step_name, error_logs, error_timestamp
		 FROM pipeline_errors
		 WHERE video_id = $1
		 ORDER BY error_timestamp ASC`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline errors: %w", err)
	}
	defer rows.Close()

	var entries []PipelineError
	for rows.Next() {
		var e PipelineError
		if err := rows.Scan(&e.ID, &e.VideoID, &e.StepName, &e.ErrorLogs, &e.ErrorTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline error: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pipeline errors: %w", err)
	}
	return entries, nil
}

// marshalObject encodes a map as a JSON object, treating nil as {}
func marshalObject[V any](m map[string]V) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

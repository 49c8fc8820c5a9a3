package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/scene-narrator/internal/pipeline/steps"
	"github.com/jonathan/scene-narrator/internal/server/middleware"
)

// ErrorEntry is one error log entry as returned by the API
type ErrorEntry struct {
	ID        uuid.UUID `json:"id"`
	Step      string    `json:"step"`
	Logs      string    `json:"logs"`
	Timestamp time.Time `json:"timestamp"`
}

// JobErrorsResponse represents the error log of a job
type JobErrorsResponse struct {
	VideoID uuid.UUID    `json:"video_id"`
	Count   int          `json:"count"`
	Errors  []ErrorEntry `json:"errors"`
}

// SubmitResponse acknowledges a queued job
type SubmitResponse struct {
	VideoID     uuid.UUID `json:"video_id"`
	Status      string    `json:"status"`
	SubmittedBy string    `json:"submitted_by"`
}

func parseJobID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	videoID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ErrInvalidJobID{Value: raw}
	}
	return videoID, nil
}

// handleJobStatus returns the per-step view of a job
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	videoID, err := parseJobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.store.FetchStatus(r.Context(), videoID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if doc == nil {
		s.writeError(w, r, &ErrJobNotFound{VideoID: videoID})
		return
	}

	s.jsonResponse(w, http.StatusOK, steps.BuildReport(videoID, doc, s.location))
}

// handleJobErrors returns the job's error log, optionally filtered by ?step=
func (s *Server) handleJobErrors(w http.ResponseWriter, r *http.Request) {
	videoID, err := parseJobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	step := r.URL.Query().Get("step")
	if _, ok := steps.StepRegistry[step]; step != "" && !ok {
		s.writeError(w, r, &ErrUnknownStep{Step: step})
		return
	}

	entries, err := s.store.ListErrors(r.Context(), videoID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := JobErrorsResponse{VideoID: videoID, Errors: []ErrorEntry{}}
	for _, e := range entries {
		if step != "" && e.StepName != step {
			continue
		}
		resp.Errors = append(resp.Errors, ErrorEntry{
			ID:        e.ID,
			Step:      e.StepName,
			Logs:      e.ErrorLogs,
			Timestamp: e.ErrorTimestamp.In(s.location),
		})
	}
	resp.Count = len(resp.Errors)

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleSubmitJob queues a job for the worker
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	videoID, err := parseJobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.submitter == nil {
		s.writeError(w, r, &ErrSubmitUnavailable{})
		return
	}

	subject, _ := middleware.Subject(r)
	if err := s.submitter.PublishVideoSubmitted(r.Context(), videoID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("job submitted", "video_id", videoID.String(), "subject", subject)
	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		VideoID:     videoID,
		Status:      "queued",
		SubmittedBy: subject,
	})
}

// handleJobEvents streams the job report whenever it changes, until the job is no longer
// running and has completed or failed, or the client goes away.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	videoID, err := parseJobID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last []byte
	for {
		doc, err := s.store.FetchStatus(ctx, videoID)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("streaming job status", "video_id", videoID.String(), "error", err)
				sse.WriteError("failed to read job status")
			}
			return
		}

		report := steps.BuildReport(videoID, doc, s.location)
		encoded, err := json.Marshal(report)
		if err != nil {
			sse.WriteError("failed to encode job status")
			return
		}
		if !bytes.Equal(encoded, last) {
			if err := sse.WriteRaw("status", encoded); err != nil {
				return
			}
			last = encoded
		}

		if report.Status == steps.JobCompleted || report.Status == steps.JobFailed {
			sse.WriteComplete(videoID.String(), report.Status)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Package transcription submits audio to the Rev AI asynchronous speech-to-text API
// and waits for the transcript.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jonathan/scene-narrator/internal/fetch"
)

// DefaultBaseURL is the Rev AI speech-to-text endpoint
const DefaultBaseURL = "https://api.rev.ai/speechtotext/v1"

// DefaultPollInterval is how often job status is checked
const DefaultPollInterval = 10 * time.Second

const transcriptMediaType = "application/vnd.rev.transcript.v1.0+json"

// Job states reported by the API
const (
	StatusInProgress  = "in_progress"
	StatusTranscribed = "transcribed"
	StatusFailed      = "failed"
)

// ErrMissingToken is returned when the client is built without an access token
var ErrMissingToken = errors.New("rev ai access token is required")

// JobFailedError is returned when Rev AI reports the job as failed
type JobFailedError struct {
	JobID  string
	Detail string
}

func (e *JobFailedError) Error() string {
	return "transcription job " + e.JobID + " failed: " + e.Detail
}

// Job is the subset of the job resource the client reads
type Job struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureDetail string `json:"failure_detail,omitempty"`
}

// Client talks to the Rev AI API
type Client struct {
	token        string
	baseURL      string
	pollInterval time.Duration
	http         *fetch.Client
	logger       *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithPollInterval overrides how often job status is polled
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for progress messages
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Rev AI client
func NewClient(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	c := &Client{
		token:        token,
		baseURL:      DefaultBaseURL,
		pollInterval: DefaultPollInterval,
		http:         fetch.NewClient(nil),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transcribe uploads the audio file, polls until the job finishes, and returns the
// transcript JSON.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (json.RawMessage, error) {
	job, err := c.SubmitLocalFile(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transcription job submitted", "job_id", job.ID)

	if err := c.waitForJob(ctx, job.ID); err != nil {
		return nil, err
	}

	c.logger.Info("transcription completed, fetching transcript", "job_id", job.ID)
	return c.Transcript(ctx, job.ID)
}

// SubmitLocalFile uploads a local media file as a new job
func (c *Client) SubmitLocalFile(ctx context.Context, path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open audio file")
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return nil, errors.Wrap(err, "create multipart field")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, errors.Wrap(err, "read audio file")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finish multipart body")
	}

	result, err := c.http.Do(ctx, http.MethodPost, c.baseURL+"/jobs", &body, c.headers(map[string]string{
		"Content-Type": writer.FormDataContentType(),
	}))
	if err != nil {
		return nil, errors.Wrap(err, "submit transcription job")
	}

	var job Job
	if err := json.Unmarshal(result.Body, &job); err != nil {
		return nil, errors.Wrap(err, "decode submitted job")
	}
	if job.ID == "" {
		return nil, errors.New("submitted job has no id")
	}
	return &job, nil
}

// JobDetails fetches the current state of a job
func (c *Client) JobDetails(ctx context.Context, jobID string) (*Job, error) {
	result, err := c.http.Do(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil, c.headers(nil))
	if err != nil {
		return nil, errors.Wrapf(err, "get job %s", jobID)
	}
	var job Job
	if err := json.Unmarshal(result.Body, &job); err != nil {
		return nil, errors.Wrapf(err, "decode job %s", jobID)
	}
	return &job, nil
}

// Transcript fetches the finished transcript as JSON
func (c *Client) Transcript(ctx context.Context, jobID string) (json.RawMessage, error) {
	result, err := c.http.Do(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID+"/transcript", nil, c.headers(map[string]string{
		"Accept": transcriptMediaType,
	}))
	if err != nil {
		return nil, errors.Wrapf(err, "get transcript %s", jobID)
	}
	if !json.Valid(result.Body) {
		return nil, errors.Errorf("transcript %s is not valid JSON", jobID)
	}
	return json.RawMessage(result.Body), nil
}

func (c *Client) waitForJob(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.JobDetails(ctx, jobID)
		if err != nil {
			return err
		}
		c.logger.Debug("transcription job status", "job_id", jobID, "status", job.Status)

		switch job.Status {
		case StatusTranscribed:
			return nil
		case StatusFailed:
			return errors.WithStack(&JobFailedError{JobID: jobID, Detail: job.FailureDetail})
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for job %s", jobID)
		case <-ticker.C:
		}
	}
}

func (c *Client) headers(extra map[string]string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + c.token}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

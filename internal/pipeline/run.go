// Package pipeline provides the high-level orchestration for narrating a submitted video.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/scene-narrator/internal/pipeline/steps"
	"github.com/jonathan/scene-narrator/internal/telemetry"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	VideoID  string `json:"video_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called after each step completes
type ProgressCallback func(event ProgressEvent)

// Metrics observes step attempts and finished jobs
type Metrics interface {
	steps.Observer
	ObserveJob(err error)
}

// Config holds what the orchestrator needs to run jobs
type Config struct {
	Opener        StoreOpener
	Collaborators Collaborators
	Workspace     Workspace
	Voice         string
	Logger        *slog.Logger
	Location      *time.Location
	Now           func() time.Time
	Metrics       Metrics
	OnProgress    ProgressCallback
}

// Orchestrator runs the steps of one job in dependency order
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Opener == nil {
		return nil, errors.New("store opener is required")
	}
	c := cfg.Collaborators
	if c.Media == nil || c.Transcriber == nil || c.Generator == nil || c.Speech == nil {
		return nil, errors.New("all collaborators are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger}, nil
}

// jobRun is the per-job state shared by the steps of one ProcessJob call
type jobRun struct {
	videoID    uuid.UUID
	tracker    *steps.Tracker
	stages     *Stages
	onProgress ProgressCallback
}

// ProcessJob runs every step for the job. The store handle is opened once and released
// on every path. Cancelling ctx stops the job before the next step starts, but a step
// already running is not interrupted. The first failure stops the job and is returned.
func (o *Orchestrator) ProcessJob(ctx context.Context, videoID uuid.UUID) (err error) {
	logger := telemetry.WithJobID(o.logger, videoID.String())
	started := time.Now()
	defer func() {
		if o.cfg.Metrics != nil {
			o.cfg.Metrics.ObserveJob(err)
		}
		elapsed := time.Since(started).Seconds()
		if err != nil {
			logger.Error("pipeline failed", "error", err, "elapsed_seconds", elapsed)
			return
		}
		logger.Info("pipeline completed", "elapsed_seconds", elapsed)
	}()

	store, err := o.cfg.Opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var observer steps.Observer
	if o.cfg.Metrics != nil {
		observer = o.cfg.Metrics
	}
	run := &jobRun{
		videoID: videoID,
		tracker: steps.NewTracker(steps.TrackerConfig{
			Store:    store,
			Logger:   logger,
			Location: o.cfg.Location,
			Now:      o.cfg.Now,
			Observer: observer,
		}),
		stages:     NewStages(store, o.cfg.Collaborators, o.cfg.Workspace, o.cfg.Voice, logger),
		onProgress: o.cfg.OnProgress,
	}

	logger.Info("pipeline started")
	return run.execute(ctx)
}

func (r *jobRun) execute(ctx context.Context) error {
	pre, err := runStep(ctx, r, steps.StepPreprocess, r.stages.Preprocess)
	if err != nil {
		return err
	}
	r.emit(steps.StepPreprocess, fmt.Sprintf("Extracted metadata (%.1fs, %dx%d) and audio track", pre.Metadata.Duration, pre.Metadata.Size[0], pre.Metadata.Size[1]), pre)

	size, err := runStep(ctx, r, steps.StepFetchTranscription, r.stages.FetchTranscription)
	if err != nil {
		return err
	}
	r.emit(steps.StepFetchTranscription, fmt.Sprintf("Stored transcript (%d bytes)", size), nil)

	scenes, err := runStep(ctx, r, steps.StepMakeScenes, r.stages.MakeScenes)
	if err != nil {
		return err
	}
	r.emit(steps.StepMakeScenes, fmt.Sprintf("Generated %d scenes", len(scenes)), scenes)

	// =========================================================================
	// PARALLEL EXECUTION: clips + narration audio
	// =========================================================================
	// siblings are never cancelled; each records its own outcome before the join
	if err := stopped(ctx, steps.StepExtractClips); err != nil {
		return err
	}
	var g errgroup.Group
	var clips, narration []string
	var clipsErr, audioErr error

	g.Go(func() error {
		clips, clipsErr = track(ctx, r, steps.StepExtractClips, r.stages.ExtractClips)
		return clipsErr
	})
	g.Go(func() error {
		narration, audioErr = track(ctx, r, steps.StepGenerateAudio, r.stages.GenerateAudio)
		return audioErr
	})

	if g.Wait() != nil {
		return errors.Join(clipsErr, audioErr)
	}
	r.emit(steps.StepExtractClips, fmt.Sprintf("Extracted %d clips", len(clips)), clips)
	r.emit(steps.StepGenerateAudio, fmt.Sprintf("Generated %d narration files", len(narration)), narration)
	// =========================================================================

	voiced, err := runStep(ctx, r, steps.StepAddVoiceover, r.stages.AddVoiceover)
	if err != nil {
		return err
	}
	r.emit(steps.StepAddVoiceover, fmt.Sprintf("Added voiceover to %d clips", len(voiced)), voiced)

	output, err := runStep(ctx, r, steps.StepAssembleVideo, r.stages.AssembleVideo)
	if err != nil {
		return err
	}
	r.emit(steps.StepAssembleVideo, fmt.Sprintf("Assembled video at %s", output), output)
	return nil
}

// runStep starts step unless the caller has cancelled the job
func runStep[T any](ctx context.Context, r *jobRun, step string, fn func(context.Context, uuid.UUID) (T, error)) (T, error) {
	if err := stopped(ctx, step); err != nil {
		var zero T
		return zero, err
	}
	return track(ctx, r, step, fn)
}

// track runs step under the tracker. A started step is never interrupted by the
// caller's cancellation.
func track[T any](ctx context.Context, r *jobRun, step string, fn func(context.Context, uuid.UUID) (T, error)) (T, error) {
	return steps.Run[T](context.WithoutCancel(ctx), r.tracker, r.videoID, step, fn)
}

// stopped returns the cancellation of ctx, if any, naming the step that was not started
func stopped(ctx context.Context, step string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job stopped before %s: %w", step, err)
	}
	return nil
}

// emit calls the progress callback if configured
func (r *jobRun) emit(step, message string, content any) {
	if r.onProgress == nil {
		return
	}
	r.onProgress(ProgressEvent{
		Step:     step,
		Category: steps.StepRegistry[step].Category,
		Message:  message,
		VideoID:  r.videoID.String(),
		Content:  content,
	})
}

package steps

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/jonathan/scene-narrator/internal/db"
)

// Step outcomes reported to the Observer
const (
	OutcomeCompleted = "completed"
	OutcomeErrored   = "errored"
	OutcomeRejected  = "rejected"
)

// StepFunc is the logic of one step for one job
type StepFunc[T any] func(ctx context.Context, videoID uuid.UUID) (T, error)

// Observer receives one call per finished step attempt
type Observer interface {
	ObserveStep(step, outcome string, elapsed time.Duration)
}

// TrackerConfig configures a Tracker
type TrackerConfig struct {
	Store    StatusStore
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
	Observer Observer
}

// Tracker wraps step logic with the guard and records every transition in the status store
type Tracker struct {
	store    StatusStore
	guard    *Guard
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	observer Observer
}

// NewTracker creates a tracker. Logger defaults to slog.Default, Location to UTC,
// and Now to time.Now.
func NewTracker(cfg TrackerConfig) *Tracker {
	t := &Tracker{
		store:    cfg.Store,
		guard:    NewGuard(cfg.Store),
		logger:   cfg.Logger,
		location: cfg.Location,
		now:      cfg.Now,
		observer: cfg.Observer,
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.location == nil {
		t.location = time.UTC
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

func (t *Tracker) clock() time.Time {
	return t.now().In(t.location)
}

func (t *Tracker) observe(step, outcome string, elapsed time.Duration) {
	if t.observer != nil {
		t.observer.ObserveStep(step, outcome, elapsed)
	}
}

// Run executes fn as step for the job. The guard runs first; a rejection is logged to
// the error log, marked on the status document, and returned without calling fn.
// Otherwise the step is marked in progress, fn runs, and its outcome is recorded before
// Run returns. A panic in fn is recovered as *PanicError. If recording a transition
// fails, Run returns *PersistenceError instead of the step's own outcome.
func Run[T any](ctx context.Context, t *Tracker, videoID uuid.UUID, step string, fn StepFunc[T]) (T, error) {
	var zero T
	logger := t.logger.With("video_id", videoID.String(), "step", step)

	// terminal writes must land even if the caller has given up
	recordCtx := context.WithoutCancel(ctx)

	if err := t.guard.Check(ctx, videoID, step); err != nil {
		if !IsGuardRejection(err) {
			return zero, &PersistenceError{Step: step, Op: "check guard", Err: err}
		}
		return zero, t.reject(recordCtx, logger, videoID, step, err)
	}

	start := t.clock()
	update := dbpkg.NewStatusUpdate().
		SetFlag(InProgressKey(step), true).
		SetTimestamp(StartTimeKey(step), start).
		UnsetFlag(CompletedKey(step)).
		UnsetFlag(ErrorKey(step))
	claimed, err := t.store.ClaimUpdate(ctx, videoID, []string{InProgressKey(step), CompletedKey(step)}, update)
	if err != nil {
		return zero, &PersistenceError{Step: step, Op: "mark step in progress", Err: err}
	}
	if !claimed {
		// another run started the step after the guard read; re-check to report which
		// state it left behind
		lost := t.guard.Check(ctx, videoID, step)
		if !IsGuardRejection(lost) {
			lost = &StepInProgressError{Step: step}
		}
		return zero, t.reject(recordCtx, logger, videoID, step, lost)
	}
	logger.Info("step started")

	result, stepErr := invoke(ctx, videoID, fn)
	end := t.clock()
	elapsed := end.Sub(start)

	if stepErr != nil {
		if recErr := t.recordFailure(recordCtx, videoID, step, stepErr, end, elapsed); recErr != nil {
			return zero, recErr
		}
		logger.Error("step failed", "error", stepErr, "elapsed_seconds", elapsed.Seconds())
		t.observe(step, OutcomeErrored, elapsed)
		return zero, stepErr
	}

	update = dbpkg.NewStatusUpdate().
		SetFlag(CompletedKey(step), true).
		SetTimestamp(EndTimeKey(step), end).
		SetExecutionTime(step, elapsed.Seconds()).
		UnsetFlag(InProgressKey(step)).
		UnsetFlag(ErrorKey(step))
	if err := t.store.ApplyUpdate(recordCtx, videoID, update); err != nil {
		return zero, &PersistenceError{Step: step, Op: "mark step completed", Err: err}
	}
	logger.Info("step completed", "elapsed_seconds", elapsed.Seconds())
	t.observe(step, OutcomeCompleted, elapsed)
	return result, nil
}

// reject records a guard rejection and returns it, or the persistence failure that
// prevented recording it
func (t *Tracker) reject(ctx context.Context, logger *slog.Logger, videoID uuid.UUID, step string, cause error) error {
	if err := t.recordRejection(ctx, videoID, step, cause); err != nil {
		return err
	}
	logger.Warn("step rejected", "error", cause)
	t.observe(step, OutcomeRejected, 0)
	return cause
}

// invoke calls fn, converting a panic into *PanicError
func invoke[T any](ctx context.Context, videoID uuid.UUID, fn StepFunc[T]) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, videoID)
}

// recordRejection logs a guard rejection and stamps its time. A duplicate leaves the
// step's flags to the run that owns them, so a completion is never undone and a
// running attempt keeps its in-progress mark. Only a dependency rejection marks the
// step as failed.
func (t *Tracker) recordRejection(ctx context.Context, videoID uuid.UUID, step string, cause error) error {
	at := t.clock()
	if err := t.store.AppendError(ctx, videoID, step, cause.Error(), at); err != nil {
		return &PersistenceError{Step: step, Op: "log rejection", Err: err}
	}
	update := dbpkg.NewStatusUpdate().SetTimestamp(ErrorTimeKey(step), at)
	var dup *StepInProgressError
	if !errors.As(cause, &dup) {
		update = update.
			SetFlag(CompletedKey(step), false).
			SetFlag(ErrorKey(step), true)
	}
	if err := t.store.ApplyUpdate(ctx, videoID, update); err != nil {
		return &PersistenceError{Step: step, Op: "mark step rejected", Err: err}
	}
	return nil
}

// recordFailure logs a failed step and marks it errored
func (t *Tracker) recordFailure(ctx context.Context, videoID uuid.UUID, step string, cause error, at time.Time, elapsed time.Duration) error {
	if err := t.store.AppendError(ctx, videoID, step, ErrorLogText(cause), at); err != nil {
		return &PersistenceError{Step: step, Op: "log failure", Err: err}
	}
	update := dbpkg.NewStatusUpdate().
		SetFlag(CompletedKey(step), false).
		SetFlag(ErrorKey(step), true).
		SetTimestamp(ErrorTimeKey(step), at).
		SetExecutionTime(step, elapsed.Seconds()).
		UnsetFlag(InProgressKey(step))
	if err := t.store.ApplyUpdate(ctx, videoID, update); err != nil {
		return &PersistenceError{Step: step, Op: "mark step failed", Err: err}
	}
	return nil
}

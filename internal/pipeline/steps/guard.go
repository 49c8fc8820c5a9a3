package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/jonathan/scene-narrator/internal/db"
)

// StatusReader reads job status documents
type StatusReader interface {
	FetchStatus(ctx context.Context, videoID uuid.UUID) (*dbpkg.StatusDocument, error)
}

// StatusStore is the store surface used by the guard and the tracker
type StatusStore interface {
	StatusReader
	ApplyUpdate(ctx context.Context, videoID uuid.UUID, update dbpkg.StatusUpdate) error
	// ClaimUpdate applies update only if none of the held keys is true at write time
	ClaimUpdate(ctx context.Context, videoID uuid.UUID, held []string, update dbpkg.StatusUpdate) (bool, error)
	AppendError(ctx context.Context, videoID uuid.UUID, stepName, errorLogs string, at time.Time) error
}

// Guard decides whether a step may start for a job
type Guard struct {
	store StatusReader
}

// NewGuard creates a guard reading from store
func NewGuard(store StatusReader) *Guard {
	return &Guard{store: store}
}

// Check returns nil when step may run. A step that is running or already completed is
// rejected with *StepInProgressError; a step with an incomplete prerequisite is rejected
// with *StepDependencyError. A step whose last attempt failed may run again. Any other
// error comes from the store.
func (g *Guard) Check(ctx context.Context, videoID uuid.UUID, step string) error {
	doc, err := g.store.FetchStatus(ctx, videoID)
	if err != nil {
		return fmt.Errorf("failed to fetch status for %s: %w", step, err)
	}

	switch StateOf(doc, step) {
	case StateInProgress:
		return &StepInProgressError{Step: step}
	case StateCompleted:
		return &StepInProgressError{Step: step, Completed: true}
	}

	return ValidateDependencies(doc, step)
}

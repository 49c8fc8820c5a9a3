package steps

import (
	dbpkg "github.com/jonathan/scene-narrator/internal/db"
)

// StepState is the lifecycle state of one step derived from its status flags
type StepState int

// Step states
const (
	StateNotStarted StepState = iota
	StateInProgress
	StateCompleted
	StateErrored
)

func (s StepState) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "not_started"
	}
}

// Status document keys. The persisted names are shared with other readers of the
// store, so they are built here and nowhere else.

// InProgressKey returns the steps_status key marking step as running
func InProgressKey(step string) string { return step + "_inProgress" }

// CompletedKey returns the steps_status key marking step as completed
func CompletedKey(step string) string { return step + "_completed" }

// ErrorKey returns the steps_status key marking step as failed
func ErrorKey(step string) string { return step + "_error" }

// StartTimeKey returns the timestamps key for the step's start
func StartTimeKey(step string) string { return step + "_start_time" }

// EndTimeKey returns the timestamps key for the step's successful end
func EndTimeKey(step string) string { return step + "_end_time" }

// ErrorTimeKey returns the timestamps key for the step's failure
func ErrorTimeKey(step string) string { return step + "_error_time" }

// StateOf derives the state of step from the status document.
// InProgress takes precedence, then Completed, then Errored.
func StateOf(doc *dbpkg.StatusDocument, step string) StepState {
	switch {
	case doc.Flag(InProgressKey(step)):
		return StateInProgress
	case doc.Flag(CompletedKey(step)):
		return StateCompleted
	case doc.Flag(ErrorKey(step)):
		return StateErrored
	default:
		return StateNotStarted
	}
}

package steps

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// StepInProgressError is returned when a step is already running or has already completed
type StepInProgressError struct {
	Step      string
	Completed bool
}

func (e *StepInProgressError) Error() string {
	if e.Completed {
		return fmt.Sprintf("step %s is already completed", e.Step)
	}
	return fmt.Sprintf("step %s is already in progress", e.Step)
}

// StepDependencyError is returned when a prerequisite of a step has not completed.
// Dependency is the first unmet prerequisite; Missing lists all of them.
type StepDependencyError struct {
	Step       string
	Dependency string
	Missing    []string
}

func (e *StepDependencyError) Error() string {
	return fmt.Sprintf("step %s requires %s to be completed (missing dependencies: %v)", e.Step, e.Dependency, e.Missing)
}

// IsGuardRejection reports whether err is a duplicate or dependency rejection
func IsGuardRejection(err error) bool {
	var inProgress *StepInProgressError
	var dependency *StepDependencyError
	return errors.As(err, &inProgress) || errors.As(err, &dependency)
}

// PanicError wraps a value recovered from a panicking step
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Format prints the recovered stack for %+v
func (e *PanicError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.Error())
			_, _ = io.WriteString(s, "\n")
			_, _ = s.Write(e.Stack)
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// PersistenceError is returned when the tracker could not record a step transition.
// It replaces the step's own outcome.
type PersistenceError struct {
	Step string
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s for step %s: %v", e.Op, e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrorLogText renders err for the error log: the message, then the detailed
// %+v form (which carries a stack trace for github.com/pkg/errors and panics)
// when it adds anything.
func ErrorLogText(err error) string {
	msg := err.Error()
	detail := fmt.Sprintf("%+v", err)
	if detail == msg || strings.TrimSpace(detail) == "" {
		return msg
	}
	return msg + "\n" + detail
}

package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrInvalidJobID indicates the path id is not a UUID
type ErrInvalidJobID struct {
	Value string
}

func (e *ErrInvalidJobID) Error() string {
	return fmt.Sprintf("invalid job id: %q", e.Value)
}

// ErrJobNotFound indicates no status document exists for the job
type ErrJobNotFound struct {
	VideoID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("job not found: %s", e.VideoID)
}

// ErrUnknownStep indicates a step filter that names no pipeline step
type ErrUnknownStep struct {
	Step string
}

func (e *ErrUnknownStep) Error() string {
	return fmt.Sprintf("unknown step: %q", e.Step)
}

// ErrSubmitUnavailable indicates the server was started without a queue
type ErrSubmitUnavailable struct{}

func (e *ErrSubmitUnavailable) Error() string {
	return "job submission is not configured"
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrInvalidJobID, *ErrUnknownStep:
		return http.StatusBadRequest
	case *ErrJobNotFound:
		return http.StatusNotFound
	case *ErrSubmitUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

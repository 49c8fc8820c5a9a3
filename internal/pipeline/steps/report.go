package steps

import (
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/jonathan/scene-narrator/internal/db"
)

// Overall job statuses reported by BuildReport
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobFailed    = "failed"
	JobCompleted = "completed"
)

// StepReport is the view of one step derived from a status document
type StepReport struct {
	Step             string     `json:"step"`
	Category         string     `json:"category"`
	State            string     `json:"state"`
	DependsOn        []string   `json:"depends_on"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	ErrorTime        *time.Time `json:"error_time,omitempty"`
	ExecutionSeconds *float64   `json:"execution_seconds,omitempty"`
}

// ReportSummary counts steps by state
type ReportSummary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Errored    int `json:"errored"`
	NotStarted int `json:"not_started"`
}

// JobReport is the per-step view of a job
type JobReport struct {
	VideoID   uuid.UUID     `json:"video_id"`
	Status    string        `json:"status"`
	Steps     []StepReport  `json:"steps"`
	Available []string      `json:"available"`
	Blocked   []string      `json:"blocked"`
	Summary   ReportSummary `json:"summary"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

// BuildReport derives the job view from doc. Timestamps are rendered in loc; a nil loc keeps
// them as stored. A nil doc reports every step as not started.
func BuildReport(videoID uuid.UUID, doc *dbpkg.StatusDocument, loc *time.Location) JobReport {
	report := JobReport{
		VideoID:   videoID,
		Available: AvailableSteps(doc),
		Blocked:   BlockedSteps(doc),
	}

	inLoc := func(ts time.Time, ok bool) *time.Time {
		if !ok {
			return nil
		}
		if loc != nil {
			ts = ts.In(loc)
		}
		return &ts
	}

	for _, step := range order {
		state := StateOf(doc, step)
		sr := StepReport{
			Step:      step,
			Category:  StepRegistry[step].Category,
			State:     state.String(),
			DependsOn: Prerequisites(step),
			StartTime: inLoc(doc.Timestamp(StartTimeKey(step))),
			EndTime:   inLoc(doc.Timestamp(EndTimeKey(step))),
			ErrorTime: inLoc(doc.Timestamp(ErrorTimeKey(step))),
		}
		if secs, ok := doc.ExecutionTime(step); ok {
			sr.ExecutionSeconds = &secs
		}
		report.Steps = append(report.Steps, sr)

		switch state {
		case StateCompleted:
			report.Summary.Completed++
		case StateInProgress:
			report.Summary.InProgress++
		case StateErrored:
			report.Summary.Errored++
		default:
			report.Summary.NotStarted++
		}
	}
	report.Summary.Total = len(report.Steps)

	if doc != nil && !doc.UpdatedAt.IsZero() {
		report.UpdatedAt = inLoc(doc.UpdatedAt, true)
	}

	switch {
	case report.Summary.InProgress > 0:
		report.Status = JobRunning
	case report.Summary.Completed == report.Summary.Total:
		report.Status = JobCompleted
	case report.Summary.Errored > 0:
		report.Status = JobFailed
	default:
		report.Status = JobPending
	}
	return report
}

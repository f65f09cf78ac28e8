package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StepState is the completion state of a single workflow step.
type StepState string

const (
	StepNotStarted StepState = "NotStarted"
	StepRunning    StepState = "Running"
	StepApproved   StepState = "Approved"
	StepRejected   StepState = "Rejected"
	StepSkipped    StepState = "Skipped"
)

// Actor identifies the person acting on a workflow step.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Mail string    `json:"mail,omitempty"`
}

// Step is one stage of a request's approval lifecycle. Instances are
// per-request copies of the variant's static templates; templates are never
// mutated.
type Step struct {
	ID             string
	Name           string
	Description    string
	PreviousStepID string
	NextStepID     string
	State          StepState
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CompletedBy    *Actor
	Reason         string
}

// Start transitions the step from NotStarted to Running.
func (s *Step) Start() {
	if s.State != StepNotStarted {
		panic(fmt.Sprintf("workflow: cannot start step %q in state %s", s.ID, s.State))
	}
	now := time.Now()
	s.State = StepRunning
	s.StartedAt = &now
}

// Complete transitions a Running step to Approved or Rejected. Calling it on
// a step that is not Running is a caller bug, not user input.
func (s *Step) Complete(actor Actor, approved bool) {
	if s.State != StepRunning {
		panic(fmt.Sprintf("workflow: cannot complete step %q in state %s", s.ID, s.State))
	}
	now := time.Now()
	if approved {
		s.State = StepApproved
	} else {
		s.State = StepRejected
	}
	s.CompletedAt = &now
	s.CompletedBy = &actor
}

// Skip marks a step as not applicable without requiring approval.
func (s *Step) Skip(by *Actor) {
	if s.State != StepNotStarted && s.State != StepRunning {
		panic(fmt.Sprintf("workflow: cannot skip step %q in state %s", s.ID, s.State))
	}
	now := time.Now()
	s.State = StepSkipped
	s.CompletedAt = &now
	s.CompletedBy = by
}

// SetReason attaches a rejection reason. Callers are expected to set it
// whenever a step is completed with approved=false.
func (s *Step) SetReason(text string) {
	s.Reason = text
}

// Amend appends text to the step description. Descriptions are narrated
// snapshots; amendments keep later rewrites auditable.
func (s *Step) Amend(text string) {
	if s.Description == "" {
		s.Description = text
		return
	}
	s.Description = s.Description + " " + text
}

// IsCompleted reports whether the step has reached a final state.
func (s *Step) IsCompleted() bool {
	switch s.State {
	case StepApproved, StepRejected, StepSkipped:
		return true
	}
	return false
}

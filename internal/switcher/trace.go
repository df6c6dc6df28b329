package switcher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is a step of a switch workflow.
type State int

const (
	StateIdle State = iota
	StateTerminating
	StateExtractingIdentity
	StateCapturing
	StateClearing
	StateRestoring
	StateLaunching
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateTerminating:        "terminating",
	StateExtractingIdentity: "extracting_identity",
	StateCapturing:          "capturing",
	StateClearing:           "clearing",
	StateRestoring:          "restoring",
	StateLaunching:          "launching",
	StateDone:               "done",
	StateFailed:             "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Step is the outcome of one workflow state.
type Step struct {
	State    State
	Message  string
	Err      error
	Fatal    bool
	Duration time.Duration
}

func (s Step) String() string {
	if s.Err == nil {
		return s.Message
	}
	if s.Message == "" {
		return fmt.Sprintf("%s failed: %v", s.State, s.Err)
	}
	return fmt.Sprintf("%s (%v)", s.Message, s.Err)
}

// Trace records every step a workflow ran, in order.
type Trace struct {
	RunID    string
	Workflow string
	Account  string
	Steps    []Step
	Final    State
}

// String joins the step messages into one line.
func (t *Trace) String() string {
	parts := make([]string, 0, len(t.Steps))
	for _, s := range t.Steps {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " -> ")
}

// Failed returns the steps that recorded an error.
func (t *Trace) Failed() []Step {
	var failed []Step
	for _, s := range t.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Err joins the non-fatal step errors of a finished workflow. It is nil
// when every step succeeded.
func (t *Trace) Err() error {
	var errs []error
	for _, s := range t.Steps {
		if s.Err != nil && !s.Fatal {
			errs = append(errs, &StepError{State: s.State, Err: s.Err})
		}
	}
	return errors.Join(errs...)
}

func (t *Trace) add(s Step) {
	t.Steps = append(t.Steps, s)
}

// StepError names the workflow state an error occurred in.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

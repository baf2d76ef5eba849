package session

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an import session
type Status string

const (
	StatusInitializing  Status = "initializing"
	StatusAnalyzingFile Status = "analyzing_file"
	StatusMapped        Status = "mapped"
	StatusDryRun        Status = "dry_run"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusCancelled     Status = "cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrInvalidProgress   = errors.New("progress percentage must be between 0 and 100")
	ErrNotFound          = errors.New("import session not found")
	ErrConfigLocked      = errors.New("import configuration cannot change once dry run has started")
)

// transitions lists the forward moves allowed from each state. A stage may
// re-enter its own running state when its task is retried after a crash.
// failed and cancelled are reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusInitializing:  {StatusAnalyzingFile},
	StatusAnalyzingFile: {StatusAnalyzingFile, StatusMapped},
	StatusMapped:        {StatusMapped, StatusDryRun},
	StatusDryRun:        {StatusDryRun, StatusProcessing},
	StatusProcessing:    {StatusProcessing, StatusCompleted},
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether moving from s to to is allowed
func (s Status) CanTransition(to Status) bool {
	if s.IsTerminal() {
		return false
	}
	if to == StatusFailed || to == StatusCancelled {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when the move is not allowed
func (s Status) ValidateTransition(to Status) error {
	if !s.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return nil
}

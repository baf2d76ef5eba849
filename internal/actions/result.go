package actions

import (
	"context"
	"strings"
)

// Mutation sets (or, with a nil Value, removes) one context field
type Mutation struct {
	Field string
	Value any
}

// ActionResult is the outcome of one action: either Success or Failure
type ActionResult interface {
	isActionResult()
}

// Success carries an optional message, payload and field mutations
type Success struct {
	Message   string
	Payload   map[string]any
	Mutations []Mutation
}

// Failure carries the reason an action could not complete. Err, when set, is
// the underlying cause (e.g. a *catalog.ConstraintViolation).
type Failure struct {
	Message string
	Err     error
	Payload map[string]any
	// Errors lists field-level and middleware-added messages
	Errors []string
}

func (Success) isActionResult() {}
func (Failure) isActionResult() {}

// Error renders the failure with every accumulated message
func (f Failure) Error() string {
	parts := make([]string, 0, len(f.Errors)+1)
	if f.Message != "" {
		parts = append(parts, f.Message)
	}
	for _, e := range f.Errors {
		if e != f.Message {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "; ")
}

// FieldError is one failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Action is one step of the row pipeline. A failed required action aborts
// the row; a failed optional action is recorded as a warning.
type Action interface {
	Name() string
	Required() bool
	Execute(ctx context.Context, ac *ActionContext) ActionResult
}

func succeed(message string, mutations ...Mutation) Success {
	return Success{Message: message, Mutations: mutations}
}

func fail(message string, err error) Failure {
	return Failure{Message: message, Err: err}
}

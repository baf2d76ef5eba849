package actions

import (
	"context"
	"time"
)

// ExecuteFunc runs one action against a row
type ExecuteFunc func(ctx context.Context, a Action, ac *ActionContext) ActionResult

// Middleware wraps action execution with cross-cutting behavior
type Middleware func(next ExecuteFunc) ExecuteFunc

// StepResult records one executed action
type StepResult struct {
	Action   string        `json:"action"`
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RowResult is the outcome of running the pipeline over one row
type RowResult struct {
	Row          int          `json:"row"`
	Succeeded    bool         `json:"succeeded"`
	FailedAction string       `json:"failed_action,omitempty"`
	Failure      *Failure     `json:"-"`
	Errors       []string     `json:"errors,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	Steps        []StepResult `json:"steps"`
}

// Pipeline runs an ordered list of actions as a chain of responsibility.
// Each link executes its action and decides whether to hand the row to the next.
type Pipeline struct {
	actions    []Action
	middleware []Middleware
}

// NewPipeline creates a pipeline over actions in execution order
func NewPipeline(actions ...Action) *Pipeline {
	return &Pipeline{actions: actions}
}

// Use appends middleware; the first registered is the outermost
func (p *Pipeline) Use(mw ...Middleware) *Pipeline {
	p.middleware = append(p.middleware, mw...)
	return p
}

// Actions returns the action names in order
func (p *Pipeline) Actions() []string {
	names := make([]string, len(p.actions))
	for i, a := range p.actions {
		names[i] = a.Name()
	}
	return names
}

// Run executes the chain over ac. It stops at the first required failure.
func (p *Pipeline) Run(ctx context.Context, ac *ActionContext) *RowResult {
	result := &RowResult{Row: ac.RowNumber, Succeeded: true, Steps: make([]StepResult, 0, len(p.actions))}
	exec := p.executor()

	// build the chain back to front so every link holds its continuation
	next := func(context.Context) {}
	for i := len(p.actions) - 1; i >= 0; i-- {
		action, continuation := p.actions[i], next
		next = func(ctx context.Context) {
			if err := ctx.Err(); err != nil {
				result.abort(action.Name(), &Failure{Message: "row cancelled", Err: err})
				return
			}
			started := time.Now()
			res := exec(ctx, action, ac)
			step := StepResult{Action: action.Name(), Duration: time.Since(started)}

			switch r := res.(type) {
			case Success:
				step.Success = true
				step.Message = r.Message
				result.Steps = append(result.Steps, step)
				ac.Apply(r.Mutations)
				continuation(ctx)
			case Failure:
				step.Message = r.Error()
				result.Steps = append(result.Steps, step)
				if action.Required() {
					result.abort(action.Name(), &r)
					return
				}
				result.Warnings = append(result.Warnings, action.Name()+": "+r.Error())
				continuation(ctx)
			}
		}
	}
	next(ctx)

	result.Warnings = append(result.Warnings, ac.Warnings()...)
	return result
}

func (r *RowResult) abort(action string, f *Failure) {
	r.Succeeded = false
	r.FailedAction = action
	r.Failure = f
	if f.Message != "" {
		r.Errors = append(r.Errors, f.Message)
	}
	for _, e := range f.Errors {
		if e != f.Message {
			r.Errors = append(r.Errors, e)
		}
	}
}

func (p *Pipeline) executor() ExecuteFunc {
	exec := ExecuteFunc(func(ctx context.Context, a Action, ac *ActionContext) ActionResult {
		return a.Execute(ctx, ac)
	})
	for i := len(p.middleware) - 1; i >= 0; i-- {
		exec = p.middleware[i](exec)
	}
	return exec
}

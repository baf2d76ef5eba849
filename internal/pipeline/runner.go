// Package pipeline drives an import session through its four queued stages:
// Analyze, DryRun, Process and Finalize. Stages share nothing but the
// persisted session; each one is safe to retry.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/storage"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/workers"
)

// Stage names used in logs, metrics and session diagnostics
const (
	StageIntake   = "intake"
	StageAnalyze  = "analyze"
	StageDryRun   = "dry_run"
	StageProcess  = "process"
	StageFinalize = "finalize"
)

// ErrStructural marks failures no retry can fix: an unreadable file, a
// missing mapping. The session is failed and the pipeline stops.
var ErrStructural = errors.New("structural import failure")

// errStopped ends a stage early because the session left its running state
var errStopped = errors.New("session left running state")

// Options are the service-wide import limits
type Options struct {
	MaxFileSize              int64
	DefaultChunkSize         int
	MinChunkSize             int
	MaxChunkSize             int
	SampleRows               int
	FailedRowThreshold       float64
	LowCompletenessThreshold float64
}

// DefaultOptions returns the limits used when configuration omits them
func DefaultOptions() Options {
	return Options{
		MaxFileSize:              10 << 20,
		DefaultChunkSize:         100,
		MinChunkSize:             10,
		MaxChunkSize:             500,
		SampleRows:               10,
		FailedRowThreshold:       0.1,
		LowCompletenessThreshold: 0.8,
	}
}

// Runner executes the stages against a session repository, a catalog and
// the stored source files
type Runner struct {
	sessions session.Repository
	catalog  catalog.Catalog
	files    storage.Storage
	queue    taskqueue.Queue
	opts     Options
	logger   *zerolog.Logger
	tracer   trace.Tracer
}

func NewRunner(
	sessions session.Repository,
	cat catalog.Catalog,
	files storage.Storage,
	queue taskqueue.Queue,
	opts Options,
	logger *zerolog.Logger,
) *Runner {
	return &Runner{
		sessions: sessions,
		catalog:  cat,
		files:    files,
		queue:    queue,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer("github.com/kosarica/import-service/internal/pipeline"),
	}
}

// Options returns the limits the runner was built with
func (r *Runner) Options() Options {
	return r.opts
}

// Register installs a handler for every stage task type on w
func (r *Runner) Register(w *workers.Worker) {
	w.RegisterHandler(taskqueue.TaskTypeAnalyze, r.handler(StageAnalyze, r.Analyze))
	w.RegisterHandler(taskqueue.TaskTypeDryRun, r.handler(StageDryRun, r.DryRun))
	w.RegisterHandler(taskqueue.TaskTypeProcess, r.handler(StageProcess, r.Process))
	w.RegisterHandler(taskqueue.TaskTypeFinalize, r.handler(StageFinalize, r.Finalize))
}

// handler adapts a stage to a queued task. Infrastructure errors are
// returned for the queue to retry; on the last attempt the session is failed
// with the cause. Structural failures and refused transitions are not retried.
func (r *Runner) handler(stage string, run func(context.Context, string) error) workers.Handler {
	return func(ctx context.Context, task taskqueue.ClaimedTask) error {
		var payload taskqueue.StagePayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil || payload.SessionID == "" {
			return fmt.Errorf("%w: invalid %s payload", taskqueue.ErrNoRetry, stage)
		}

		logger := r.logger.With().
			Str("stage", stage).
			Str("session_id", payload.SessionID).
			Str("task_id", task.ID).
			Logger()

		err := run(ctx, payload.SessionID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrStructural):
			logger.Warn().Err(err).Msg("Stage failed on structural error")
			return nil
		case errors.Is(err, session.ErrInvalidTransition), errors.Is(err, session.ErrNotFound):
			logger.Warn().Err(err).Msg("Stage refused")
			return fmt.Errorf("%w: %w", taskqueue.ErrNoRetry, err)
		}

		if task.LastAttempt() {
			logger.Error().Err(err).Msg("Stage failed, retries exhausted")
			r.fail(context.WithoutCancel(ctx), payload.SessionID, stage, err)
		}
		return err
	}
}

// begin checks the session is in one of from and moves it to to. Re-entering
// the running state is how a retried stage resumes.
func (r *Runner) begin(ctx context.Context, id, stage string, from []session.Status, to session.Status, prepare func(*session.ImportSession)) (*session.ImportSession, error) {
	s, err := r.sessions.Update(ctx, id, func(s *session.ImportSession) error {
		if !slices.Contains(from, s.Status) {
			return fmt.Errorf("%w: %s cannot run on a session in %s", session.ErrInvalidTransition, stage, s.Status)
		}
		if err := s.TransitionTo(to); err != nil {
			return err
		}
		if err := s.MarkAsStarted(); err != nil {
			return err
		}
		if prepare != nil {
			prepare(s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", stage, err)
	}
	stageRuns.WithLabelValues(stage).Inc()
	return s, nil
}

// structural fails the session and returns an ErrStructural error
func (r *Runner) structural(ctx context.Context, id, stage string, cause error) error {
	r.fail(ctx, id, stage, cause)
	return fmt.Errorf("%w: %w", ErrStructural, cause)
}

// fail records cause and moves the session to failed when still possible
func (r *Runner) fail(ctx context.Context, id, stage string, cause error) {
	_, err := r.sessions.Update(ctx, id, func(s *session.ImportSession) error {
		s.Fail(stage, cause.Error())
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", id).Str("stage", stage).Msg("Failed to mark session failed")
		return
	}
	stageFailures.WithLabelValues(stage).Inc()
}

// enqueue schedules the next stage for a session
func (r *Runner) enqueue(ctx context.Context, taskType, id string) error {
	if _, err := r.queue.Enqueue(ctx, taskType, taskqueue.StagePayload{SessionID: id}); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", taskType, err)
	}
	return nil
}

func (r *Runner) startSpan(ctx context.Context, stage, id string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "pipeline."+stage, trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("pipeline.stage", stage),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
)

// ValidateMapping checks every target is a canonical field, no field is
// mapped twice and, when columns >= 0, every index is in range. A mapping
// must identify rows by product_name, product_sku or variant_sku.
func ValidateMapping(mapping map[int]string, columns int) error {
	if len(mapping) == 0 {
		return fmt.Errorf("%w: mapping is empty", ErrInvalidMapping)
	}
	seen := make(map[string]int, len(mapping))
	for col, field := range mapping {
		if col < 0 || (columns >= 0 && col >= columns) {
			return fmt.Errorf("%w: column %d out of range", ErrInvalidMapping, col)
		}
		if field == "" {
			continue
		}
		if !types.IsCanonicalField(field) {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidMapping, field)
		}
		if other, dup := seen[field]; dup {
			return fmt.Errorf("%w: %s mapped to columns %d and %d", ErrInvalidMapping, field, other, col)
		}
		seen[field] = col
	}
	for _, key := range []string{types.FieldProductName, types.FieldProductSKU, types.FieldVariantSKU} {
		if _, ok := seen[key]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: map product_name, product_sku or variant_sku", ErrInvalidMapping)
}

// ConfirmMapping stores the operator's mapping (and optionally a new
// configuration) and queues the DryRun when the session was waiting for it
func (r *Runner) ConfirmMapping(ctx context.Context, id string, mapping map[int]string, cfg *session.ImportConfig) (*session.ImportSession, error) {
	if cfg != nil {
		withDefaults := cfg.WithDefaults(r.opts.DefaultChunkSize)
		if err := withDefaults.Validate(r.opts.MinChunkSize, r.opts.MaxChunkSize); err != nil {
			return nil, err
		}
		cfg = &withDefaults
	}

	queueDryRun := false
	s, err := r.sessions.Update(ctx, id, func(s *session.ImportSession) error {
		if !s.AwaitingMapping() && s.Status != session.StatusMapped {
			return fmt.Errorf("%w: mapping can only change while awaiting it, session is %s", session.ErrInvalidTransition, s.Status)
		}
		columns := -1
		if s.FileAnalysis != nil {
			columns = len(s.FileAnalysis.Headers)
		}
		if err := ValidateMapping(mapping, columns); err != nil {
			return err
		}
		if err := s.SetMapping(mapping, cfg); err != nil {
			return err
		}
		if s.Status == session.StatusAnalyzingFile {
			queueDryRun = true
			return s.TransitionTo(session.StatusMapped)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if queueDryRun {
		if err := r.enqueue(ctx, taskqueue.TaskTypeDryRun, id); err != nil {
			return nil, err
		}
	}
	r.logger.Info().Str("session_id", id).Int("columns", len(mapping)).Msg("Column mapping confirmed")
	return s, nil
}

// Cancel moves a running session to cancelled. In-flight stages notice at
// their next checkpoint; queued ones are dropped.
func (r *Runner) Cancel(ctx context.Context, id string) (*session.ImportSession, error) {
	s, err := r.sessions.Update(ctx, id, func(s *session.ImportSession) error {
		if err := s.TransitionTo(session.StatusCancelled); err != nil {
			return err
		}
		s.AddWarning("", "import cancelled by user", nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if n, err := r.queue.CancelSessionTasks(ctx, id); err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to cancel queued stages")
	} else if n > 0 {
		r.logger.Debug().Str("session_id", id).Int("tasks", n).Msg("Cancelled queued stages")
	}
	r.logger.Info().Str("session_id", id).Msg("Import session cancelled")
	return s, nil
}

// Delete removes the session and releases its stored source file. A stage
// still running for it stops at its next session update.
func (r *Runner) Delete(ctx context.Context, id string) error {
	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.queue.CancelSessionTasks(ctx, id); err != nil {
		r.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to cancel queued stages")
	}
	if s.FilePath != "" {
		if err := r.files.Delete(ctx, s.FilePath); err != nil {
			return fmt.Errorf("failed to release source file: %w", err)
		}
	}
	if err := r.sessions.Delete(ctx, id); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	r.logger.Info().Str("session_id", id).Msg("Import session deleted")
	return nil
}

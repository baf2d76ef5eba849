package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kosarica/import-service/internal/session"
)

// Recommendation types
const (
	RecommendDataQuality  = "data_quality"
	RecommendCompleteness = "completeness"
	RecommendConflicts    = "conflicts"
	RecommendPerformance  = "performance"
)

// slowRowsPerSecond flags imports slower than this
const slowRowsPerSecond = 5.0

// Finalize builds the report of a completed session and releases its source
// file. Nothing here can fail the session: problems become warnings.
func (r *Runner) Finalize(ctx context.Context, id string) (err error) {
	ctx, span := r.startSpan(ctx, StageFinalize, id)
	defer func() { endSpan(span, err) }()
	defer observeStage(StageFinalize, time.Now())

	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != session.StatusCompleted {
		return fmt.Errorf("%w: finalize needs a completed session, got %s", session.ErrInvalidTransition, s.Status)
	}

	final := BuildFinalResult(s, r.opts)

	var warnings []string
	if s.FilePath != "" {
		if err := r.files.Delete(ctx, s.FilePath); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to release source file: %v", err))
		}
	}

	_, err = r.sessions.Update(ctx, id, func(s *session.ImportSession) error {
		s.FinalResult = final
		s.FinalResult.Report.WarningCount += len(warnings)
		for _, w := range warnings {
			s.AddWarning(StageFinalize, w, nil)
		}
		if len(warnings) == 0 {
			s.FilePath = ""
		}
		s.CurrentOperation = "report ready"
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save final report: %w", err)
	}

	r.logger.Info().
		Str("session_id", id).
		Float64("success_rate", final.Report.Summary.SuccessRate).
		Float64("rows_per_second", final.Performance.RowsPerSecond).
		Int("recommendations", len(final.Report.Recommendations)).
		Msg("Import finalized")
	return nil
}

// BuildFinalResult derives the statistics, performance metrics and report of
// a completed session
func BuildFinalResult(s *session.ImportSession, opts Options) *session.FinalResult {
	stats := session.ProcessStatistics{}
	if s.Statistics != nil {
		stats = *s.Statistics
	}

	perf := session.PerformanceMetrics{
		PeakMemoryMB: round2(float64(stats.PeakMemoryBytes) / (1 << 20)),
	}
	if stats.CompletedAt != nil && !stats.StartedAt.IsZero() {
		d := stats.CompletedAt.Sub(stats.StartedAt).Seconds()
		perf.DurationSeconds = round2(d)
		if d > 0 {
			perf.RowsPerSecond = round2(float64(s.ProcessedRows) / d)
		}
	}

	summary := session.ReportSummary{
		TotalRows:      s.TotalRows,
		ProcessedRows:  s.ProcessedRows,
		SuccessfulRows: s.SuccessfulRows,
		FailedRows:     s.FailedRows,
		SkippedRows:    s.SkippedRows,
	}
	if s.ProcessedRows > 0 {
		summary.SuccessRate = round2(float64(s.SuccessfulRows) / float64(s.ProcessedRows) * 100)
	}

	report := session.Report{
		SessionID:       s.ID,
		FileName:        s.FileName,
		Summary:         summary,
		DataCreated:     stats.Data,
		Conflicts:       stats.Conflicts,
		Performance:     perf,
		Recommendations: recommend(s, stats, perf, opts),
		ErrorCount:      len(s.Errors),
		WarningCount:    len(s.Warnings),
		GeneratedAt:     time.Now().UTC(),
	}

	return &session.FinalResult{
		Statistics:  stats,
		Performance: perf,
		Report:      report,
	}
}

func recommend(s *session.ImportSession, stats session.ProcessStatistics, perf session.PerformanceMetrics, opts Options) []session.Recommendation {
	recs := []session.Recommendation{}

	if s.ProcessedRows > 0 {
		ratio := float64(s.FailedRows) / float64(s.ProcessedRows)
		if ratio > opts.FailedRowThreshold {
			recs = append(recs, session.Recommendation{
				Type:     RecommendDataQuality,
				Severity: "high",
				Message: fmt.Sprintf("%.1f%% of rows failed; review the error report and fix the source data before re-importing",
					ratio*100),
			})
		}
	}

	if dr := s.DryRunResult; dr != nil && dr.QualityMetrics.RequiredFieldsTotal > 0 &&
		dr.QualityMetrics.Completeness < opts.LowCompletenessThreshold {
		recs = append(recs, session.Recommendation{
			Type:     RecommendCompleteness,
			Severity: "medium",
			Message: fmt.Sprintf("only %.0f%% of required fields were populated; check the column mapping",
				dr.QualityMetrics.Completeness*100),
		})
	}

	if stats.Conflicts.Detected > 0 {
		recs = append(recs, session.Recommendation{
			Type:     RecommendConflicts,
			Severity: "low",
			Message: fmt.Sprintf("%d conflict(s) were resolved automatically; review the conflict strategies if the outcome is unexpected",
				stats.Conflicts.Detected),
		})
	}

	if s.ProcessedRows >= 100 && perf.RowsPerSecond > 0 && perf.RowsPerSecond < slowRowsPerSecond {
		recs = append(recs, session.Recommendation{
			Type:     RecommendPerformance,
			Severity: "low",
			Message:  fmt.Sprintf("import ran at %.1f rows/s; a larger chunk size may help", perf.RowsPerSecond),
		})
	}
	return recs
}

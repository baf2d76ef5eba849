package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kosarica/import-service/internal/extract"
	"github.com/kosarica/import-service/internal/parsers"
	"github.com/kosarica/import-service/internal/parsers/csv"
	"github.com/kosarica/import-service/internal/parsers/xlsx"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
)

// maxAnalyzedSKUs bounds how many SKUs feed the pattern analysis
const maxAnalyzedSKUs = 1000

// Analyze inspects the source file: headers, sample rows, row count,
// encoding, worksheets and a suggested mapping. The session then waits for
// the operator's mapping, or moves straight to the DryRun when one was
// supplied at intake.
func (r *Runner) Analyze(ctx context.Context, id string) (err error) {
	ctx, span := r.startSpan(ctx, StageAnalyze, id)
	defer func() { endSpan(span, err) }()
	defer observeStage(StageAnalyze, time.Now())

	s, err := r.begin(ctx, id, StageAnalyze,
		[]session.Status{session.StatusInitializing, session.StatusAnalyzingFile},
		session.StatusAnalyzingFile,
		func(s *session.ImportSession) { _ = s.UpdateProgress(0, "analyzing file") },
	)
	if err != nil {
		return err
	}

	analysis, err := r.analyzeFile(ctx, s)
	if err != nil {
		if errors.Is(err, ErrStructural) {
			return r.structural(ctx, id, StageAnalyze, err)
		}
		return err
	}

	mapped := false
	s, err = r.update(ctx, id, session.StatusAnalyzingFile, func(s *session.ImportSession) error {
		s.FileAnalysis = analysis
		s.TotalRows = analysis.TotalRows
		if len(s.Mapping) == 0 {
			return s.UpdateProgress(100, "awaiting column mapping")
		}
		if err := ValidateMapping(s.Mapping, len(analysis.Headers)); err != nil {
			s.AddWarning(StageAnalyze, fmt.Sprintf("supplied mapping rejected: %v", err), nil)
			s.Mapping = nil
			return s.UpdateProgress(100, "awaiting column mapping")
		}
		mapped = true
		if err := s.UpdateProgress(100, "mapping supplied"); err != nil {
			return err
		}
		return s.TransitionTo(session.StatusMapped)
	})
	if errors.Is(err, errStopped) {
		r.logger.Info().Str("session_id", id).Err(err).Msg("Analyze stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save file analysis: %w", err)
	}

	r.logger.Info().
		Str("session_id", id).
		Int("rows", analysis.TotalRows).
		Int("columns", len(analysis.Headers)).
		Int("mapped", len(analysis.SuggestedMapping)).
		Bool("awaiting_mapping", !mapped).
		Msg("File analyzed")

	if mapped {
		return r.enqueue(ctx, taskqueue.TaskTypeDryRun, s.ID)
	}
	return nil
}

func (r *Runner) analyzeFile(ctx context.Context, s *session.ImportSession) (*session.FileAnalysis, error) {
	reader, err := r.openSource(ctx, s)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	headers := reader.Headers()
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: file has no header row", ErrStructural)
	}

	analysis := &session.FileAnalysis{
		Headers:    headers,
		SampleRows: [][]string{},
		AnalyzedAt: time.Now().UTC(),
	}
	if err := describeReader(reader, analysis, r.files.Path(s.FilePath)); err != nil {
		return nil, err
	}

	analysis.SuggestedMapping, analysis.Suggestions = SuggestMapping(headers)
	mapping := analysis.SuggestedMapping
	if len(s.Mapping) > 0 {
		mapping = s.Mapping
	}
	analysis.UnmappedColumns = UnmappedColumns(headers, mapping)

	skuCol := -1
	for col, field := range mapping {
		if field == types.FieldVariantSKU {
			skuCol = col
		}
	}

	var skus []string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, done, err := readChunk(reader, 500)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			analysis.TotalRows++
			if len(analysis.SampleRows) < r.opts.SampleRows {
				analysis.SampleRows = append(analysis.SampleRows, row.Values)
			}
			if skuCol >= 0 && skuCol < len(row.Values) && len(skus) < maxAnalyzedSKUs && row.Values[skuCol] != "" {
				skus = append(skus, row.Values[skuCol])
			}
		}
		if done {
			break
		}
	}

	if len(skus) > 0 {
		sku := extract.NewSkuPatternAnalyzer().Analyze(skus)
		analysis.SkuAnalysis = &sku
	}
	return analysis, nil
}

// describeReader records format details only some readers know about
func describeReader(reader parsers.RowReader, analysis *session.FileAnalysis, path string) error {
	switch rd := reader.(type) {
	case *csv.Reader:
		analysis.Encoding = string(rd.Encoding())
		analysis.Delimiter = string(rd.Delimiter())
	case *xlsx.Reader:
		sheets, err := xlsx.Worksheets(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStructural, err)
		}
		for _, ws := range sheets {
			analysis.Worksheets = append(analysis.Worksheets, session.WorksheetInfo{
				Name:        ws.Name,
				RowCount:    ws.RowCount,
				ColumnCount: ws.ColumnCount,
				Headers:     ws.Headers,
				Selected:    ws.Name == rd.Sheet(),
			})
		}
	}
	return nil
}

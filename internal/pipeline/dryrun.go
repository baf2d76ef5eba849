package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kosarica/import-service/internal/actions"
	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
)

// maxDryRunIssues caps the row issues kept in the dry-run result
const maxDryRunIssues = 500

// DryRun runs every row through the action pipeline without writing. The
// catalog is only read, to predict creates, updates and collisions. Row
// problems are reported, never fatal.
func (r *Runner) DryRun(ctx context.Context, id string) (err error) {
	ctx, span := r.startSpan(ctx, StageDryRun, id)
	defer func() { endSpan(span, err) }()
	defer observeStage(StageDryRun, time.Now())

	s, err := r.begin(ctx, id, StageDryRun,
		[]session.Status{session.StatusMapped, session.StatusDryRun},
		session.StatusDryRun,
		func(s *session.ImportSession) {
			s.ResetCounters()
			s.DryRunResult = nil
			s.CurrentOperation = "validating rows"
		},
	)
	if err != nil {
		return err
	}
	if len(s.Mapping) == 0 {
		return r.structural(ctx, id, StageDryRun, errors.New("no column mapping confirmed"))
	}

	reader, err := r.openSource(ctx, s)
	if err != nil {
		if errors.Is(err, ErrStructural) {
			return r.structural(ctx, id, StageDryRun, err)
		}
		return err
	}
	defer reader.Close()

	plan := actions.NewPlan()
	pipe := actions.NewRowPipeline(r.catalog, plan)
	acc := newDryRunAccumulator(s.Mapping)
	chunkSize := s.Config.ChunkSize

	for {
		rows, done, err := readChunk(reader, chunkSize)
		if err != nil {
			if errors.Is(err, ErrStructural) {
				return r.structural(ctx, id, StageDryRun, err)
			}
			return err
		}

		var succeeded, failed int
		for _, row := range rows {
			fields := actions.FieldsFromRow(row.Values, s.Mapping)
			ac := actions.NewActionContext(row.Number, fields, s.Config, true)
			required := actions.RequiredFields(ac)
			acc.observeFields(fields, required)

			res := pipe.Run(ctx, ac)
			if res.Failure != nil && infrastructure(ctx, res.Failure.Err) {
				return fmt.Errorf("dry run stopped at row %d: %w", row.Number, res.Failure.Err)
			}
			acc.add(ac, res)
			if res.Succeeded {
				succeeded++
			} else {
				failed++
			}
		}

		_, err = r.update(ctx, id, session.StatusDryRun, func(s *session.ImportSession) error {
			s.AddCounts(succeeded, failed, 0)
			return s.UpdateProgress(percent(s.ProcessedRows, s.TotalRows, done), "validating rows")
		})
		if errors.Is(err, errStopped) {
			r.logger.Info().Str("session_id", id).Err(err).Msg("Dry run stopped")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to save dry run progress: %w", err)
		}
		if done {
			break
		}
	}

	result := acc.result()
	_, err = r.update(ctx, id, session.StatusDryRun, func(s *session.ImportSession) error {
		s.DryRunResult = result
		if result.TotalRows != s.TotalRows {
			s.TotalRows = result.TotalRows
		}
		if result.ConflictAnalysis.PotentialConflicts > 0 {
			s.AddWarning(StageDryRun, fmt.Sprintf("%d potential conflict(s) found", result.ConflictAnalysis.PotentialConflicts), nil)
		}
		return s.UpdateProgress(100, "dry run complete")
	})
	if errors.Is(err, errStopped) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save dry run result: %w", err)
	}

	r.logger.Info().
		Str("session_id", id).
		Int("will_create", result.Predictions.WillCreate).
		Int("will_update", result.Predictions.WillUpdate).
		Int("will_skip", result.Predictions.WillSkip).
		Int("conflicts", result.ConflictAnalysis.PotentialConflicts).
		Float64("completeness", result.QualityMetrics.Completeness).
		Msg("Dry run complete")

	return r.enqueue(ctx, taskqueue.TaskTypeProcess, id)
}

// dryRunAccumulator folds row outcomes into a DryRunResult
type dryRunAccumulator struct {
	mapping     []string
	rows        int
	predictions session.Predictions

	existingSKUs     map[string]bool
	existingBarcodes map[string]bool
	variantConflicts map[string]bool
	skuRows          map[string]int
	barcodeRows      map[string]int

	requiredTotal     int
	requiredPopulated int
	populated         map[string]int
	rowsWithErrors    int
	extracted         int
	issues            []session.RowIssue
}

func newDryRunAccumulator(mapping map[int]string) *dryRunAccumulator {
	fields := make([]string, 0, len(mapping))
	for _, f := range mapping {
		if f != "" {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return &dryRunAccumulator{
		mapping:          fields,
		existingSKUs:     map[string]bool{},
		existingBarcodes: map[string]bool{},
		variantConflicts: map[string]bool{},
		skuRows:          map[string]int{},
		barcodeRows:      map[string]int{},
		populated:        map[string]int{},
	}
}

// observeFields counts populated fields before actions derive any
func (a *dryRunAccumulator) observeFields(fields map[string]any, required []string) {
	for _, f := range a.mapping {
		if v, ok := fields[f]; ok && !catalog.IsBlank(v) {
			a.populated[f]++
		}
	}
	for _, f := range required {
		a.requiredTotal++
		if v, ok := fields[f]; ok && !catalog.IsBlank(v) {
			a.requiredPopulated++
		}
	}
	if sku := catalog.StringField(fields, types.FieldVariantSKU); sku != nil {
		a.skuRows[*sku]++
	}
}

func (a *dryRunAccumulator) add(ac *actions.ActionContext, res *actions.RowResult) {
	a.rows++
	if code := ac.String(types.FieldBarcode); code != "" && res.Succeeded {
		a.barcodeRows[code]++
	}
	if sku := ac.MetaString(actions.MetaExistingSKU); sku != "" {
		a.existingSKUs[sku] = true
	}
	if code := ac.MetaString(actions.MetaBarcodeConflict); code != "" {
		a.existingBarcodes[code] = true
	}
	if sku := ac.MetaString(actions.MetaVariantConflict); sku != "" {
		a.variantConflicts[sku] = true
	}
	if n, ok := ac.Metadata[actions.MetaExtractedCount].(int); ok {
		a.extracted += n
	}

	switch actions.Predict(res, ac) {
	case actions.PredictCreate:
		a.predictions.WillCreate++
	case actions.PredictUpdate:
		a.predictions.WillUpdate++
	default:
		a.predictions.WillSkip++
	}

	if !res.Succeeded {
		a.predictions.InvalidRows++
		a.rowsWithErrors++
		a.issue(res.Row, strings.Join(res.Errors, "; "))
	}
	for _, w := range res.Warnings {
		a.issue(res.Row, w)
	}
}

func (a *dryRunAccumulator) issue(row int, msg string) {
	if len(a.issues) < maxDryRunIssues {
		a.issues = append(a.issues, session.RowIssue{Row: row, Message: msg})
	}
}

func (a *dryRunAccumulator) result() *session.DryRunResult {
	conflictsFound := session.ConflictAnalysis{
		ExistingSKUs:              sortedSet(a.existingSKUs),
		ExistingBarcodes:          sortedSet(a.existingBarcodes),
		DuplicateSKUsInFile:       repeated(a.skuRows),
		DuplicateBarcodesInFile:   repeated(a.barcodeRows),
		VariantAttributeConflicts: sortedSet(a.variantConflicts),
	}
	// in-file barcode and attribute repeats are already counted via the plan
	conflictsFound.PotentialConflicts = len(conflictsFound.ExistingSKUs) +
		len(conflictsFound.ExistingBarcodes) +
		len(conflictsFound.VariantAttributeConflicts)

	quality := session.QualityMetrics{
		Completeness:            1,
		RequiredFieldsPopulated: a.requiredPopulated,
		RequiredFieldsTotal:     a.requiredTotal,
		FieldCompleteness:       make(map[string]float64, len(a.mapping)),
		RowsWithErrors:          a.rowsWithErrors,
		ExtractedAttributes:     a.extracted,
	}
	if a.requiredTotal > 0 {
		quality.Completeness = round2(float64(a.requiredPopulated) / float64(a.requiredTotal))
	}
	for _, f := range a.mapping {
		if a.rows > 0 {
			quality.FieldCompleteness[f] = round2(float64(a.populated[f]) / float64(a.rows))
		}
	}

	issues := a.issues
	if issues == nil {
		issues = []session.RowIssue{}
	}
	return &session.DryRunResult{
		TotalRows:        a.rows,
		Predictions:      a.predictions,
		ConflictAnalysis: conflictsFound,
		QualityMetrics:   quality,
		Issues:           issues,
		CompletedAt:      time.Now().UTC(),
	}
}

// infrastructure reports whether a row failure means the stage must stop
func infrastructure(ctx context.Context, err error) bool {
	return errors.Is(err, catalog.ErrStore) || ctx.Err() != nil
}

func percent(done, total int, finished bool) float64 {
	if finished {
		return 100
	}
	if total <= 0 {
		return 0
	}
	p := round2(float64(done) / float64(total) * 100)
	return min(p, 99)
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func repeated(counts map[string]int) []string {
	out := []string{}
	for k, n := range counts {
		if n > 1 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kosarica/import-service/internal/actions"
	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/kosarica/import-service/internal/parsers"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
)

type rowOutcome int

const (
	rowSucceeded rowOutcome = iota
	rowFailed
	rowSkipped
)

func (o rowOutcome) String() string {
	switch o {
	case rowSucceeded:
		return "succeeded"
	case rowFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// rowReport is what one processed row contributes to the session
type rowReport struct {
	row      int
	outcome  rowOutcome
	errors   []string
	warnings []string
	data     session.DataCreated
}

// chunkReport accumulates the rows of one chunk before they are saved
type chunkReport struct {
	succeeded, failed, skipped int
	data                       session.DataCreated
	errors                     []rowMessage
	warnings                   []rowMessage
}

type rowMessage struct {
	row int
	msg string
}

func (c *chunkReport) add(rep rowReport) {
	switch rep.outcome {
	case rowSucceeded:
		c.succeeded++
	case rowFailed:
		c.failed++
	case rowSkipped:
		c.skipped++
	}
	addData(&c.data, rep.data)
	for _, e := range rep.errors {
		c.errors = append(c.errors, rowMessage{rep.row, e})
	}
	for _, w := range rep.warnings {
		c.warnings = append(c.warnings, rowMessage{rep.row, w})
	}
	rowsProcessed.WithLabelValues(rep.outcome.String()).Inc()
}

// processor runs rows with persistence and routes uniqueness violations
// through the conflict resolver
type processor struct {
	runner   *Runner
	pipe     *actions.Pipeline
	resolver *conflicts.ConflictResolver
	config   session.ImportConfig
	mapping  map[int]string
	heap     heapPeak
}

// Process writes every row to the catalog chunk by chunk, saving counters
// and statistics after each chunk. Row failures and conflicts are counted;
// only infrastructure failures stop the stage. A retried Process restarts
// from the first row; catalog writes are idempotent per row.
func (r *Runner) Process(ctx context.Context, id string) (err error) {
	ctx, span := r.startSpan(ctx, StageProcess, id)
	defer func() { endSpan(span, err) }()
	defer observeStage(StageProcess, time.Now())

	started := time.Now().UTC()
	s, err := r.begin(ctx, id, StageProcess,
		[]session.Status{session.StatusDryRun, session.StatusProcessing},
		session.StatusProcessing,
		func(s *session.ImportSession) {
			s.ResetCounters()
			s.CurrentOperation = "importing rows"
			s.Statistics = &session.ProcessStatistics{Conflicts: conflicts.Stats{}, StartedAt: started}
		},
	)
	if err != nil {
		return err
	}
	if len(s.Mapping) == 0 {
		return r.structural(ctx, id, StageProcess, errors.New("no column mapping confirmed"))
	}

	reader, err := r.openSource(ctx, s)
	if err != nil {
		if errors.Is(err, ErrStructural) {
			return r.structural(ctx, id, StageProcess, err)
		}
		return err
	}
	defer reader.Close()

	p := &processor{
		runner:   r,
		pipe:     actions.NewRowPipeline(r.catalog, nil),
		resolver: conflicts.NewConflictResolver(r.catalog, s.Config.Conflicts),
		config:   s.Config,
		mapping:  s.Mapping,
	}

	stopped, err := p.run(ctx, id, reader)
	if err != nil {
		if errors.Is(err, ErrStructural) {
			return r.structural(ctx, id, StageProcess, err)
		}
		return err
	}
	if stopped {
		return nil
	}

	s, err = r.update(ctx, id, session.StatusProcessing, func(s *session.ImportSession) error {
		if err := s.CheckCounts(); err != nil {
			return err
		}
		now := time.Now().UTC()
		s.Statistics.CompletedAt = &now
		s.Statistics.Conflicts = p.resolver.Stats()
		s.TotalRows = s.ProcessedRows
		if err := s.UpdateProgress(100, "import complete"); err != nil {
			return err
		}
		return s.TransitionTo(session.StatusCompleted)
	})
	if errors.Is(err, errStopped) {
		r.logger.Info().Str("session_id", id).Err(err).Msg("Process stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	r.logger.Info().
		Str("session_id", id).
		Int("processed", s.ProcessedRows).
		Int("successful", s.SuccessfulRows).
		Int("failed", s.FailedRows).
		Int("skipped", s.SkippedRows).
		Int("conflicts", s.Statistics.Conflicts.Detected).
		Dur("duration", time.Since(started)).
		Msg("Import processed")

	return r.enqueue(ctx, taskqueue.TaskTypeFinalize, id)
}

// run processes the reader chunk by chunk. stopped is true when the session
// left the processing state between chunks.
func (p *processor) run(ctx context.Context, id string, reader parsers.RowReader) (stopped bool, err error) {
	r := p.runner
	for chunk := 1; ; chunk++ {
		rows, done, err := readChunk(reader, p.config.ChunkSize)
		if err != nil {
			return false, err
		}

		report, err := p.processChunk(ctx, id, chunk, rows)
		if err != nil {
			return false, err
		}

		peak := p.heap.sample()
		_, err = r.update(ctx, id, session.StatusProcessing, func(s *session.ImportSession) error {
			s.AddCounts(report.succeeded, report.failed, report.skipped)
			for _, e := range report.errors {
				s.AddError(StageProcess, e.msg, types.IntPtr(e.row))
			}
			for _, w := range report.warnings {
				s.AddWarning(StageProcess, w.msg, types.IntPtr(w.row))
			}
			addData(&s.Statistics.Data, report.data)
			s.Statistics.Conflicts = p.resolver.Stats()
			s.Statistics.ChunksProcessed++
			s.Statistics.PeakMemoryBytes = max(s.Statistics.PeakMemoryBytes, peak)
			return s.UpdateProgress(percent(s.ProcessedRows, s.TotalRows, done),
				fmt.Sprintf("imported %d rows", s.ProcessedRows))
		})
		if errors.Is(err, errStopped) {
			r.logger.Info().Str("session_id", id).Int("chunk", chunk).Err(err).Msg("Process stopped between chunks")
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to save chunk %d: %w", chunk, err)
		}
		if done {
			return false, nil
		}
	}
}

func (p *processor) processChunk(ctx context.Context, id string, chunk int, rows []types.Row) (report chunkReport, err error) {
	ctx, span := p.runner.tracer.Start(ctx, "pipeline.process.chunk")
	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.Int("chunk.number", chunk),
		attribute.Int("chunk.rows", len(rows)),
	)
	defer func() { endSpan(span, err) }()

	for i, row := range rows {
		if i%memorySampleRows == 0 {
			p.heap.sample()
		}
		rep, err := p.processRow(ctx, row)
		if err != nil {
			return report, fmt.Errorf("row %d: %w", row.Number, err)
		}
		report.add(rep)
	}
	return report, nil
}

// processRow runs one row. The returned error is an infrastructure failure;
// everything else is reported in the rowReport.
func (p *processor) processRow(ctx context.Context, row types.Row) (rowReport, error) {
	rep := rowReport{row: row.Number}

	ac := actions.NewActionContext(row.Number, actions.FieldsFromRow(row.Values, p.mapping), p.config, false)
	original := ac.Clone()

	res := p.pipe.Run(ctx, ac)
	rep.warnings = res.Warnings
	if res.Succeeded {
		rep.outcome = rowSucceeded
		rep.data = dataFrom(ac)
		return rep, nil
	}
	if infrastructure(ctx, res.Failure.Err) {
		return rep, res.Failure.Err
	}

	c, ok := actions.ConflictFrom(res, ac)
	if !ok {
		rep.outcome = rowFailed
		rep.errors = []string{strings.Join(res.Errors, "; ")}
		rep.data = dataFrom(ac)
		return rep, nil
	}

	resolution, err := p.resolver.Resolve(ctx, c)
	if err != nil {
		return rep, err
	}
	// writes made before the collision stand whatever the resolution
	rep.data = dataFrom(ac)

	switch v := resolution.(type) {
	case conflicts.Skip:
		rep.outcome = rowSkipped
		rep.warnings = append(rep.warnings, fmt.Sprintf("skipped: %s", v.Why))

	case conflicts.UpdateExisting:
		if err := conflicts.Apply(ctx, p.runner.catalog, v); err != nil {
			if infrastructure(ctx, err) {
				return rep, err
			}
			rep.outcome = rowFailed
			rep.errors = []string{fmt.Sprintf("conflict update failed: %v", err)}
			return rep, nil
		}
		rep.outcome = rowSucceeded
		rep.warnings = append(rep.warnings, v.Why)
		switch v.Entity {
		case conflicts.EntityProduct:
			rep.data.ProductsUpdated++
		case conflicts.EntityVariant:
			rep.data.VariantsUpdated++
		case conflicts.EntityBarcode:
			rep.data.BarcodesAssigned++
		}

	case conflicts.Retry:
		retry := original.Clone()
		retry.Merge(v.Modified)
		again := p.pipe.Run(ctx, retry)
		addData(&rep.data, dataFrom(retry))
		rep.warnings = append(rep.warnings, again.Warnings...)
		if again.Succeeded {
			rep.outcome = rowSucceeded
			rep.warnings = append(rep.warnings, fmt.Sprintf("retried: %s", v.Why))
			return rep, nil
		}
		if infrastructure(ctx, again.Failure.Err) {
			return rep, again.Failure.Err
		}
		rep.outcome = rowFailed
		rep.errors = []string{fmt.Sprintf("retry after conflict failed: %s", strings.Join(again.Errors, "; "))}

	case conflicts.Fail:
		rep.outcome = rowFailed
		rep.errors = []string{fmt.Sprintf("conflict on %s: %s", c.Kind, v.Why)}
	}
	return rep, nil
}

// dataFrom reads the writes a row made from its action metadata
func dataFrom(ac *actions.ActionContext) session.DataCreated {
	var d session.DataCreated
	switch ac.MetaString(actions.MetaProductOutcome) {
	case actions.OutcomeCreated:
		d.ProductsCreated++
	case actions.OutcomeUpdated:
		d.ProductsUpdated++
	}
	switch ac.MetaString(actions.MetaVariantOutcome) {
	case actions.OutcomeCreated:
		d.VariantsCreated++
	case actions.OutcomeUpdated:
		d.VariantsUpdated++
	}
	if ac.MetaString(actions.MetaBarcodeOutcome) == actions.OutcomeAssigned {
		d.BarcodesAssigned++
	}
	if n, ok := ac.Metadata[actions.MetaPricesSet].(int); ok {
		d.PricesSet += n
	}
	return d
}

func addData(dst *session.DataCreated, src session.DataCreated) {
	dst.ProductsCreated += src.ProductsCreated
	dst.ProductsUpdated += src.ProductsUpdated
	dst.VariantsCreated += src.VariantsCreated
	dst.VariantsUpdated += src.VariantsUpdated
	dst.BarcodesAssigned += src.BarcodesAssigned
	dst.PricesSet += src.PricesSet
}

// memorySampleRows is the number of rows processed between heap samples
const memorySampleRows = 25

// heapPeak is the largest heap allocation sampled during one Process run
type heapPeak struct {
	max uint64
}

func (h *heapPeak) sample() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	h.max = max(h.max, m.HeapAlloc)
	return h.max
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/storage"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
	"github.com/kosarica/import-service/internal/workers"
)

const blindsCSV = `Product Name,SKU,Colour,Retail Price
Roller Blind,RB-001,White,19.99
Roller Blind,RB-002,Black,21.50
,RB-003,Red,10
`

var blindsMapping = map[int]string{
	0: types.FieldProductName,
	1: types.FieldVariantSKU,
	2: types.FieldVariantColor,
	3: types.FieldRetailPrice,
}

type harness struct {
	runner   *Runner
	sessions *session.MemoryRepository
	catalog  catalog.Catalog
	memory   *catalog.MemoryCatalog
	files    *storage.LocalStorage
	queue    *taskqueue.MemoryQueue
	worker   *workers.Worker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test wrap the memory catalog
func newHarnessWith(t *testing.T, wrap func(*catalog.MemoryCatalog) catalog.Catalog) *harness {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	mem := catalog.NewMemoryCatalog()
	var cat catalog.Catalog = mem
	if wrap != nil {
		cat = wrap(mem)
	}

	logger := zerolog.Nop()
	h := &harness{
		sessions: session.NewMemoryRepository(),
		catalog:  cat,
		memory:   mem,
		files:    files,
		queue:    taskqueue.NewMemoryQueue(),
	}
	h.runner = NewRunner(h.sessions, cat, files, h.queue, DefaultOptions(), &logger)
	h.worker = workers.New(h.queue, workers.WorkerConfig{WorkerID: "test", TaskTypes: taskqueue.StageTaskTypes}, &logger)
	h.runner.Register(h.worker)
	return h
}

func (h *harness) intake(t *testing.T, name, content string, cfg *session.ImportConfig, mapping map[int]string) *session.ImportSession {
	t.Helper()
	s, err := h.runner.Intake(context.Background(), IntakeRequest{
		UserID:   "user-1",
		FileName: name,
		Size:     int64(len(content)),
		Body:     strings.NewReader(content),
		Config:   cfg,
		Mapping:  mapping,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, h.worker.Drain(context.Background()))
}

func (h *harness) get(t *testing.T, id string) *session.ImportSession {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Product Name", "product name"},
		{"  Retail-Price (€) ", "retail price"},
		{"Šifra artikla", "sifra artikla"},
		{"Proizvođač", "proizvodac"},
		{"EAN_13", "ean 13"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.in))
		})
	}
}

func TestSuggestMapping(t *testing.T) {
	headers := []string{"Product Name", "SKU", "Colour", "Retail Price", "EAN", "Price Amazon", "Notes", "Veličina"}
	mapping, suggestions := SuggestMapping(headers)

	assert.Equal(t, map[int]string{
		0: types.FieldProductName,
		1: types.FieldVariantSKU,
		2: types.FieldVariantColor,
		3: types.FieldRetailPrice,
		4: types.FieldBarcode,
		5: "price_amazon",
		7: types.FieldVariantSize,
	}, mapping)

	require.Len(t, suggestions, len(headers))
	assert.Equal(t, 1.0, suggestions[0].Confidence)
	assert.Empty(t, suggestions[6].Field)
	assert.Zero(t, suggestions[6].Confidence)
	assert.Equal(t, []int{6}, UnmappedColumns(headers, mapping))
}

func TestSuggestMapping_FieldUsedOnce(t *testing.T) {
	mapping, suggestions := SuggestMapping([]string{"Colour", "Color"})
	assert.Equal(t, map[int]string{0: types.FieldVariantColor}, mapping)
	assert.Empty(t, suggestions[1].Field)
}

func TestValidateMapping(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[int]string
		columns int
		wantErr bool
	}{
		{"valid", map[int]string{0: types.FieldProductName, 1: types.FieldRetailPrice}, 2, false},
		{"channel price", map[int]string{0: types.FieldVariantSKU, 1: "price_ebay"}, 2, false},
		{"unknown columns allowed", map[int]string{7: types.FieldProductSKU}, -1, false},
		{"empty", map[int]string{}, 2, true},
		{"unknown field", map[int]string{0: types.FieldProductName, 1: "colour"}, 2, true},
		{"duplicate field", map[int]string{0: types.FieldProductName, 1: types.FieldProductName}, 2, true},
		{"out of range", map[int]string{3: types.FieldProductName}, 2, true},
		{"no identity column", map[int]string{0: types.FieldRetailPrice}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMapping(tt.mapping, tt.columns)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMapping)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestIntake_RejectsInvalidConfigBeforeStoringFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.runner.Intake(context.Background(), IntakeRequest{
		UserID:   "user-1",
		FileName: "products.csv",
		Body:     strings.NewReader(blindsCSV),
		Config:   &session.ImportConfig{Mode: session.ModeCreateOnly, ChunkSize: 5},
	})
	require.ErrorIs(t, err, session.ErrInvalidConfig)

	entries, err := os.ReadDir(h.files.GetBasePath())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, h.queue.Tasks())
}

func TestIntake_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     IntakeRequest
		wantErr error
	}{
		{
			name:    "unsupported extension",
			req:     IntakeRequest{UserID: "u", FileName: "catalog.pdf", Body: strings.NewReader("x")},
			wantErr: ErrUnsupportedFile,
		},
		{
			name:    "declared size too large",
			req:     IntakeRequest{UserID: "u", FileName: "big.csv", Size: 11 << 20, Body: strings.NewReader("x")},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "body larger than declared",
			req:     IntakeRequest{UserID: "u", FileName: "big.csv", Body: bytes.NewReader(make([]byte, 10<<20+1))},
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "unknown mode",
			req:     IntakeRequest{UserID: "u", FileName: "a.csv", Body: strings.NewReader("x"), Config: &session.ImportConfig{Mode: "upsert"}},
			wantErr: session.ErrInvalidConfig,
		},
		{
			name:    "bad mapping",
			req:     IntakeRequest{UserID: "u", FileName: "a.csv", Body: strings.NewReader("x"), Mapping: map[int]string{0: "nope"}},
			wantErr: ErrInvalidMapping,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.runner.Intake(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, h.queue.Tasks())
		})
	}
}

func TestAnalyze_AwaitsMapping(t *testing.T) {
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, nil)
	assert.Equal(t, session.StatusInitializing, s.Status)
	assert.NotEmpty(t, s.FileHash)
	assert.Equal(t, int64(len(blindsCSV)), s.FileSize)

	h.drain(t)

	got := h.get(t, s.ID)
	assert.Equal(t, session.StatusAnalyzingFile, got.Status)
	assert.True(t, got.AwaitingMapping())
	require.NotNil(t, got.FileAnalysis)
	assert.Equal(t, 3, got.FileAnalysis.TotalRows)
	assert.Equal(t, 3, got.TotalRows)
	assert.Equal(t, "utf-8", got.FileAnalysis.Encoding)
	assert.Equal(t, ",", got.FileAnalysis.Delimiter)
	assert.Len(t, got.FileAnalysis.SampleRows, 3)
	assert.Equal(t, blindsMapping, got.FileAnalysis.SuggestedMapping)
	assert.Empty(t, got.FileAnalysis.UnmappedColumns)
	require.NotNil(t, got.FileAnalysis.SkuAnalysis)
	assert.Equal(t, 100.0, got.ProgressPercentage)

	// nothing runs until the mapping is confirmed
	assert.Zero(t, h.queue.Pending())
}

func TestAnalyze_CorruptFileFailsSession(t *testing.T) {
	h := newHarness(t)
	s := h.intake(t, "broken.xlsx", "this is not a workbook", nil, nil)

	h.drain(t)

	got := h.get(t, s.ID)
	assert.Equal(t, session.StatusFailed, got.Status)
	require.NotEmpty(t, got.Errors)
	assert.Equal(t, StageAnalyze, got.Errors[0].Stage)
	for _, task := range h.queue.Tasks() {
		assert.Equal(t, taskqueue.TaskTypeAnalyze, task.TaskType)
	}
}

func TestAnalyze_HeaderOnlyFileHasNoRows(t *testing.T) {
	h := newHarness(t)
	s := h.intake(t, "empty.csv", "Product Name,SKU\n", nil, nil)
	h.drain(t)

	got := h.get(t, s.ID)
	assert.True(t, got.AwaitingMapping())
	assert.Zero(t, got.FileAnalysis.TotalRows)
}

func TestFullImport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, nil)
	h.drain(t)

	_, err := h.runner.ConfirmMapping(ctx, s.ID, blindsMapping, nil)
	require.NoError(t, err)
	h.drain(t)

	got := h.get(t, s.ID)
	require.Equal(t, session.StatusCompleted, got.Status, "errors: %v", got.Errors)
	assert.Equal(t, 3, got.ProcessedRows)
	assert.Equal(t, 2, got.SuccessfulRows)
	assert.Equal(t, 1, got.FailedRows)
	assert.Zero(t, got.SkippedRows)
	assert.NoError(t, got.CheckCounts())
	assert.Equal(t, 100.0, got.ProgressPercentage)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	require.NotNil(t, got.DryRunResult)
	assert.Equal(t, session.Predictions{WillCreate: 2, WillSkip: 1, InvalidRows: 1}, got.DryRunResult.Predictions)
	assert.InDelta(t, 0.67, got.DryRunResult.QualityMetrics.Completeness, 0.001)

	require.NotNil(t, got.Statistics)
	assert.Equal(t, session.DataCreated{ProductsCreated: 1, VariantsCreated: 2, PricesSet: 2}, got.Statistics.Data)
	assert.Equal(t, 1, got.Statistics.ChunksProcessed)

	require.Len(t, got.Errors, 1)
	require.NotNil(t, got.Errors[0].Row)
	assert.Equal(t, 4, *got.Errors[0].Row)
	assert.Contains(t, got.Errors[0].Message, "product_name: is required")

	require.NotNil(t, got.FinalResult)
	report := got.FinalResult.Report
	assert.Equal(t, 66.67, report.Summary.SuccessRate)
	var kinds []string
	for _, rec := range report.Recommendations {
		kinds = append(kinds, rec.Type)
	}
	assert.Contains(t, kinds, RecommendDataQuality)
	assert.Contains(t, kinds, RecommendCompleteness)

	// Finalize released the source file
	assert.Empty(t, got.FilePath)
	assert.Len(t, h.memory.Products(), 1)
	assert.Len(t, h.memory.Variants(), 2)
	for _, task := range h.queue.Tasks() {
		assert.Equal(t, taskqueue.StatusCompleted, task.Status, task.TaskType)
	}
}

func TestDryRun_PredictsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	content := "Product Name,Retail Price\nBrand New Product,10\n,12\n"
	s := h.intake(t, "two.csv", content, nil, map[int]string{0: types.FieldProductName, 1: types.FieldRetailPrice})

	require.NoError(t, h.runner.Analyze(ctx, s.ID))
	assert.Equal(t, session.StatusMapped, h.get(t, s.ID).Status)
	require.NoError(t, h.runner.DryRun(ctx, s.ID))

	got := h.get(t, s.ID)
	assert.Equal(t, session.StatusDryRun, got.Status)
	require.NotNil(t, got.DryRunResult)
	assert.Equal(t, 1, got.DryRunResult.Predictions.WillCreate)
	assert.Equal(t, 1, got.DryRunResult.Predictions.WillSkip)
	assert.Equal(t, 2, got.DryRunResult.TotalRows)
	var invalid []session.RowIssue
	for _, issue := range got.DryRunResult.Issues {
		if issue.Row == 3 {
			invalid = append(invalid, issue)
		}
	}
	require.Len(t, invalid, 1)
	assert.Contains(t, invalid[0].Message, "product_name: is required")
	assert.Empty(t, h.memory.Products())
	assert.NoError(t, got.CheckCounts())
}

func TestDryRun_ReportsConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	other, err := h.memory.CreateProduct(ctx, catalog.ProductInput{Name: "Other"})
	require.NoError(t, err)
	_, err = h.memory.CreateVariant(ctx, catalog.VariantInput{ProductID: other.ID, SKU: "DUP-1"})
	require.NoError(t, err)

	content := "Product Name,SKU,EAN\nNew,DUP-1,4006381333931\nNew,NEW-2,4006381333931\nNew,NEW-2,\n"
	s := h.intake(t, "c.csv", content, nil, map[int]string{
		0: types.FieldProductName, 1: types.FieldVariantSKU, 2: types.FieldBarcode,
	})
	require.NoError(t, h.runner.Analyze(ctx, s.ID))
	require.NoError(t, h.runner.DryRun(ctx, s.ID))

	ca := h.get(t, s.ID).DryRunResult.ConflictAnalysis
	assert.Equal(t, []string{"DUP-1"}, ca.ExistingSKUs)
	assert.Equal(t, []string{"4006381333931"}, ca.ExistingBarcodes)
	assert.Equal(t, []string{"NEW-2"}, ca.DuplicateSKUsInFile)
	assert.Equal(t, 2, ca.PotentialConflicts)
}

func TestDryRun_ReportsVariantAttributeConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	shelf, err := h.memory.CreateProduct(ctx, catalog.ProductInput{Name: "Shelf"})
	require.NoError(t, err)
	white, large := "White", "L"
	_, err = h.memory.CreateVariant(ctx, catalog.VariantInput{ProductID: shelf.ID, SKU: "SH-1", Color: &white, Size: &large})
	require.NoError(t, err)

	content := "Product Name,SKU,Colour,Size\nShelf,SH-2,White,L\nBench,BE-1,Oak,\nBench,BE-2,Oak,\nBench,BE-3,Oak,M\n"
	s := h.intake(t, "attrs.csv", content, nil, map[int]string{
		0: types.FieldProductName, 1: types.FieldVariantSKU, 2: types.FieldVariantColor, 3: types.FieldVariantSize,
	})
	require.NoError(t, h.runner.Analyze(ctx, s.ID))
	require.NoError(t, h.runner.DryRun(ctx, s.ID))

	got := h.get(t, s.ID)
	ca := got.DryRunResult.ConflictAnalysis
	assert.Equal(t, []string{"BE-2", "SH-2"}, ca.VariantAttributeConflicts)
	assert.Empty(t, ca.ExistingSKUs)
	assert.Equal(t, 2, ca.PotentialConflicts)
	assert.Equal(t, 4, got.DryRunResult.Predictions.WillCreate)
	assert.Len(t, h.memory.Variants(), 1)
}

func TestProcess_RejectsCompletedSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, blindsMapping)
	h.drain(t)
	before := h.get(t, s.ID)
	require.Equal(t, session.StatusCompleted, before.Status)

	err := h.runner.Process(ctx, s.ID)
	require.ErrorIs(t, err, session.ErrInvalidTransition)

	after := h.get(t, s.ID)
	assert.Equal(t, before.ProcessedRows, after.ProcessedRows)
	assert.Equal(t, before.SuccessfulRows, after.SuccessfulRows)
	assert.Len(t, h.memory.Variants(), 2)
}

func TestProcess_ResumesFromRunningState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, blindsMapping)
	require.NoError(t, h.runner.Analyze(ctx, s.ID))
	require.NoError(t, h.runner.DryRun(ctx, s.ID))

	// a worker crashed mid-stage, leaving the session processing with stale counts
	_, err := h.sessions.Update(ctx, s.ID, func(s *session.ImportSession) error {
		if err := s.TransitionTo(session.StatusProcessing); err != nil {
			return err
		}
		s.AddCounts(1, 0, 0)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.runner.Process(ctx, s.ID))
	got := h.get(t, s.ID)
	assert.Equal(t, session.StatusCompleted, got.Status)
	assert.Equal(t, 3, got.ProcessedRows)
	assert.NoError(t, got.CheckCounts())
}

func TestProcess_ConflictStrategies(t *testing.T) {
	tests := []struct {
		name         string
		strategy     conflicts.SKUStrategy
		wantSkipped  int
		wantSuccess  int
		wantVariants int
	}{
		{"skip", conflicts.SKUSkip, 1, 0, 1},
		{"generate unique", conflicts.SKUGenerateUnique, 0, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			other, err := h.memory.CreateProduct(ctx, catalog.ProductInput{Name: "Other"})
			require.NoError(t, err)
			_, err = h.memory.CreateVariant(ctx, catalog.VariantInput{ProductID: other.ID, SKU: "DUP-1"})
			require.NoError(t, err)

			cfg := session.DefaultImportConfig(100)
			cfg.Conflicts.SKUStrategy = tt.strategy
			s := h.intake(t, "dup.csv", "Product Name,SKU\nNew Product,DUP-1\n", &cfg,
				map[int]string{0: types.FieldProductName, 1: types.FieldVariantSKU})
			h.drain(t)

			got := h.get(t, s.ID)
			require.Equal(t, session.StatusCompleted, got.Status, "errors: %v", got.Errors)
			assert.Equal(t, tt.wantSkipped, got.SkippedRows)
			assert.Equal(t, tt.wantSuccess, got.SuccessfulRows)
			assert.Equal(t, 1, got.Statistics.Conflicts.Detected)
			assert.Equal(t, 1, got.Statistics.Conflicts.ByStrategy[string(tt.strategy)])

			variants := h.memory.Variants()
			assert.Len(t, variants, tt.wantVariants)
			if tt.strategy == conflicts.SKUGenerateUnique {
				var skus []string
				for _, v := range variants {
					skus = append(skus, v.SKU)
				}
				var generated string
				for _, sku := range skus {
					if sku != "DUP-1" {
						generated = sku
					}
				}
				assert.True(t, strings.HasPrefix(generated, "DUP-1"), skus)
			}
		})
	}
}

const conflictHeader = "Product Name,SKU,EAN,Colour,Size,Weight\n"

var conflictMapping = map[int]string{
	0: types.FieldProductName,
	1: types.FieldVariantSKU,
	2: types.FieldBarcode,
	3: types.FieldVariantColor,
	4: types.FieldVariantSize,
	5: types.FieldWeight,
}

// seedCatalog stores product Other with variant OLD-1 holding a barcode and
// product Shelf with a White/L variant SH-1
func seedCatalog(t *testing.T, mem *catalog.MemoryCatalog) (oldID, shelfVariantID string) {
	t.Helper()
	ctx := context.Background()
	other, err := mem.CreateProduct(ctx, catalog.ProductInput{Name: "Other"})
	require.NoError(t, err)
	old, err := mem.CreateVariant(ctx, catalog.VariantInput{ProductID: other.ID, SKU: "OLD-1"})
	require.NoError(t, err)
	_, err = mem.AssignBarcode(ctx, old.ID, "4006381333931", catalog.BarcodeTypeEAN13)
	require.NoError(t, err)

	shelf, err := mem.CreateProduct(ctx, catalog.ProductInput{Name: "Shelf"})
	require.NoError(t, err)
	white, large := "White", "L"
	sv, err := mem.CreateVariant(ctx, catalog.VariantInput{ProductID: shelf.ID, SKU: "SH-1", Color: &white, Size: &large})
	require.NoError(t, err)
	return old.ID, sv.ID
}

func variantBySKU(t *testing.T, mem *catalog.MemoryCatalog, sku string) catalog.Variant {
	t.Helper()
	for _, v := range mem.Variants() {
		if v.SKU == sku {
			return v
		}
	}
	require.Failf(t, "variant not found", "sku %s", sku)
	return catalog.Variant{}
}

func TestProcess_ResolvesConflictsByStrategy(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		conflict func(*conflicts.Config)
		kind     string
		strategy string
		outcome  string
		data     session.DataCreated
		variants int
		check    func(t *testing.T, mem *catalog.MemoryCatalog, oldID, shelfVariantID string)
	}{
		{
			name: "barcode removed on retry",
			row:  "New Product,NEW-1,4006381333931,,,",
			conflict: func(c *conflicts.Config) {
				c.BarcodeStrategy = conflicts.BarcodeRemove
			},
			kind: "duplicate_barcode", strategy: "remove_barcode", outcome: "retry",
			data:     session.DataCreated{ProductsCreated: 1, VariantsCreated: 1},
			variants: 3,
			check: func(t *testing.T, mem *catalog.MemoryCatalog, oldID, _ string) {
				held, err := mem.FindBarcode(context.Background(), "4006381333931")
				require.NoError(t, err)
				assert.Equal(t, oldID, *held.VariantID)
				_, err = mem.FindBarcodeByVariant(context.Background(), variantBySKU(t, mem, "NEW-1").ID)
				assert.ErrorIs(t, err, catalog.ErrNotFound)
			},
		},
		{
			name: "barcode reassigned",
			row:  "New Product,NEW-1,4006381333931,,,",
			conflict: func(c *conflicts.Config) {
				c.BarcodeStrategy = conflicts.BarcodeReassign
				c.AllowReassignment = true
			},
			kind: "duplicate_barcode", strategy: "reassign", outcome: "update_existing",
			data:     session.DataCreated{ProductsCreated: 1, VariantsCreated: 1, BarcodesAssigned: 1},
			variants: 3,
			check: func(t *testing.T, mem *catalog.MemoryCatalog, _, _ string) {
				held, err := mem.FindBarcode(context.Background(), "4006381333931")
				require.NoError(t, err)
				assert.Equal(t, variantBySKU(t, mem, "NEW-1").ID, *held.VariantID)
			},
		},
		{
			name: "variant data merged into existing",
			row:  "Shelf,SH-2,,White,L,2.5",
			conflict: func(c *conflicts.Config) {
				c.VariantStrategy = conflicts.VariantMergeData
				c.AllowMerging = true
			},
			kind: "variant_attributes", strategy: "merge_data", outcome: "update_existing",
			data:     session.DataCreated{VariantsUpdated: 1},
			variants: 2,
			check: func(t *testing.T, mem *catalog.MemoryCatalog, _, shelfVariantID string) {
				v := variantBySKU(t, mem, "SH-1")
				assert.Equal(t, shelfVariantID, v.ID)
				require.NotNil(t, v.Weight)
				assert.Equal(t, 2.5, *v.Weight)
			},
		},
		{
			name: "variant size modified on retry",
			row:  "Shelf,SH-2,,White,L,",
			conflict: func(c *conflicts.Config) {
				c.VariantStrategy = conflicts.VariantModifyAttributes
			},
			kind: "variant_attributes", strategy: "modify_attributes", outcome: "retry",
			data:     session.DataCreated{VariantsCreated: 1},
			variants: 3,
			check: func(t *testing.T, mem *catalog.MemoryCatalog, _, _ string) {
				v := variantBySKU(t, mem, "SH-2")
				require.NotNil(t, v.Size)
				assert.Equal(t, "L 2", *v.Size)
				require.NotNil(t, v.Color)
				assert.Equal(t, "White", *v.Color)
			},
		},
		{
			name: "sku updates existing variant",
			row:  "New Product,OLD-1,,,,3",
			conflict: func(c *conflicts.Config) {
				c.SKUStrategy = conflicts.SKUUpdateExisting
				c.AllowUpdates = true
			},
			kind: "duplicate_sku", strategy: "update_existing", outcome: "update_existing",
			data:     session.DataCreated{ProductsCreated: 1, VariantsUpdated: 1},
			variants: 2,
			check: func(t *testing.T, mem *catalog.MemoryCatalog, oldID, _ string) {
				v := variantBySKU(t, mem, "OLD-1")
				assert.Equal(t, oldID, v.ID)
				require.NotNil(t, v.Weight)
				assert.Equal(t, 3.0, *v.Weight)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			oldID, shelfVariantID := seedCatalog(t, h.memory)

			cfg := session.DefaultImportConfig(100)
			tt.conflict(&cfg.Conflicts)
			s := h.intake(t, "conflict.csv", conflictHeader+tt.row+"\n", &cfg, conflictMapping)
			h.drain(t)

			got := h.get(t, s.ID)
			require.Equal(t, session.StatusCompleted, got.Status, "errors: %v", got.Errors)
			assert.Equal(t, 1, got.SuccessfulRows)
			assert.Zero(t, got.FailedRows)
			assert.Zero(t, got.SkippedRows)
			assert.NoError(t, got.CheckCounts())

			stats := got.Statistics.Conflicts
			assert.Equal(t, 1, stats.Detected)
			assert.Equal(t, map[string]int{tt.kind: 1}, stats.ByKind)
			assert.Equal(t, map[string]int{tt.strategy: 1}, stats.ByStrategy)
			assert.Equal(t, map[string]int{tt.outcome: 1}, stats.ByOutcome)
			assert.Equal(t, tt.data, got.Statistics.Data)

			assert.Len(t, h.memory.Variants(), tt.variants)
			tt.check(t, h.memory, oldID, shelfVariantID)
		})
	}
}

func TestHeapPeak_KeepsLargestSample(t *testing.T) {
	var h heapPeak
	first := h.sample()
	assert.Positive(t, first)

	h.max = 1 << 62
	assert.Equal(t, uint64(1<<62), h.sample())
}

// storeDownCatalog fails every product lookup as if the database were gone
type storeDownCatalog struct {
	*catalog.MemoryCatalog
}

func (c storeDownCatalog) FindProductByName(context.Context, string) (*catalog.Product, error) {
	return nil, fmt.Errorf("%w: connection refused", catalog.ErrStore)
}

func TestStage_InfrastructureFailureRetriedThenFails(t *testing.T) {
	h := newHarnessWith(t, func(m *catalog.MemoryCatalog) catalog.Catalog { return storeDownCatalog{m} })
	s := h.intake(t, "blinds.csv", blindsCSV, nil, blindsMapping)
	h.drain(t)

	got := h.get(t, s.ID)
	assert.Equal(t, session.StatusFailed, got.Status)
	require.NotEmpty(t, got.Errors)
	last := got.Errors[len(got.Errors)-1]
	assert.Equal(t, StageDryRun, last.Stage)
	assert.Contains(t, last.Message, "store unavailable")

	var dryRun *taskqueue.Task
	for _, task := range h.queue.Tasks() {
		if task.TaskType == taskqueue.TaskTypeDryRun {
			dryRun = &task
		}
	}
	require.NotNil(t, dryRun)
	assert.Equal(t, taskqueue.StatusFailed, dryRun.Status)
	assert.Equal(t, taskqueue.DefaultMaxRetries, dryRun.RetryCount)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, nil)

	// Analyze is still queued; cancelling drops it
	cancelled, err := h.runner.Cancel(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCancelled, cancelled.Status)
	h.drain(t)

	got := h.get(t, s.ID)
	assert.Equal(t, session.StatusCancelled, got.Status)
	assert.Nil(t, got.FileAnalysis)

	_, err = h.runner.Cancel(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	_, err = h.runner.ConfirmMapping(ctx, s.ID, blindsMapping, nil)
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestConfirmMapping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, nil)

	_, err := h.runner.ConfirmMapping(ctx, s.ID, blindsMapping, nil)
	assert.ErrorIs(t, err, session.ErrInvalidTransition, "not analyzed yet")

	h.drain(t)
	_, err = h.runner.ConfirmMapping(ctx, s.ID, map[int]string{9: types.FieldProductName}, nil)
	assert.ErrorIs(t, err, ErrInvalidMapping)

	bad := session.DefaultImportConfig(100)
	bad.ChunkSize = 10000
	_, err = h.runner.ConfirmMapping(ctx, s.ID, blindsMapping, &bad)
	assert.ErrorIs(t, err, session.ErrInvalidConfig)

	cfg := session.DefaultImportConfig(50)
	cfg.Mode = session.ModeCreateOnly
	got, err := h.runner.ConfirmMapping(ctx, s.ID, blindsMapping, &cfg)
	require.NoError(t, err)
	assert.Equal(t, session.StatusMapped, got.Status)
	assert.Equal(t, session.ModeCreateOnly, got.Config.Mode)
	assert.Equal(t, 50, got.Config.ChunkSize)
	assert.Equal(t, 1, h.queue.Pending())
}

func TestDelete_ReleasesFile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.intake(t, "blinds.csv", blindsCSV, nil, nil)
	path := h.files.Path(s.FilePath)
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, h.runner.Delete(ctx, s.ID))

	_, err = h.sessions.Get(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, h.queue.Pending())

	assert.ErrorIs(t, h.runner.Delete(ctx, s.ID), session.ErrNotFound)
}

func TestChunkedProcessing(t *testing.T) {
	h := newHarness(t)
	var b strings.Builder
	b.WriteString("Product Name,SKU,Retail Price\n")
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&b, "Blind %d,BL-%03d,%d.50\n", i%3, i, i)
	}
	cfg := session.DefaultImportConfig(10)
	s := h.intake(t, "many.csv", b.String(), &cfg, map[int]string{
		0: types.FieldProductName, 1: types.FieldVariantSKU, 2: types.FieldRetailPrice,
	})
	h.drain(t)

	got := h.get(t, s.ID)
	require.Equal(t, session.StatusCompleted, got.Status)
	assert.Equal(t, 25, got.SuccessfulRows)
	assert.Equal(t, 3, got.Statistics.ChunksProcessed)
	assert.Equal(t, 3, got.Statistics.Data.ProductsCreated)
	assert.Equal(t, 25, got.Statistics.Data.VariantsCreated)
	assert.Equal(t, 100.0, got.FinalResult.Report.Summary.SuccessRate)
}

func TestBuildFinalResult(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Second)
	s := session.New("u", session.DefaultImportConfig(100))
	s.AddCounts(2, 1, 0)
	s.Statistics = &session.ProcessStatistics{StartedAt: start, CompletedAt: &end, PeakMemoryBytes: 3 << 20}

	final := BuildFinalResult(s, DefaultOptions())
	assert.Equal(t, 66.67, final.Report.Summary.SuccessRate)
	assert.Equal(t, 0.75, final.Performance.RowsPerSecond)
	assert.Equal(t, 3.0, final.Performance.PeakMemoryMB)
	require.Len(t, final.Report.Recommendations, 1)
	assert.Equal(t, RecommendDataQuality, final.Report.Recommendations[0].Type)

	s.ResetCounters()
	final = BuildFinalResult(s, DefaultOptions())
	assert.Zero(t, final.Report.Summary.SuccessRate)
	assert.Empty(t, final.Report.Recommendations)
}

func TestWriteErrorsCSV_NeutralisesFormulas(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"=1+2", "'=1+2"},
		{"+SUM(A1)", "'+SUM(A1)"},
		{"-5 is not a price", "'-5 is not a price"},
		{"@cmd", "'@cmd"},
		{"price: =1+2", "price: =1+2"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			s := session.New("u", session.DefaultImportConfig(100))
			s.AddError(StageProcess, tt.message, types.IntPtr(2))

			var buf bytes.Buffer
			require.NoError(t, WriteErrorsCSV(&buf, s))
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			require.Len(t, lines, 2)
			assert.True(t, strings.HasPrefix(lines[1], "2,"+tt.want+","), lines[1])
		})
	}
}

func TestReportWriters(t *testing.T) {
	s := session.New("u", session.DefaultImportConfig(100))

	var buf bytes.Buffer
	assert.ErrorIs(t, WriteReportJSON(&buf, s), ErrReportNotReady)

	s.AddError(StageProcess, "row 4 failed validation, product_name: is required", types.IntPtr(4))
	s.AddError(StageAnalyze, "file, with comma", nil)
	require.NoError(t, WriteErrorsCSV(&buf, s))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "row,message,timestamp", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `4,"row 4 failed validation, product_name: is required",`))
	assert.True(t, strings.HasPrefix(lines[2], `,"file, with comma",`))

	s.FinalResult = BuildFinalResult(s, DefaultOptions())
	buf.Reset()
	require.NoError(t, WriteReportJSON(&buf, s))
	assert.Contains(t, buf.String(), `"session_id": "`+s.ID+`"`)
}

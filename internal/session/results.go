package session

import (
	"time"

	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/kosarica/import-service/internal/extract"
)

// WorksheetInfo describes one sheet of a workbook
type WorksheetInfo struct {
	Name        string   `json:"name"`
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
	Headers     []string `json:"headers"`
	Selected    bool     `json:"selected"`
}

// ColumnSuggestion is the proposed mapping of one column
type ColumnSuggestion struct {
	Column     int     `json:"column"`
	Header     string  `json:"header"`
	Field      string  `json:"field,omitempty"`
	Confidence float64 `json:"confidence"`
}

// FileAnalysis is written by the Analyze stage
type FileAnalysis struct {
	Headers          []string             `json:"headers"`
	SampleRows       [][]string           `json:"sample_rows"`
	TotalRows        int                  `json:"total_rows"`
	Encoding         string               `json:"encoding,omitempty"`
	Delimiter        string               `json:"delimiter,omitempty"`
	Worksheets       []WorksheetInfo      `json:"worksheets,omitempty"`
	SuggestedMapping map[int]string       `json:"suggested_mapping"`
	Suggestions      []ColumnSuggestion   `json:"suggestions"`
	UnmappedColumns  []int                `json:"unmapped_columns"`
	SkuAnalysis      *extract.SkuAnalysis `json:"sku_analysis,omitempty"`
	AnalyzedAt       time.Time            `json:"analyzed_at"`
}

// Predictions counts the expected outcome of each row
type Predictions struct {
	WillCreate int `json:"will_create"`
	WillUpdate int `json:"will_update"`
	WillSkip   int `json:"will_skip"`
	// InvalidRows is the part of WillSkip that failed validation
	InvalidRows int `json:"invalid_rows"`
}

// ConflictAnalysis lists values that would collide on import
type ConflictAnalysis struct {
	ExistingSKUs              []string `json:"existing_skus"`
	ExistingBarcodes          []string `json:"existing_barcodes"`
	DuplicateSKUsInFile       []string `json:"duplicate_skus_in_file"`
	DuplicateBarcodesInFile   []string `json:"duplicate_barcodes_in_file"`
	// VariantAttributeConflicts lists variant SKUs whose color and size
	// combination is already taken under the same product
	VariantAttributeConflicts []string `json:"variant_attribute_conflicts"`
	PotentialConflicts        int      `json:"potential_conflicts"`
}

// QualityMetrics summarises how complete the mapped data is
type QualityMetrics struct {
	Completeness            float64            `json:"completeness"`
	RequiredFieldsPopulated int                `json:"required_fields_populated"`
	RequiredFieldsTotal     int                `json:"required_fields_total"`
	FieldCompleteness       map[string]float64 `json:"field_completeness"`
	RowsWithErrors          int                `json:"rows_with_errors"`
	ExtractedAttributes     int                `json:"extracted_attributes"`
}

// RowIssue is a row-level problem found during the dry run
type RowIssue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// DryRunResult is written by the DryRun stage
type DryRunResult struct {
	TotalRows        int              `json:"total_rows"`
	Predictions      Predictions      `json:"predictions"`
	ConflictAnalysis ConflictAnalysis `json:"conflict_analysis"`
	QualityMetrics   QualityMetrics   `json:"quality_metrics"`
	Issues           []RowIssue       `json:"issues"`
	CompletedAt      time.Time        `json:"completed_at"`
}

// DataCreated counts catalog writes made by the Process stage
type DataCreated struct {
	ProductsCreated  int `json:"products_created"`
	ProductsUpdated  int `json:"products_updated"`
	VariantsCreated  int `json:"variants_created"`
	VariantsUpdated  int `json:"variants_updated"`
	BarcodesAssigned int `json:"barcodes_assigned"`
	PricesSet        int `json:"prices_set"`
}

// ProcessStatistics is written by the Process stage after every chunk
type ProcessStatistics struct {
	Data            DataCreated     `json:"data_created"`
	Conflicts       conflicts.Stats `json:"conflicts"`
	ChunksProcessed int             `json:"chunks_processed"`
	PeakMemoryBytes uint64          `json:"peak_memory_bytes"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// PerformanceMetrics describes the throughput of the Process stage
type PerformanceMetrics struct {
	DurationSeconds float64 `json:"duration_seconds"`
	RowsPerSecond   float64 `json:"rows_per_second"`
	PeakMemoryMB    float64 `json:"peak_memory_mb"`
}

// Recommendation is an actionable note appended to the report
type Recommendation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ReportSummary holds the row totals of a finished import
type ReportSummary struct {
	TotalRows      int     `json:"total_rows"`
	ProcessedRows  int     `json:"processed_rows"`
	SuccessfulRows int     `json:"successful_rows"`
	FailedRows     int     `json:"failed_rows"`
	SkippedRows    int     `json:"skipped_rows"`
	SuccessRate    float64 `json:"success_rate"`
}

// Report is the comprehensive report built by Finalize
type Report struct {
	SessionID       string             `json:"session_id"`
	FileName        string             `json:"file_name"`
	Summary         ReportSummary      `json:"summary"`
	DataCreated     DataCreated        `json:"data_created"`
	Conflicts       conflicts.Stats    `json:"conflicts"`
	Performance     PerformanceMetrics `json:"performance"`
	Recommendations []Recommendation   `json:"recommendations"`
	ErrorCount      int                `json:"error_count"`
	WarningCount    int                `json:"warning_count"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// FinalResult is written by the Finalize stage
type FinalResult struct {
	Statistics  ProcessStatistics  `json:"statistics"`
	Performance PerformanceMetrics `json:"performance"`
	Report      Report             `json:"report"`
}

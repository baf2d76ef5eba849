// Package session holds the durable import session: its state machine,
// progress counters, stage results and the repositories that persist it.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kosarica/import-service/internal/types"
)

// LogEntry is one timestamped error or warning
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage,omitempty"`
	Row       *int      `json:"row,omitempty"`
	Message   string    `json:"message"`
}

// ImportSession is the aggregate root of one import run
type ImportSession struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	FileName string         `json:"file_name"`
	FilePath string         `json:"file_path"`
	FileHash string         `json:"file_hash"`
	FileSize int64          `json:"file_size"`
	FileType types.FileType `json:"file_type"`

	Config  ImportConfig   `json:"config"`
	Mapping map[int]string `json:"mapping,omitempty"`

	Status             Status  `json:"status"`
	CurrentOperation   string  `json:"current_operation,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage"`
	TotalRows          int     `json:"total_rows"`
	ProcessedRows      int     `json:"processed_rows"`
	SuccessfulRows     int     `json:"successful_rows"`
	FailedRows         int     `json:"failed_rows"`
	SkippedRows        int     `json:"skipped_rows"`

	FileAnalysis *FileAnalysis      `json:"file_analysis,omitempty"`
	DryRunResult *DryRunResult      `json:"dry_run_result,omitempty"`
	Statistics   *ProcessStatistics `json:"statistics,omitempty"`
	FinalResult  *FinalResult       `json:"final_result,omitempty"`

	Errors   []LogEntry `json:"errors"`
	Warnings []LogEntry `json:"warnings"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// New creates a session in the initializing state
func New(userID string, cfg ImportConfig) *ImportSession {
	now := time.Now().UTC()
	return &ImportSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Config:    cfg,
		Status:    StatusInitializing,
		Errors:    []LogEntry{},
		Warnings:  []LogEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo moves the session to a new status, enforcing the state machine
func (s *ImportSession) TransitionTo(to Status) error {
	if err := s.Status.ValidateTransition(to); err != nil {
		return err
	}
	s.Status = to
	if to.IsTerminal() {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	return nil
}

// MarkAsStarted records the start time of the first running stage
func (s *ImportSession) MarkAsStarted() error {
	if s.Status == StatusCompleted {
		return fmt.Errorf("%w: session %s already completed", ErrInvalidTransition, s.ID)
	}
	if s.StartedAt == nil {
		now := time.Now().UTC()
		s.StartedAt = &now
	}
	return nil
}

// UpdateProgress sets the percentage and current operation text
func (s *ImportSession) UpdateProgress(percentage float64, operation string) error {
	if percentage < 0 || percentage > 100 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidProgress, percentage)
	}
	s.ProgressPercentage = percentage
	if operation != "" {
		s.CurrentOperation = operation
	}
	return nil
}

// AddError appends a timestamped error. row is nil for session-level errors.
func (s *ImportSession) AddError(stage, message string, row *int) {
	s.Errors = append(s.Errors, LogEntry{Timestamp: time.Now().UTC(), Stage: stage, Row: row, Message: message})
}

// AddWarning appends a timestamped warning
func (s *ImportSession) AddWarning(stage, message string, row *int) {
	s.Warnings = append(s.Warnings, LogEntry{Timestamp: time.Now().UTC(), Stage: stage, Row: row, Message: message})
}

// Fail records message and moves the session to failed when still possible
func (s *ImportSession) Fail(stage, message string) {
	s.AddError(stage, message, nil)
	if s.Status.CanTransition(StatusFailed) {
		_ = s.TransitionTo(StatusFailed)
	}
}

// ResetCounters clears the row counters before a stage (re)starts processing
func (s *ImportSession) ResetCounters() {
	s.ProcessedRows = 0
	s.SuccessfulRows = 0
	s.FailedRows = 0
	s.SkippedRows = 0
	s.ProgressPercentage = 0
}

// AddCounts adds row outcomes and keeps processed equal to their sum
func (s *ImportSession) AddCounts(successful, failed, skipped int) {
	s.SuccessfulRows += successful
	s.FailedRows += failed
	s.SkippedRows += skipped
	s.ProcessedRows = s.SuccessfulRows + s.FailedRows + s.SkippedRows
}

// CheckCounts verifies processed = successful + failed + skipped
func (s *ImportSession) CheckCounts() error {
	if sum := s.SuccessfulRows + s.FailedRows + s.SkippedRows; sum != s.ProcessedRows {
		return fmt.Errorf("processed rows %d != successful %d + failed %d + skipped %d",
			s.ProcessedRows, s.SuccessfulRows, s.FailedRows, s.SkippedRows)
	}
	return nil
}

// AwaitingMapping reports whether analysis finished and a mapping is needed
func (s *ImportSession) AwaitingMapping() bool {
	return s.Status == StatusAnalyzingFile && s.FileAnalysis != nil
}

// ConfigEditable reports whether the configuration may still change
func (s *ImportSession) ConfigEditable() bool {
	switch s.Status {
	case StatusInitializing, StatusAnalyzingFile, StatusMapped:
		return true
	}
	return false
}

// SetMapping replaces the column mapping, optionally with a new configuration
func (s *ImportSession) SetMapping(mapping map[int]string, cfg *ImportConfig) error {
	if !s.ConfigEditable() {
		return ErrConfigLocked
	}
	s.Mapping = mapping
	if cfg != nil {
		s.Config = *cfg
	}
	return nil
}

// Progress is the status snapshot returned by the status query
type Progress struct {
	ID                 string  `json:"id"`
	Status             Status  `json:"status"`
	CurrentOperation   string  `json:"current_operation,omitempty"`
	ProgressPercentage float64 `json:"progress_percentage"`
	TotalRows          int     `json:"total_rows"`
	ProcessedRows      int     `json:"processed_rows"`
	SuccessfulRows     int     `json:"successful_rows"`
	FailedRows         int     `json:"failed_rows"`
	SkippedRows        int     `json:"skipped_rows"`
	ErrorCount         int     `json:"error_count"`
	WarningCount       int     `json:"warning_count"`
	AwaitingMapping    bool    `json:"awaiting_mapping"`
}

// Progress returns the lightweight status view of the session
func (s *ImportSession) Progress() Progress {
	return Progress{
		ID:                 s.ID,
		Status:             s.Status,
		CurrentOperation:   s.CurrentOperation,
		ProgressPercentage: s.ProgressPercentage,
		TotalRows:          s.TotalRows,
		ProcessedRows:      s.ProcessedRows,
		SuccessfulRows:     s.SuccessfulRows,
		FailedRows:         s.FailedRows,
		SkippedRows:        s.SkippedRows,
		ErrorCount:         len(s.Errors),
		WarningCount:       len(s.Warnings),
		AwaitingMapping:    s.AwaitingMapping(),
	}
}

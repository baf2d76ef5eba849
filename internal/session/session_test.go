package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kosarica/import-service/internal/conflicts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusInitializing, StatusAnalyzingFile, true},
		{StatusInitializing, StatusMapped, false},
		{StatusAnalyzingFile, StatusMapped, true},
		{StatusAnalyzingFile, StatusAnalyzingFile, true},
		{StatusMapped, StatusDryRun, true},
		{StatusMapped, StatusProcessing, false},
		{StatusDryRun, StatusProcessing, true},
		{StatusDryRun, StatusDryRun, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusFailed, StatusCancelled, false},
		{StatusCancelled, StatusAnalyzingFile, false},
		{StatusInitializing, StatusCancelled, true},
		{StatusProcessing, StatusFailed, true},
		{StatusDryRun, StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
			err := tt.from.ValidateTransition(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestTransitionToSetsCompletedAt(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))
	s.Status = StatusProcessing

	require.NoError(t, s.TransitionTo(StatusCompleted))
	assert.NotNil(t, s.CompletedAt)

	// re-running processing on a completed session is rejected
	assert.ErrorIs(t, s.TransitionTo(StatusProcessing), ErrInvalidTransition)
}

func TestMarkAsStarted(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))

	require.NoError(t, s.MarkAsStarted())
	started := *s.StartedAt
	require.NoError(t, s.MarkAsStarted())
	assert.Equal(t, started, *s.StartedAt)

	s.Status = StatusCompleted
	assert.ErrorIs(t, s.MarkAsStarted(), ErrInvalidTransition)
}

func TestUpdateProgress(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))

	require.NoError(t, s.UpdateProgress(0, "start"))
	require.NoError(t, s.UpdateProgress(100, "done"))
	assert.Equal(t, "done", s.CurrentOperation)

	assert.ErrorIs(t, s.UpdateProgress(-1, ""), ErrInvalidProgress)
	assert.ErrorIs(t, s.UpdateProgress(100.5, ""), ErrInvalidProgress)
	assert.Equal(t, 100.0, s.ProgressPercentage)
}

func TestDiagnosticsAreAppended(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))
	row := 4

	s.AddError("process", "first", &row)
	s.AddError("process", "second", nil)
	s.AddWarning("finalize", "careful", nil)

	require.Len(t, s.Errors, 2)
	assert.Equal(t, "first", s.Errors[0].Message)
	assert.Equal(t, 4, *s.Errors[0].Row)
	assert.Nil(t, s.Errors[1].Row)
	assert.False(t, s.Errors[0].Timestamp.IsZero())
	assert.False(t, s.Errors[1].Timestamp.Before(s.Errors[0].Timestamp))
	require.Len(t, s.Warnings, 1)
}

func TestFail(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))
	s.Fail("analyze", "corrupt file")
	assert.Equal(t, StatusFailed, s.Status)
	assert.Len(t, s.Errors, 1)

	done := New("user-1", DefaultImportConfig(100))
	done.Status = StatusCompleted
	done.Fail("finalize", "late")
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestCounts(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))

	s.AddCounts(5, 2, 1)
	s.AddCounts(1, 0, 1)

	assert.Equal(t, 10, s.ProcessedRows)
	assert.NoError(t, s.CheckCounts())

	s.ProcessedRows++
	assert.Error(t, s.CheckCounts())

	s.ResetCounters()
	assert.Zero(t, s.ProcessedRows)
	assert.NoError(t, s.CheckCounts())
}

func TestSetMappingLockedAfterDryRun(t *testing.T) {
	s := New("user-1", DefaultImportConfig(100))
	s.Status = StatusAnalyzingFile
	require.NoError(t, s.SetMapping(map[int]string{0: "product_name"}, nil))

	s.Status = StatusDryRun
	assert.ErrorIs(t, s.SetMapping(map[int]string{}, nil), ErrConfigLocked)
}

func TestImportConfigValidate(t *testing.T) {
	valid := DefaultImportConfig(100)
	assert.NoError(t, valid.Validate(10, 500))

	tests := []struct {
		name   string
		mutate func(*ImportConfig)
	}{
		{"unknown mode", func(c *ImportConfig) { c.Mode = "upsert" }},
		{"chunk too small", func(c *ImportConfig) { c.ChunkSize = 5 }},
		{"chunk too large", func(c *ImportConfig) { c.ChunkSize = 501 }},
		{"bad strategy", func(c *ImportConfig) { c.Conflicts.SKUStrategy = "overwrite" }},
		{"rule without field", func(c *ImportConfig) { c.Rules = []FieldRule{{Required: true}} }},
		{"rule with bad type", func(c *ImportConfig) { c.Rules = []FieldRule{{Field: "x", Type: "date"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultImportConfig(100)
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(10, 500), ErrInvalidConfig)
		})
	}

	cfg := ImportConfig{}.WithDefaults(100)
	assert.Equal(t, ModeCreateOrUpdate, cfg.Mode)
	assert.Equal(t, 100, cfg.ChunkSize)
	assert.Equal(t, conflicts.SKUSkip, cfg.Conflicts.SKUStrategy)
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	s := New("user-1", DefaultImportConfig(100))
	require.NoError(t, repo.Create(ctx, s))
	assert.Error(t, repo.Create(ctx, s))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	got.FileName = "mutated"

	again, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, again.FileName)

	updated, err := repo.Update(ctx, s.ID, func(s *ImportSession) error {
		return s.TransitionTo(StatusAnalyzingFile)
	})
	require.NoError(t, err)
	assert.Equal(t, StatusAnalyzingFile, updated.Status)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, s.ID, func(s *ImportSession) error {
		s.FileName = "lost"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	again, _ = repo.Get(ctx, s.ID)
	assert.Empty(t, again.FileName)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrNotFound)
}

func TestMemoryRepositoryListByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		s := New("user-1", DefaultImportConfig(100))
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.FileName = string(rune('a' + i))
		require.NoError(t, repo.Create(ctx, s))
	}
	require.NoError(t, repo.Create(ctx, New("user-2", DefaultImportConfig(100))))

	page, total, err := repo.ListByUser(ctx, "user-1", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].FileName)
	assert.Equal(t, "c", page[1].FileName)

	empty, total, err := repo.ListByUser(ctx, "user-1", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)
}

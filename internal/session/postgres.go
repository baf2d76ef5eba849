package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kosarica/import-service/internal/types"
)

const sessionColumns = `id, user_id, file_name, file_path, file_hash, file_size, file_type,
	config, mapping, status, current_operation, progress_percentage,
	total_rows, processed_rows, successful_rows, failed_rows, skipped_rows,
	file_analysis, dry_run_result, statistics, final_result, errors, warnings,
	created_at, started_at, completed_at, updated_at`

// PostgresRepository stores sessions in the import_sessions table. Stage
// results and diagnostics live in JSONB columns.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository over the given pool
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, s *ImportSession) error {
	args, err := encodeSession(s)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO import_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert import session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*ImportSession, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM import_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// Update locks the row for the duration of fn so concurrent stage writers
// and user commands serialize on the session
func (r *PostgresRepository) Update(ctx context.Context, id string, fn func(*ImportSession) error) (*ImportSession, error) {
	var updated *ImportSession
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM import_sessions WHERE id = $1 FOR UPDATE`, id)
		s, err := scanSession(row)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		s.UpdatedAt = time.Now().UTC()

		args, err := encodeSession(s)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE import_sessions SET
				user_id = $2, file_name = $3, file_path = $4, file_hash = $5, file_size = $6, file_type = $7,
				config = $8, mapping = $9, status = $10, current_operation = $11, progress_percentage = $12,
				total_rows = $13, processed_rows = $14, successful_rows = $15, failed_rows = $16, skipped_rows = $17,
				file_analysis = $18, dry_run_result = $19, statistics = $20, final_result = $21,
				errors = $22, warnings = $23, created_at = $24, started_at = $25, completed_at = $26, updated_at = $27
			WHERE id = $1
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to update import session: %w", err)
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ImportSession, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM import_sessions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count import sessions: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM import_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list import sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*ImportSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read import sessions: %w", err)
	}
	return sessions, total, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM import_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete import session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeSession(s *ImportSession) ([]any, error) {
	jsonFields := []any{s.Config, s.Mapping, s.FileAnalysis, s.DryRunResult, s.Statistics, s.FinalResult, s.Errors, s.Warnings}
	encoded := make([][]byte, len(jsonFields))
	for i, v := range jsonFields {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session field: %w", err)
		}
		encoded[i] = data
	}
	return []any{
		s.ID, s.UserID, s.FileName, s.FilePath, s.FileHash, s.FileSize, string(s.FileType),
		encoded[0], encoded[1], string(s.Status), s.CurrentOperation, s.ProgressPercentage,
		s.TotalRows, s.ProcessedRows, s.SuccessfulRows, s.FailedRows, s.SkippedRows,
		encoded[2], encoded[3], encoded[4], encoded[5], encoded[6], encoded[7],
		s.CreatedAt, s.StartedAt, s.CompletedAt, s.UpdatedAt,
	}, nil
}

func scanSession(row pgx.Row) (*ImportSession, error) {
	var (
		s                                               ImportSession
		fileType, status                                string
		config, mapping, analysis, dryRun, stats, final []byte
		errs, warnings                                  []byte
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.FileName, &s.FilePath, &s.FileHash, &s.FileSize, &fileType,
		&config, &mapping, &status, &s.CurrentOperation, &s.ProgressPercentage,
		&s.TotalRows, &s.ProcessedRows, &s.SuccessfulRows, &s.FailedRows, &s.SkippedRows,
		&analysis, &dryRun, &stats, &final, &errs, &warnings,
		&s.CreatedAt, &s.StartedAt, &s.CompletedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import session: %w", err)
	}
	s.FileType = types.FileType(fileType)
	s.Status = Status(status)

	targets := []struct {
		data []byte
		dst  any
	}{
		{config, &s.Config},
		{mapping, &s.Mapping},
		{analysis, &s.FileAnalysis},
		{dryRun, &s.DryRunResult},
		{stats, &s.Statistics},
		{final, &s.FinalResult},
		{errs, &s.Errors},
		{warnings, &s.Warnings},
	}
	for _, t := range targets {
		if len(t.data) == 0 {
			continue
		}
		if err := json.Unmarshal(t.data, t.dst); err != nil {
			return nil, fmt.Errorf("failed to decode session field: %w", err)
		}
	}
	if s.Errors == nil {
		s.Errors = []LogEntry{}
	}
	if s.Warnings == nil {
		s.Warnings = []LogEntry{}
	}
	return &s, nil
}

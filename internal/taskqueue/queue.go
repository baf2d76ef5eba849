// Package taskqueue is the durable work queue the import stages are
// dispatched through.
package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskQueue is the PostgreSQL-backed queue. Claiming, completion, failure
// and recovery are implemented by SQL functions in the schema.
type TaskQueue struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *TaskQueue {
	return &TaskQueue{pool: pool}
}

// Enqueue schedules a task to run now with default retries
func (q *TaskQueue) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	res := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: taskType, Payload: payload})
	if res.Err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", taskType, res.Err)
	}
	return res.ID, nil
}

func (q *TaskQueue) ScheduleTask(ctx context.Context, input ScheduleTaskInput) ScheduleTaskResult {
	payload, err := json.Marshal(input.Payload)
	if err != nil {
		return ScheduleTaskResult{Err: err}
	}

	maxRetries := DefaultMaxRetries
	if input.MaxRetries > 0 {
		maxRetries = input.MaxRetries
	}

	scheduledAt := time.Now().UTC()
	if input.ScheduledAt != nil {
		scheduledAt = *input.ScheduledAt
	}

	var id string
	err = q.pool.QueryRow(ctx, `
		INSERT INTO task_queue (task_type, payload, priority, scheduled_for, max_retries)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, input.TaskType, payload, input.Priority, scheduledAt, maxRetries).Scan(&id)
	if err != nil {
		return ScheduleTaskResult{Err: err}
	}

	return ScheduleTaskResult{ID: id}
}

func (q *TaskQueue) ClaimTasks(ctx context.Context, input ClaimTasksInput) ClaimTasksResult {
	rows, err := q.pool.Query(ctx, `
		SELECT * FROM claim_tasks($1, $2, $3)
	`, input.WorkerID, input.TaskTypes, input.MaxTasks)
	if err != nil {
		return ClaimTasksResult{Err: err}
	}
	defer rows.Close()

	tasks := make([]ClaimedTask, 0)
	for rows.Next() {
		var task ClaimedTask
		if err := rows.Scan(&task.ID, &task.TaskType, &task.Payload, &task.RetryCount, &task.MaxRetries); err != nil {
			return ClaimTasksResult{Err: err}
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return ClaimTasksResult{Err: err}
	}

	return ClaimTasksResult{Tasks: tasks}
}

func (q *TaskQueue) MarkProcessing(ctx context.Context, taskID string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE task_queue
		SET status = 'processing', started_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, taskID)
	return err
}

func (q *TaskQueue) CompleteTask(ctx context.Context, taskID string, result any) error {
	var resultJSON []byte
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		resultJSON = data
	}

	_, err := q.pool.Exec(ctx, `SELECT complete_task($1, $2)`, taskID, resultJSON)
	return err
}

func (q *TaskQueue) FailTask(ctx context.Context, taskID, errorMessage string, shouldRetry bool) error {
	_, err := q.pool.Exec(ctx, `SELECT fail_task($1, $2, $3)`, taskID, errorMessage, shouldRetry)
	return err
}

// RecoverOrphanedTasks requeues tasks claimed longer than stuckAfter ago, or
// fails them when their retries are exhausted
func (q *TaskQueue) RecoverOrphanedTasks(ctx context.Context, stuckAfter time.Duration) (int, int, error) {
	var recovered, failed int32
	err := q.pool.QueryRow(ctx, `
		SELECT * FROM recover_orphaned_tasks($1)
	`, stuckAfter).Scan(&recovered, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to execute recover_orphaned_tasks: %w", err)
	}
	return int(recovered), int(failed), nil
}

func (q *TaskQueue) CleanupOldTasks(ctx context.Context, daysToKeep int) (int, error) {
	var count int
	err := q.pool.QueryRow(ctx, `SELECT cleanup_old_tasks($1)`, daysToKeep).Scan(&count)
	return count, err
}

// CancelSessionTasks cancels the pending stage tasks of one import session
func (q *TaskQueue) CancelSessionTasks(ctx context.Context, sessionID string) (int, error) {
	tag, err := q.pool.Exec(ctx, `
		UPDATE task_queue
		SET status = 'cancelled', updated_at = NOW()
		WHERE payload->>'sessionId' = $1 AND status IN ('pending', 'claimed')
	`, sessionID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (q *TaskQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	err := q.pool.QueryRow(ctx, `
		SELECT id, task_type, payload, priority, status,
		       scheduled_for, started_at, completed_at, failed_at,
		       worker_id, retry_count, max_retries, error_message,
		       created_at, updated_at
		FROM task_queue
		WHERE id = $1
	`, taskID).Scan(
		&task.ID, &task.TaskType, &task.Payload, &task.Priority, &task.Status,
		&task.ScheduledFor, &task.StartedAt, &task.CompletedAt, &task.FailedAt,
		&task.WorkerID, &task.RetryCount, &task.MaxRetries, &task.ErrorMessage,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

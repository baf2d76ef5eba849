package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusClaimed    TaskStatus = "claimed"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Stage task types, one per import pipeline stage
const (
	TaskTypeAnalyze  = "stage.analyze"
	TaskTypeDryRun   = "stage.dry_run"
	TaskTypeProcess  = "stage.process"
	TaskTypeFinalize = "stage.finalize"
)

// StageTaskTypes lists every stage task type
var StageTaskTypes = []string{TaskTypeAnalyze, TaskTypeDryRun, TaskTypeProcess, TaskTypeFinalize}

// DefaultMaxRetries applies when a task is scheduled without an explicit limit
const DefaultMaxRetries = 3

// ErrNoRetry marks a handler error that retrying cannot fix
var ErrNoRetry = errors.New("task must not be retried")

type Task struct {
	ID           string          `json:"id"`
	TaskType     string          `json:"task_type"`
	Payload      json.RawMessage `json:"payload"`
	Priority     int             `json:"priority"`
	Status       TaskStatus      `json:"status"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	FailedAt     *time.Time      `json:"failed_at,omitempty"`
	WorkerID     *string         `json:"worker_id,omitempty"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ClaimedTask struct {
	ID         string          `json:"id"`
	TaskType   string          `json:"task_type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// LastAttempt reports whether a failure of this run exhausts the task's retries
func (t ClaimedTask) LastAttempt() bool {
	return t.RetryCount >= t.MaxRetries
}

// StagePayload is the payload of every stage task
type StagePayload struct {
	SessionID string `json:"sessionId"`
}

// Enqueuer schedules a task for asynchronous execution
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) (string, error)
}

// Queue is the contract workers and sweepers consume
type Queue interface {
	Enqueuer
	ClaimTasks(ctx context.Context, input ClaimTasksInput) ClaimTasksResult
	MarkProcessing(ctx context.Context, taskID string) error
	CompleteTask(ctx context.Context, taskID string, result any) error
	FailTask(ctx context.Context, taskID, errorMessage string, shouldRetry bool) error
	RecoverOrphanedTasks(ctx context.Context, stuckAfter time.Duration) (recovered, failed int, err error)
	CleanupOldTasks(ctx context.Context, daysToKeep int) (int, error)
	CancelSessionTasks(ctx context.Context, sessionID string) (int, error)
}

type ScheduleTaskInput struct {
	TaskType    string
	Payload     any
	Priority    int
	ScheduledAt *time.Time
	MaxRetries  int
}

type ScheduleTaskResult struct {
	ID  string
	Err error
}

type ClaimTasksInput struct {
	WorkerID  string
	TaskTypes []string
	MaxTasks  int
}

type ClaimTasksResult struct {
	Tasks []ClaimedTask
	Err   error
}

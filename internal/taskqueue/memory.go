package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue for the CLI and tests. It follows the
// same state transitions as the SQL functions backing TaskQueue.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks map[string]*Task
	seq   []string
	now   func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		tasks: make(map[string]*Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, taskType string, payload any) (string, error) {
	res := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: taskType, Payload: payload})
	if res.Err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", taskType, res.Err)
	}
	return res.ID, nil
}

func (q *MemoryQueue) ScheduleTask(_ context.Context, input ScheduleTaskInput) ScheduleTaskResult {
	payload, err := json.Marshal(input.Payload)
	if err != nil {
		return ScheduleTaskResult{Err: err}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	scheduled := now
	if input.ScheduledAt != nil {
		scheduled = *input.ScheduledAt
	}
	maxRetries := DefaultMaxRetries
	if input.MaxRetries > 0 {
		maxRetries = input.MaxRetries
	}

	task := &Task{
		ID:           uuid.NewString(),
		TaskType:     input.TaskType,
		Payload:      payload,
		Priority:     input.Priority,
		Status:       StatusPending,
		ScheduledFor: scheduled,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q.tasks[task.ID] = task
	q.seq = append(q.seq, task.ID)
	return ScheduleTaskResult{ID: task.ID}
}

func (q *MemoryQueue) ClaimTasks(_ context.Context, input ClaimTasksInput) ClaimTasksResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var eligible []*Task
	for _, id := range q.seq {
		t := q.tasks[id]
		if t.Status != StatusPending || t.ScheduledFor.After(now) {
			continue
		}
		if len(input.TaskTypes) > 0 && !slices.Contains(input.TaskTypes, t.TaskType) {
			continue
		}
		eligible = append(eligible, t)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority > eligible[j].Priority
	})

	claimed := make([]ClaimedTask, 0)
	for _, t := range eligible {
		if input.MaxTasks > 0 && len(claimed) >= input.MaxTasks {
			break
		}
		worker := input.WorkerID
		t.Status = StatusClaimed
		t.WorkerID = &worker
		t.UpdatedAt = now
		claimed = append(claimed, ClaimedTask{
			ID:         t.ID,
			TaskType:   t.TaskType,
			Payload:    t.Payload,
			RetryCount: t.RetryCount,
			MaxRetries: t.MaxRetries,
		})
	}
	return ClaimTasksResult{Tasks: claimed}
}

func (q *MemoryQueue) MarkProcessing(_ context.Context, taskID string) error {
	return q.update(taskID, func(t *Task, now time.Time) {
		t.Status = StatusProcessing
		t.StartedAt = &now
	})
}

func (q *MemoryQueue) CompleteTask(_ context.Context, taskID string, _ any) error {
	return q.update(taskID, func(t *Task, now time.Time) {
		t.Status = StatusCompleted
		t.CompletedAt = &now
	})
}

func (q *MemoryQueue) FailTask(_ context.Context, taskID, errorMessage string, shouldRetry bool) error {
	return q.update(taskID, func(t *Task, now time.Time) {
		msg := errorMessage
		t.ErrorMessage = &msg
		if shouldRetry && t.RetryCount < t.MaxRetries {
			t.RetryCount++
			t.Status = StatusPending
			t.WorkerID = nil
			t.StartedAt = nil
			return
		}
		t.Status = StatusFailed
		t.FailedAt = &now
	})
}

func (q *MemoryQueue) RecoverOrphanedTasks(_ context.Context, stuckAfter time.Duration) (int, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var recovered, failed int
	for _, t := range q.tasks {
		if t.Status != StatusClaimed && t.Status != StatusProcessing {
			continue
		}
		if now.Sub(t.UpdatedAt) < stuckAfter {
			continue
		}
		t.UpdatedAt = now
		t.WorkerID = nil
		if t.RetryCount < t.MaxRetries {
			t.RetryCount++
			t.Status = StatusPending
			t.StartedAt = nil
			recovered++
			continue
		}
		msg := "worker stopped responding"
		t.ErrorMessage = &msg
		t.Status = StatusFailed
		t.FailedAt = &now
		failed++
	}
	return recovered, failed, nil
}

func (q *MemoryQueue) CleanupOldTasks(_ context.Context, daysToKeep int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().AddDate(0, 0, -daysToKeep)
	removed := 0
	kept := q.seq[:0]
	for _, id := range q.seq {
		t := q.tasks[id]
		terminal := t.Status == StatusCompleted || t.Status == StatusFailed || t.Status == StatusCancelled
		if terminal && t.UpdatedAt.Before(cutoff) {
			delete(q.tasks, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	q.seq = kept
	return removed, nil
}

func (q *MemoryQueue) CancelSessionTasks(_ context.Context, sessionID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cancelled := 0
	for _, t := range q.tasks {
		if t.Status != StatusPending && t.Status != StatusClaimed {
			continue
		}
		var p StagePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil || p.SessionID != sessionID {
			continue
		}
		t.Status = StatusCancelled
		t.UpdatedAt = q.now()
		cancelled++
	}
	return cancelled, nil
}

func (q *MemoryQueue) GetTask(_ context.Context, taskID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	copied := *t
	return &copied, nil
}

// Tasks returns a snapshot of every task in insertion order
func (q *MemoryQueue) Tasks() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, 0, len(q.seq))
	for _, id := range q.seq {
		out = append(out, *q.tasks[id])
	}
	return out
}

// Pending counts tasks not yet in a terminal state
func (q *MemoryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, t := range q.tasks {
		switch t.Status {
		case StatusPending, StatusClaimed, StatusProcessing:
			n++
		}
	}
	return n
}

func (q *MemoryQueue) update(taskID string, fn func(*Task, time.Time)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	now := q.now()
	fn(t, now)
	t.UpdatedAt = now
	return nil
}

var (
	_ Queue = (*MemoryQueue)(nil)
	_ Queue = (*TaskQueue)(nil)
)

package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_ClaimOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	low := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: TaskTypeAnalyze, Payload: StagePayload{SessionID: "a"}})
	high := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: TaskTypeAnalyze, Payload: StagePayload{SessionID: "b"}, Priority: 5})
	_, err := q.Enqueue(ctx, TaskTypeProcess, StagePayload{SessionID: "c"})
	require.NoError(t, err)
	require.NoError(t, low.Err)
	require.NoError(t, high.Err)

	res := q.ClaimTasks(ctx, ClaimTasksInput{WorkerID: "w1", TaskTypes: []string{TaskTypeAnalyze}, MaxTasks: 5})
	require.NoError(t, res.Err)
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, high.ID, res.Tasks[0].ID)
	assert.Equal(t, low.ID, res.Tasks[1].ID)

	again := q.ClaimTasks(ctx, ClaimTasksInput{WorkerID: "w2", TaskTypes: []string{TaskTypeAnalyze}, MaxTasks: 5})
	assert.Empty(t, again.Tasks)
	assert.Equal(t, 3, q.Pending())
}

func TestMemoryQueue_ScheduledInFuture(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	later := time.Now().Add(time.Hour)
	q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: TaskTypeAnalyze, Payload: StagePayload{}, ScheduledAt: &later})

	res := q.ClaimTasks(ctx, ClaimTasksInput{WorkerID: "w", MaxTasks: 1})
	assert.Empty(t, res.Tasks)
}

func TestMemoryQueue_FailRetries(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	id := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: TaskTypeProcess, Payload: StagePayload{}, MaxRetries: 1}).ID

	claim := func() ClaimedTask {
		res := q.ClaimTasks(ctx, ClaimTasksInput{WorkerID: "w", MaxTasks: 1})
		require.Len(t, res.Tasks, 1)
		return res.Tasks[0]
	}

	first := claim()
	assert.False(t, first.LastAttempt())
	require.NoError(t, q.FailTask(ctx, id, "boom", true))

	task, err := q.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 1, task.RetryCount)

	second := claim()
	assert.True(t, second.LastAttempt())
	require.NoError(t, q.FailTask(ctx, id, "boom again", true))

	task, err = q.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	require.NotNil(t, task.ErrorMessage)
	assert.Equal(t, "boom again", *task.ErrorMessage)
}

func TestMemoryQueue_FailWithoutRetry(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	id, err := q.Enqueue(ctx, TaskTypeFinalize, StagePayload{})
	require.NoError(t, err)
	q.ClaimTasks(ctx, ClaimTasksInput{WorkerID: "w", MaxTasks: 1})

	require.NoError(t, q.FailTask(ctx, id, "bad payload", false))
	task, _ := q.GetTask(ctx, id)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, 0, task.RetryCount)
}

func TestMemoryQueue_RecoverOrphaned(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }

	retryable := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: TaskTypeProcess, Payload: StagePayload{}, MaxRetries: 2}).ID
	exhausted := q.ScheduleTask(ctx, ScheduleTaskInput{TaskType: TaskTypeProcess, Payload: StagePayload{}, MaxRetries: 1}).ID
	q.tasks[exhausted].RetryCount = 1

	q.ClaimTasks(ctx, ClaimTasksInput{WorkerID: "w", MaxTasks: 2})
	require.NoError(t, q.MarkProcessing(ctx, retryable))

	clock = clock.Add(time.Minute)
	recovered, failed, err := q.RecoverOrphanedTasks(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, recovered)
	assert.Zero(t, failed)

	clock = clock.Add(time.Hour)
	recovered, failed, err = q.RecoverOrphanedTasks(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)
	assert.Equal(t, 1, failed)

	task, _ := q.GetTask(ctx, retryable)
	assert.Equal(t, StatusPending, task.Status)
	task, _ = q.GetTask(ctx, exhausted)
	assert.Equal(t, StatusFailed, task.Status)
}

func TestMemoryQueue_CleanupOldTasks(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }

	done, _ := q.Enqueue(ctx, TaskTypeAnalyze, StagePayload{})
	open, _ := q.Enqueue(ctx, TaskTypeAnalyze, StagePayload{})
	require.NoError(t, q.CompleteTask(ctx, done, nil))

	clock = clock.AddDate(0, 0, 10)
	removed, err := q.CleanupOldTasks(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = q.GetTask(ctx, done)
	assert.Error(t, err)
	_, err = q.GetTask(ctx, open)
	assert.NoError(t, err)
}

func TestMemoryQueue_CancelSessionTasks(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	a, _ := q.Enqueue(ctx, TaskTypeDryRun, StagePayload{SessionID: "s1"})
	b, _ := q.Enqueue(ctx, TaskTypeDryRun, StagePayload{SessionID: "s2"})

	n, err := q.CancelSessionTasks(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ta, _ := q.GetTask(ctx, a)
	tb, _ := q.GetTask(ctx, b)
	assert.Equal(t, StatusCancelled, ta.Status)
	assert.Equal(t, StatusPending, tb.Status)
}

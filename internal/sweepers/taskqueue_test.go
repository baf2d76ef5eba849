package sweepers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/import-service/internal/taskqueue"
)

func TestSweep_RecoversStuckTasks(t *testing.T) {
	ctx := context.Background()
	q := taskqueue.NewMemoryQueue()
	logger := zerolog.Nop()

	id, err := q.Enqueue(ctx, taskqueue.TaskTypeProcess, taskqueue.StagePayload{SessionID: "s"})
	require.NoError(t, err)
	claimed := q.ClaimTasks(ctx, taskqueue.ClaimTasksInput{WorkerID: "dead", MaxTasks: 1})
	require.Len(t, claimed.Tasks, 1)

	s := NewTaskQueueSweeper(q, &logger, Config{StuckAfter: time.Nanosecond})
	time.Sleep(time.Millisecond)
	s.Sweep(ctx)

	task, err := q.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusPending, task.Status)
	assert.Equal(t, 1, task.RetryCount)
}

func TestStart_StopsOnSignal(t *testing.T) {
	logger := zerolog.Nop()
	s := NewTaskQueueSweeper(taskqueue.NewMemoryQueue(), &logger, Config{Interval: time.Millisecond})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

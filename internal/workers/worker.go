package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/import-service/internal/taskqueue"
)

// Handler runs one claimed task. Returning an error wrapping
// taskqueue.ErrNoRetry fails the task permanently.
type Handler func(ctx context.Context, task taskqueue.ClaimedTask) error

type WorkerConfig struct {
	WorkerID   string
	TaskTypes  []string
	MaxTasks   int
	NumWorkers int
	PollDelay  time.Duration
}

type Worker struct {
	queue    taskqueue.Queue
	config   WorkerConfig
	logger   *zerolog.Logger
	handlers map[string]Handler
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(queue taskqueue.Queue, config WorkerConfig, logger *zerolog.Logger) *Worker {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.MaxTasks < 1 {
		config.MaxTasks = 1
	}
	if config.PollDelay <= 0 {
		config.PollDelay = time.Second
	}
	return &Worker{
		queue:    queue,
		config:   config,
		logger:   logger,
		handlers: make(map[string]Handler),
		stopChan: make(chan struct{}),
	}
}

func (w *Worker) RegisterHandler(taskType string, handler Handler) {
	w.handlers[taskType] = handler
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().
		Str("component", "worker").
		Str("worker_id", w.config.WorkerID).
		Strs("task_types", w.config.TaskTypes).
		Int("goroutines", w.config.NumWorkers).
		Msg("Starting worker")

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// Stop signals every loop and waits for in-flight tasks
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.logger.Info().
		Str("component", "worker").
		Str("worker_id", w.config.WorkerID).
		Msg("Worker stopping, waiting for in-flight tasks")
	w.wg.Wait()
	w.logger.Info().
		Str("component", "worker").
		Str("worker_id", w.config.WorkerID).
		Msg("Worker stopped")
}

// Drain processes tasks on the calling goroutine until none can be claimed
func (w *Worker) Drain(ctx context.Context) error {
	workerID := w.config.WorkerID + "-drain"
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.processTasks(ctx, workerID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerID := fmt.Sprintf("%s-%d", w.config.WorkerID, workerNum)
	w.logger.Debug().
		Str("component", "worker").
		Str("worker_id", workerID).
		Msg("Starting worker goroutine")

	ticker := time.NewTicker(w.config.PollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().
				Str("component", "worker").
				Str("worker_id", workerID).
				Msg("Worker shutting down")
			return

		case <-w.stopChan:
			return

		case <-ticker.C:
			if _, err := w.processTasks(ctx, workerID); err != nil {
				w.logger.Error().Err(err).Str("worker_id", workerID).Msg("Failed to claim tasks")
			}
		}
	}
}

func (w *Worker) processTasks(ctx context.Context, workerID string) (int, error) {
	claimResult := w.queue.ClaimTasks(ctx, taskqueue.ClaimTasksInput{
		WorkerID:  workerID,
		TaskTypes: w.config.TaskTypes,
		MaxTasks:  w.config.MaxTasks,
	})
	if claimResult.Err != nil {
		return 0, claimResult.Err
	}

	if len(claimResult.Tasks) == 0 {
		return 0, nil
	}

	w.logger.Debug().
		Str("component", "worker").
		Str("worker_id", workerID).
		Int("task_count", len(claimResult.Tasks)).
		Msg("Worker claimed tasks")

	for _, task := range claimResult.Tasks {
		w.processTask(ctx, workerID, task)
	}
	return len(claimResult.Tasks), nil
}

func (w *Worker) processTask(ctx context.Context, workerID string, task taskqueue.ClaimedTask) {
	start := time.Now()
	logger := w.logger.With().
		Str("component", "worker").
		Str("worker_id", workerID).
		Str("task_id", task.ID).
		Str("task_type", task.TaskType).
		Logger()

	handler, exists := w.handlers[task.TaskType]
	if !exists {
		logger.Warn().Msg("No handler for task type")
		w.fail(ctx, &logger, task, "no handler registered", false)
		return
	}

	if err := w.queue.MarkProcessing(ctx, task.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to mark task as processing")
		w.fail(ctx, &logger, task, fmt.Sprintf("status update failed: %v", err), true)
		return
	}

	if err := w.run(ctx, handler, task); err != nil {
		retry := !errors.Is(err, taskqueue.ErrNoRetry)
		logger.Error().
			Err(err).
			Bool("retry", retry && !task.LastAttempt()).
			Int("retry_count", task.RetryCount).
			Msg("Task failed")
		w.fail(ctx, &logger, task, err.Error(), retry)
		taskOutcomes.WithLabelValues(task.TaskType, "failed").Inc()
		return
	}

	if err := w.queue.CompleteTask(ctx, task.ID, nil); err != nil {
		logger.Error().Err(err).Msg("Failed to mark task as completed")
		return
	}
	taskOutcomes.WithLabelValues(task.TaskType, "completed").Inc()

	logger.Info().
		Dur("duration", time.Since(start)).
		Msg("Worker completed task")
}

// run converts a handler panic into a permanent failure
func (w *Worker) run(ctx context.Context, handler Handler, task taskqueue.ClaimedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panicked: %v", taskqueue.ErrNoRetry, r)
		}
	}()
	return handler(ctx, task)
}

func (w *Worker) fail(ctx context.Context, logger *zerolog.Logger, task taskqueue.ClaimedTask, msg string, retry bool) {
	if err := w.queue.FailTask(ctx, task.ID, msg, retry); err != nil {
		logger.Error().Err(err).Msg("Failed to record task failure")
	}
}

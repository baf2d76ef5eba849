package sweepers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kosarica/import-service/internal/taskqueue"
)

// TaskQueueSweeper periodically recovers orphaned stage tasks and prunes
// finished ones past their retention
type TaskQueueSweeper struct {
	queue         taskqueue.Queue
	logger        *zerolog.Logger
	interval      time.Duration
	stuckAfter    time.Duration
	retentionDays int
	stopOnce      sync.Once
	stopChan      chan struct{}
}

type Config struct {
	Interval      time.Duration
	StuckAfter    time.Duration
	RetentionDays int
}

// NewTaskQueueSweeper creates a new sweeper for task queue maintenance
func NewTaskQueueSweeper(queue taskqueue.Queue, logger *zerolog.Logger, cfg Config) *TaskQueueSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = 15 * time.Minute
	}
	return &TaskQueueSweeper{
		queue:         queue,
		logger:        logger,
		interval:      cfg.Interval,
		stuckAfter:    cfg.StuckAfter,
		retentionDays: cfg.RetentionDays,
		stopChan:      make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (s *TaskQueueSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("stuck_after", s.stuckAfter).
		Int("retention_days", s.retentionDays).
		Msg("Starting task queue sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Task queue sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Task queue sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop
func (s *TaskQueueSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Sweep runs one recovery and cleanup pass
func (s *TaskQueueSweeper) Sweep(ctx context.Context) {
	if err := s.RecoverOrphanedTasks(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to recover orphaned tasks")
	}
	if s.retentionDays > 0 {
		removed, err := s.queue.CleanupOldTasks(ctx, s.retentionDays)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to clean up old tasks")
			return
		}
		if removed > 0 {
			s.logger.Info().Int("removed", removed).Msg("Cleaned up finished tasks")
		}
	}
}

func (s *TaskQueueSweeper) RecoverOrphanedTasks(ctx context.Context) error {
	s.logger.Debug().Msg("Running orphaned task recovery")

	recovered, failed, err := s.queue.RecoverOrphanedTasks(ctx, s.stuckAfter)
	if err != nil {
		return err
	}

	if recovered > 0 || failed > 0 {
		s.logger.Info().
			Int("recovered", recovered).
			Int("failed", failed).
			Msg("Recovered orphaned tasks")
	}

	return nil
}

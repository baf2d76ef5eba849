// Package app wires configuration into the stores, the pipeline runner and
// the background workers shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-service/config"
	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/database"
	"github.com/kosarica/import-service/internal/pipeline"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/storage"
	"github.com/kosarica/import-service/internal/sweepers"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/workers"
)

type App struct {
	Config   *config.Config
	Sessions session.Repository
	Catalog  catalog.Catalog
	Queue    taskqueue.Queue
	Files    *storage.LocalStorage
	Runner   *pipeline.Runner

	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// New opens the stores named by cfg. Without a database URL every store is
// in memory and nothing survives the process.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	files, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &App{Config: cfg, Files: files, logger: logger}

	if cfg.Database.URL == "" {
		logger.Warn().Msg("No database configured, using in-memory stores")
		a.Sessions = session.NewMemoryRepository()
		a.Catalog = catalog.NewMemoryCatalog()
		a.Queue = taskqueue.NewMemoryQueue()
	} else {
		if err := database.Connect(ctx, database.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConnections,
			MinConns:        cfg.Database.MinConnections,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		}); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.pool = database.Pool()
		logger.Info().Msg("Database connected")

		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, a.pool); err != nil {
				database.Close()
				return nil, err
			}
		}

		a.Sessions = session.NewPostgresRepository(a.pool)
		a.Catalog = catalog.NewPostgresCatalog(a.pool)
		a.Queue = taskqueue.New(a.pool)
	}

	a.Runner = pipeline.NewRunner(a.Sessions, a.Catalog, a.Files, a.Queue, cfg.Import.Options(), logger)
	return a, nil
}

// Persistent reports whether the stores are backed by PostgreSQL
func (a *App) Persistent() bool {
	return a.pool != nil
}

// NewWorker builds a stage worker with every stage handler registered
func (a *App) NewWorker(id string) *workers.Worker {
	w := workers.New(a.Queue, workers.WorkerConfig{
		WorkerID:   id,
		TaskTypes:  taskqueue.StageTaskTypes,
		MaxTasks:   a.Config.Worker.BatchSize,
		NumWorkers: a.Config.Worker.Concurrency,
		PollDelay:  a.Config.Worker.PollDelay,
	}, a.logger)
	a.Runner.Register(w)
	return w
}

// NewSweeper builds the task queue maintenance loop
func (a *App) NewSweeper() *sweepers.TaskQueueSweeper {
	return sweepers.NewTaskQueueSweeper(a.Queue, a.logger, sweepers.Config{
		Interval:      a.Config.Sweeper.Interval,
		StuckAfter:    a.Config.Sweeper.StuckAfter,
		RetentionDays: a.Config.Sweeper.RetentionDays,
	})
}

// DatabaseCheck returns the health probe for the pool, or nil in memory mode
func (a *App) DatabaseCheck() func(context.Context) error {
	if a.pool == nil {
		return nil
	}
	return database.Status
}

// StorageCheck verifies the upload directory is still reachable
func (a *App) StorageCheck(_ context.Context) error {
	info, err := os.Stat(a.Files.GetBasePath())
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", a.Files.GetBasePath())
	}
	return nil
}

func (a *App) Close() {
	if a.pool != nil {
		database.Close()
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kosarica/import-service/internal/database"
)

var workerID string

// workerCmd runs stage workers without the HTTP API
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run import stage workers and the task queue sweeper",
	Long: `Claim and run queued import stages until interrupted. Several workers can
share one database; tasks are claimed with row locks so each stage runs once.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.Persistent() {
			return fmt.Errorf("worker needs a database, set DATABASE_URL")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		id := workerID
		if id == "" {
			host, _ := os.Hostname()
			id = fmt.Sprintf("%s-%d", host, os.Getpid())
		}

		worker := svc.NewWorker(id)
		sweeper := svc.NewSweeper()
		worker.Start(ctx)
		go sweeper.Start(ctx)

		<-ctx.Done()
		sweeper.Stop()
		worker.Stop()
		return nil
	},
}

// migrateCmd applies the database schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !svc.Persistent() {
			return fmt.Errorf("migrate needs a database, set DATABASE_URL")
		}
		return database.Migrate(cmd.Context(), database.Pool())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)

	workerCmd.Flags().StringVar(&workerID, "id", "", "Worker ID recorded on claimed tasks (default host-pid)")
}

package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kosarica/import-service/internal/catalog"
	"github.com/kosarica/import-service/internal/session"
	"github.com/kosarica/import-service/internal/taskqueue"
	"github.com/kosarica/import-service/internal/types"
)

func setupTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{URL: connStr, MaxConns: 5})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestPostgresStores(t *testing.T) {
	pool := setupTestDatabase(t)
	ctx := context.Background()

	t.Run("MigrateIsIdempotent", func(t *testing.T) {
		require.NoError(t, Migrate(ctx, pool))
	})

	t.Run("SessionRoundTrip", func(t *testing.T) {
		repo := session.NewPostgresRepository(pool)
		s := session.New("user-1", session.DefaultImportConfig(100))
		s.FileName = "blinds.csv"
		s.FileType = types.FileTypeCSV
		s.Mapping = map[int]string{0: types.FieldProductName}
		require.NoError(t, repo.Create(ctx, s))

		updated, err := repo.Update(ctx, s.ID, func(s *session.ImportSession) error {
			s.AddWarning("analyze", "header row has blanks", types.IntPtr(1))
			return s.TransitionTo(session.StatusAnalyzingFile)
		})
		require.NoError(t, err)
		assert.Equal(t, session.StatusAnalyzingFile, updated.Status)

		got, err := repo.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.Mapping, got.Mapping)
		require.Len(t, got.Warnings, 1)
		assert.Equal(t, 1, *got.Warnings[0].Row)

		list, total, err := repo.ListByUser(ctx, "user-1", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, list, 1)

		require.NoError(t, repo.Delete(ctx, s.ID))
		_, err = repo.Get(ctx, s.ID)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("CatalogConstraintNames", func(t *testing.T) {
		cat := catalog.NewPostgresCatalog(pool)
		p, err := cat.CreateProduct(ctx, catalog.ProductInput{Name: "Roller Blind"})
		require.NoError(t, err)
		_, err = cat.CreateVariant(ctx, catalog.VariantInput{ProductID: p.ID, SKU: "RB-1", Color: types.StringPtr("White")})
		require.NoError(t, err)

		tests := []struct {
			name string
			in   catalog.VariantInput
			want catalog.ConstraintKind
		}{
			{"duplicate sku", catalog.VariantInput{ProductID: p.ID, SKU: "RB-1"}, catalog.ConstraintSKU},
			{"duplicate attributes", catalog.VariantInput{ProductID: p.ID, SKU: "RB-2", Color: types.StringPtr("White")}, catalog.ConstraintVariantAttributes},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := cat.CreateVariant(ctx, tt.in)
				v, ok := catalog.AsViolation(err)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.want, v.Kind)
			})
		}

		found, err := cat.FindProductByName(ctx, "roller blind")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("TaskQueueLifecycle", func(t *testing.T) {
		q := taskqueue.New(pool)
		id, err := q.Enqueue(ctx, taskqueue.TaskTypeAnalyze, taskqueue.StagePayload{SessionID: "s-1"})
		require.NoError(t, err)

		claimed := q.ClaimTasks(ctx, taskqueue.ClaimTasksInput{WorkerID: "w", TaskTypes: taskqueue.StageTaskTypes, MaxTasks: 5})
		require.NoError(t, claimed.Err)
		require.Len(t, claimed.Tasks, 1)
		assert.Equal(t, id, claimed.Tasks[0].ID)

		require.NoError(t, q.FailTask(ctx, id, "boom", true))
		task, err := q.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, taskqueue.StatusPending, task.Status)
		assert.Equal(t, 1, task.RetryCount)

		n, err := q.CancelSessionTasks(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		recovered, failed, err := q.RecoverOrphanedTasks(ctx, time.Minute)
		require.NoError(t, err)
		assert.Zero(t, recovered)
		assert.Zero(t, failed)
	})
}

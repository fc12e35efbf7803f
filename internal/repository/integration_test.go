//go:build integration

package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/markme/facecheck/internal/database"
	"github.com/markme/facecheck/internal/domain"
)

func setupIntegrationTest(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "facecheck_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/facecheck_test?sslmode=disable", host, port.Port())

	sqlDB, err := database.OpenSQL(ctx, connStr)
	require.NoError(t, err)
	defer func() { _ = sqlDB.Close() }()

	migrator, err := database.NewMigrator(ctx, sqlDB, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, migrator.Up())

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(connStr))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestIntegration_Repositories(t *testing.T) {
	pool := setupIntegrationTest(t)
	ctx := context.Background()

	t.Run("embedding upsert keeps one row per student", func(t *testing.T) {
		repo := NewEmbeddingRepository(pool)

		require.NoError(t, repo.SaveEmbedding(ctx, "S1", "C1", []float64{1, 0, 0}))
		require.NoError(t, repo.SaveEmbedding(ctx, "S2", "C1", []float64{0, 1, 0}))
		require.NoError(t, repo.SaveEmbedding(ctx, "S1", "C2", []float64{0, 0, 1}))

		c1, err := repo.GetKnownEmbeddings(ctx, "C1")
		require.NoError(t, err)
		assert.Len(t, c1, 1)
		assert.Equal(t, []float64{0, 1, 0}, c1["S2"])

		c2, err := repo.GetKnownEmbeddings(ctx, "C2")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0, 1}, c2["S1"])

		var rows int
		require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM student_embeddings WHERE student_id = 'S1'").Scan(&rows))
		assert.Equal(t, 1, rows)
	})

	t.Run("attendance marks once per day", func(t *testing.T) {
		repo := NewAttendanceRepository(pool)
		at := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

		first, err := repo.Mark(ctx, domain.AttendanceMark{StudentID: "S1", Name: "Ana", At: at})
		require.NoError(t, err)
		assert.True(t, first)

		again, err := repo.Mark(ctx, domain.AttendanceMark{StudentID: "S1", Name: "Ana", At: at.Add(time.Hour)})
		require.NoError(t, err)
		assert.False(t, again)

		nextDay, err := repo.Mark(ctx, domain.AttendanceMark{StudentID: "S1", Name: "Ana", At: at.Add(24 * time.Hour)})
		require.NoError(t, err)
		assert.True(t, nextDay)

		entries, err := repo.ListByDate(ctx, at)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Ana", entries[0].Name)
		assert.True(t, entries[0].MarkedAt.Equal(at))
	})
}

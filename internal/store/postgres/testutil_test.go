//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/emperorhan/oilube/internal/store/postgres"
)

const snapshotStoreImage = "postgres:16-alpine"

// setupTestContainer boots a throwaway snapshot store and applies the
// bundled migrations. Everything is torn down with the test.
func setupTestContainer(t *testing.T) *postgres.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, snapshotStoreImage,
		tcpostgres.WithDatabase("oilube_it"),
		tcpostgres.WithUsername("oilube"),
		tcpostgres.WithPassword("oilube"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "start %s", snapshotStoreImage)
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate snapshot store: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.New(postgres.Config{
		URL:                dsn,
		MaxOpenConns:       4,
		MaxIdleConns:       1,
		ConnMaxLifetime:    time.Minute,
		StatementTimeoutMS: 10_000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(""))
	return db
}

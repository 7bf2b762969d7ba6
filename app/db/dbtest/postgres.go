//go:build integration

package dbtest

import (
	"context"
	"testing"

	"github.com/Black-And-White-Club/levelbot/app/db"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// NewPostgres starts a throwaway postgres container and returns a migrated
// connection to it. The container is terminated when the test ends.
func NewPostgres(tb testing.TB, sets ...*migrate.Migrations) *bun.DB {
	tb.Helper()

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("levelbot"),
		postgres.WithUsername("levelbot"),
		postgres.WithPassword("levelbot"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Fatalf("start postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("postgres connection string: %v", err)
	}

	bdb, err := db.Open(ctx, db.DriverPostgres, dsn)
	if err != nil {
		tb.Fatalf("open postgres: %v", err)
	}
	tb.Cleanup(func() { _ = bdb.Close() })

	if err := db.Migrate(ctx, bdb, sets...); err != nil {
		tb.Fatalf("migrate postgres: %v", err)
	}
	return bdb
}

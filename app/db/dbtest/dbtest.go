// Package dbtest opens throwaway databases for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/Black-And-White-Club/levelbot/app/db"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// NewSQLite returns a migrated in-memory sqlite database that is closed when the test ends.
func NewSQLite(tb testing.TB, sets ...*migrate.Migrations) *bun.DB {
	tb.Helper()

	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	bdb, err := db.OpenSQLite(ctx, dsn)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = bdb.Close() })

	if err := db.Migrate(ctx, bdb, sets...); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return bdb
}

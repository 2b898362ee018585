// Package pgtest hands repository tests a migrated, empty database. Tests are
// skipped when TEST_POSTGRES_DSN is not set or the server is unreachable.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ariefcatur/go-yard-listings/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE yard_cars, order_receipts`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

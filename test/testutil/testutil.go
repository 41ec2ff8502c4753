// Package testutil provides a shared, singleton Postgres container for
// meshauth integration tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pthm/meshauth/internal/pgxstore"
)

var (
	once sync.Once
	dsn  string
	err  error
)

// DSN returns the connection string for a lazily-started singleton
// Postgres container, shared across the whole test binary.
func DSN(tb testing.TB) string {
	tb.Helper()

	once.Do(func() {
		ctx := context.Background()
		container, startErr := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("meshauth"),
			postgres.WithUsername("meshauth"),
			postgres.WithPassword("meshauth"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if startErr != nil {
			err = fmt.Errorf("starting postgres container: %w", startErr)
			return
		}

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
	})

	require.NoError(tb, err)
	return dsn
}

// Adapter opens a fresh pgxstore.Adapter against the singleton
// container and applies the schema, tearing the pool down on test
// cleanup. Each call truncates every table first so tests don't see
// rows left by a previous test.
func Adapter(tb testing.TB) *pgxstore.Adapter {
	tb.Helper()

	ctx := context.Background()
	adapter, err := pgxstore.Open(ctx, DSN(tb))
	require.NoError(tb, err)
	tb.Cleanup(adapter.Close)

	require.NoError(tb, adapter.ApplySchema(ctx))
	_, err = adapter.Pool.Exec(ctx,
		`TRUNCATE rules, group_members, groups, authenticators, accounts RESTART IDENTITY CASCADE`)
	require.NoError(tb, err)

	return adapter
}

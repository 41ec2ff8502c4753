package pgxstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Adapter is the shared pgx connection pool every store in this
// package is built on. It exists as its own type so callers can
// Open/Close it independently of which stores they construct over it,
// and so the stores do not each carry their own pool-lifecycle logic.
type Adapter struct {
	Pool *pgxpool.Pool
}

// Open creates a pgxpool.Pool for dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Adapter{Pool: pool}, nil
}

// Close releases the pool's connections.
func (a *Adapter) Close() {
	a.Pool.Close()
}

// ApplySchema runs the embedded DDL. It is idempotent: every statement
// uses CREATE ... IF NOT EXISTS.
func (a *Adapter) ApplySchema(ctx context.Context) error {
	if _, err := a.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the slice of *pgxpool.Conn the stores use. Tests substitute
// a fake.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// acquireFunc hands out a connection for the duration of one call. The
// returned release func must be called exactly once.
type acquireFunc func(ctx context.Context) (querier, func(), error)

// poolAcquirer checks a connection out of the pool per call.
//
// Why acquire explicitly instead of calling pool.QueryRow directly?
//   - The stores are long-lived (they live as long as the hub), but a DB
//     connection should only be held for one statement. Acquire + deferred
//     Release makes that scope visible at every call site, and a panic
//     between the two still returns the connection to the pool.
func poolAcquirer(pool *pgxpool.Pool) acquireFunc {
	return func(ctx context.Context) (querier, func(), error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("acquire connection: %w", err)
		}
		return conn, conn.Release, nil
	}
}

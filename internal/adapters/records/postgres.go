package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// OpenPostgres connects a pgx pool to dsn and exposes it through database/sql.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := New(stdlib.OpenDBFromPool(pool), Postgres)
	s.closers = append(s.closers, pool.Close)
	return s, nil
}

// Open opens the store selected by driver.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case Postgres.Name:
		return OpenPostgres(ctx, dsn)
	case SQLite.Name:
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

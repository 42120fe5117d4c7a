// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/playqueue/internal/errs"
)

// PgxPool is the pool surface the repositories need.
// It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is the statement surface shared by the pool and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB owns the pool shared by the item repository and the auth limiter.
type DB struct{ Pool PgxPool }

// PoolOptions tune the connection pool. Zero fields keep pgxpool defaults.
type PoolOptions struct {
	MaxConns        int32
	MaxConnIdleTime time.Duration
}

// New opens a pool for dsn and pings it so a bad DSN fails at startup.
func New(ctx context.Context, dsn string, opts ...PoolOptions) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	for _, o := range opts {
		if o.MaxConns > 0 {
			cfg.MaxConns = o.MaxConns
		}
		if o.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = o.MaxConnIdleTime
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db := &DB{Pool: pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

const (
	constraintIdentifier = "items_owner_identifier_key"
	constraintPosition   = "items_owner_position_key"
)

// classify maps constraint and concurrency failures onto domain errors.
// A duplicate identifier is ErrAlreadyExists; a position clash (checked at
// commit), a serialization failure or a deadlock is ErrVersionConflict.
func classify(err error) error {
	var pg *pgconn.PgError
	if !errors.As(err, &pg) {
		return err
	}
	switch {
	case pg.Code == "23505" && pg.ConstraintName == constraintIdentifier:
		return fmt.Errorf("%s: %w", pg.ConstraintName, errs.ErrAlreadyExists)
	case pg.Code == "23505" && pg.ConstraintName == constraintPosition,
		pg.Code == "40001", pg.Code == "40P01":
		return fmt.Errorf("%s: %w", pg.Message, errs.ErrVersionConflict)
	}
	return err
}

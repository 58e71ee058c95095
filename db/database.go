package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the pgx connection pool with the transaction helpers used by
// the handlers and the scheduler.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

func NewDB(ctx context.Context, connString string, logger *zap.SugaredLogger) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{Pool: pool, logger: logger}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	return db.Pool.Acquire(ctx)
}

func (db *DB) BeginTx(ctx context.Context, conn *pgxpool.Conn) (pgx.Tx, error) {
	return conn.Begin(ctx)
}

func (db *DB) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

// RollbackTx is safe to defer after a commit, pgx reports the no-op case
// with ErrTxClosed which we swallow here.
func (db *DB) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err != nil && err != pgx.ErrTxClosed {
		db.logger.Errorf("Error in tx.Rollback: %v", err)
		return err
	}
	return nil
}

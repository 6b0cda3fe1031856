package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey int

const ambientTxKey ctxKey = iota

// WithTx begins a transaction, stores it in the context for repositories
// to pick up through TxFromContext, and commits when fn returns nil. Any
// error from fn rolls the whole unit back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, ambientTxKey, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TxFromContext returns the transaction WithTx stored, or nil when the
// caller is running outside one.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(ambientTxKey).(pgx.Tx)
	return tx
}

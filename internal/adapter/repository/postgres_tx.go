package repository

import (
	"context"
	"fmt"

	"rag-assistant/internal/domain"

	"github.com/jackc/pgx/v5"
)

type txKey struct{}

// InjectTx injects the transaction into the context
func InjectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// ExtractTx extracts the transaction from the context
func ExtractTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type postgresTransactionManager struct {
	pool txBeginner
}

// NewPostgresTransactionManager creates a new transaction manager.
func NewPostgresTransactionManager(pool txBeginner) domain.TransactionManager {
	return &postgresTransactionManager{pool: pool}
}

// RunInTx commits when fn returns nil and rolls back on error or panic.
// Calls nested inside an existing transaction reuse it.
func (tm *postgresTransactionManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ExtractTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(InjectTx(ctx, tx))
}

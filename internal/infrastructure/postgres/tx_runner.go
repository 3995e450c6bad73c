package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// DefaultMaxAttempts intentos por transacción cuando la config no define LEDGER_TX_MAX_ATTEMPTS.
const DefaultMaxAttempts = 5

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL serializable.
type TxRunner struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewTxRunner construye el runner con el pool y el tope de intentos ante conflictos.
func NewTxRunner(pool *pgxpool.Pool, maxAttempts int) *TxRunner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &TxRunner{pool: pool, maxAttempts: maxAttempts}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los fallos de serialización (40001) y deadlocks (40P01) reinician la transacción completa.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	attempts := 0
	op := func() error {
		attempts++
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if isSerializationFailure(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.maxAttempts-1)), ctx)

	err := backoff.Retry(op, b)
	if err != nil && isSerializationFailure(err) {
		return &domain.StoreConflictError{Attempts: attempts, Err: err}
	}
	return err
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos construye todos los repositorios sobre el mismo Querier (pool o tx).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Inventory: NewInventoryRepository(q),
		Ledger:    NewInventoryTransactionRepository(q),
		Vouchers:  NewVoucherRepository(q),
		Transfers: NewStockTransferRepository(q),
		Sales:     NewSaleRepository(q),
		Customers: NewCustomerRepository(q),
	}
}

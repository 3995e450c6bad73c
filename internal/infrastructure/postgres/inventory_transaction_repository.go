package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.InventoryTransactionRepository = (*InventoryTransactionRepo)(nil)

// InventoryTransactionRepo implementación del libro sobre PostgreSQL (usable con pool o tx).
type InventoryTransactionRepo struct {
	q Querier
}

// NewInventoryTransactionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryTransactionRepository(q Querier) *InventoryTransactionRepo {
	return &InventoryTransactionRepo{q: q}
}

const selectTransaction = `
	SELECT id, seq, voucher_id, sku, branch_id, delta, quantity_before, quantity_after,
	       cost_at_transaction, purchase_price, user_id, reason, created_at
	FROM inventory_transactions`

func scanTransaction(row pgx.Row) (*entity.InventoryTransaction, error) {
	var t entity.InventoryTransaction
	var userID *string
	if err := row.Scan(&t.ID, &t.Seq, &t.VoucherID, &t.SKU, &t.BranchID, &t.Delta,
		&t.QuantityBefore, &t.QuantityAfter, &t.CostAtTransaction, &t.PurchasePrice,
		&userID, &t.Reason, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.UserID = derefString(userID)
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*entity.InventoryTransaction, error) {
	defer rows.Close()
	var list []*entity.InventoryTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Create persiste una fila del libro; la secuencia la asigna la base.
func (r *InventoryTransactionRepo) Create(ctx context.Context, t *entity.InventoryTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_transactions (id, voucher_id, sku, branch_id, delta, quantity_before, quantity_after,
			cost_at_transaction, purchase_price, user_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		t.ID, t.VoucherID, t.SKU, t.BranchID, t.Delta, t.QuantityBefore, t.QuantityAfter,
		t.CostAtTransaction, t.PurchasePrice, nullString(t.UserID), t.Reason, t.CreatedAt,
	).Scan(&t.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("fila de libro duplicada para %s/%s/%s: %w", t.VoucherID, t.SKU, t.BranchID, err)
		}
		return fmt.Errorf("create inventory transaction: %w", err)
	}
	return nil
}

// ListByKey devuelve el libro completo de una clave en orden de secuencia.
func (r *InventoryTransactionRepo) ListByKey(ctx context.Context, sku, branchID string) ([]*entity.InventoryTransaction, error) {
	rows, err := r.q.Query(ctx, selectTransaction+` WHERE sku = $1 AND branch_id = $2 ORDER BY seq`, sku, branchID)
	if err != nil {
		return nil, fmt.Errorf("list ledger by key: %w", err)
	}
	return collectTransactions(rows)
}

// List lista filas del libro con filtros opcionales, más recientes primero.
func (r *InventoryTransactionRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.InventoryTransaction, error) {
	query := selectTransaction + ` WHERE 1=1`
	var args []any
	pos := 1
	add := func(clause string, v any) {
		query += fmt.Sprintf(clause, pos)
		args = append(args, v)
		pos++
	}
	if f.SKU != "" {
		add(" AND sku = $%d", f.SKU)
	}
	if f.BranchID != "" {
		add(" AND branch_id = $%d", f.BranchID)
	}
	if f.VoucherID != "" {
		add(" AND voucher_id = $%d", f.VoucherID)
	}
	if f.From != nil {
		add(" AND created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add(" AND created_at <= $%d", *f.To)
	}
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitArg(f.Limit), f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return collectTransactions(rows)
}

// SumDeltas suma los deltas del libro para una clave.
func (r *InventoryTransactionRepo) SumDeltas(ctx context.Context, sku, branchID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0)::bigint FROM inventory_transactions WHERE sku = $1 AND branch_id = $2`,
		sku, branchID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger deltas: %w", err)
	}
	return sum, nil
}

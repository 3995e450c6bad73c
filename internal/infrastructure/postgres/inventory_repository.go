package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

// InventoryRepo implementación de InventoryRepository sobre PostgreSQL (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador de inventario. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

const selectInventory = `
	SELECT sku, branch_id, stock_quantity, average_cost, last_updated
	FROM inventory`

func scanInventory(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	if err := row.Scan(&rec.SKU, &rec.BranchID, &rec.StockQuantity, &rec.AverageCost, &rec.LastUpdated); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get obtiene el stock y costo actual; sin fila devuelve el registro en cero.
func (r *InventoryRepo) Get(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error) {
	rec, err := scanInventory(r.q.QueryRow(ctx, selectInventory+` WHERE sku = $1 AND branch_id = $2`, sku, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.EmptyInventoryRecord(sku, branchID), nil
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return rec, nil
}

// GetForUpdate obtiene el registro y bloquea la fila para update (SELECT FOR UPDATE).
func (r *InventoryRepo) GetForUpdate(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error) {
	rec, err := scanInventory(r.q.QueryRow(ctx,
		selectInventory+` WHERE sku = $1 AND branch_id = $2 FOR UPDATE`, sku, branchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.EmptyInventoryRecord(sku, branchID), nil
		}
		return nil, fmt.Errorf("get inventory for update: %w", err)
	}
	return rec, nil
}

// GetManyForUpdate bloquea en una sola consulta todas las filas de los SKU (orden estable por sku).
// Las claves sin fila se devuelven en cero.
func (r *InventoryRepo) GetManyForUpdate(ctx context.Context, branchID string, skus []string) (map[string]*entity.InventoryRecord, error) {
	out := make(map[string]*entity.InventoryRecord, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx,
		selectInventory+` WHERE branch_id = $1 AND sku = ANY($2) ORDER BY sku FOR UPDATE`, branchID, skus)
	if err != nil {
		return nil, fmt.Errorf("get inventory batch: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out[rec.SKU] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get inventory batch: %w", err)
	}
	for _, sku := range skus {
		if _, ok := out[sku]; !ok {
			out[sku] = entity.EmptyInventoryRecord(sku, branchID)
		}
	}
	return out, nil
}

// Upsert inserta o actualiza stock y costo promedio (por sku y sucursal).
func (r *InventoryRepo) Upsert(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory (sku, branch_id, stock_quantity, average_cost, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sku, branch_id)
		DO UPDATE SET stock_quantity = EXCLUDED.stock_quantity,
		              average_cost = EXCLUDED.average_cost,
		              last_updated = EXCLUDED.last_updated`
	_, err := r.q.Exec(ctx, query, rec.SKU, rec.BranchID, rec.StockQuantity, rec.AverageCost, rec.LastUpdated)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("upsert inventory %s/%s: %w", rec.SKU, rec.BranchID, domain.ErrInsufficientStock)
		}
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

// ListByBranch lista el inventario de una sucursal ordenado por SKU.
func (r *InventoryRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.InventoryRecord, error) {
	rows, err := r.q.Query(ctx,
		selectInventory+` WHERE branch_id = $1 ORDER BY sku LIMIT $2 OFFSET $3`, branchID, limitArg(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryRecord
	for rows.Next() {
		rec, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.StockTransferRepository = (*StockTransferRepo)(nil)

// StockTransferRepo implementación de StockTransferRepository (usable con pool o tx).
type StockTransferRepo struct {
	q Querier
}

// NewStockTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockTransferRepository(q Querier) *StockTransferRepo {
	return &StockTransferRepo{q: q}
}

const selectTransfer = `
	SELECT id, source_branch_id, destination_branch_id, items, status, notes, created_by,
	       created_at, updated_at, dispatch_info, receipt_info, cancellation_info
	FROM stock_transfers`

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	var notes *string
	if err := row.Scan(&t.ID, &t.SourceBranchID, &t.DestinationBranchID, &t.Items, &t.Status, &notes,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.DispatchInfo, &t.ReceiptInfo, &t.CancellationInfo); err != nil {
		return nil, err
	}
	t.Notes = derefString(notes)
	return &t, nil
}

func (r *StockTransferRepo) getOne(ctx context.Context, query, id string) (*entity.StockTransfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// Create persiste un traslado nuevo.
func (r *StockTransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		INSERT INTO stock_transfers (id, source_branch_id, destination_branch_id, items, status, notes,
			created_by, created_at, updated_at, dispatch_info, receipt_info, cancellation_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.SourceBranchID, t.DestinationBranchID, t.Items, t.Status, nullString(t.Notes),
		t.CreatedBy, t.CreatedAt, t.UpdatedAt, t.DispatchInfo, t.ReceiptInfo, t.CancellationInfo,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("traslado %s ya existe: %w", t.ID, err)
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID obtiene un traslado por ID.
func (r *StockTransferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.getOne(ctx, selectTransfer+` WHERE id = $1`, id)
}

// GetForUpdate obtiene el traslado y bloquea la fila (SELECT FOR UPDATE).
func (r *StockTransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.getOne(ctx, selectTransfer+` WHERE id = $1 FOR UPDATE`, id)
}

// Update guarda estado, ítems (costo capturado) y sellos de fase.
func (r *StockTransferRepo) Update(ctx context.Context, t *entity.StockTransfer) error {
	_, err := r.q.Exec(ctx, `
		UPDATE stock_transfers
		SET items = $2, status = $3, updated_at = $4, dispatch_info = $5, receipt_info = $6, cancellation_info = $7
		WHERE id = $1`,
		t.ID, t.Items, t.Status, t.UpdatedAt, t.DispatchInfo, t.ReceiptInfo, t.CancellationInfo)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return nil
}

// CancelIfPending es un compare-and-set sobre status: una sola sentencia, sin transacción explícita.
func (r *StockTransferRepo) CancelIfPending(ctx context.Context, id string, info entity.TransferCancellation) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE stock_transfers
		SET status = $2, cancellation_info = $3, updated_at = $4
		WHERE id = $1 AND status = $5`,
		id, entity.TransferCancelled, info, info.At, entity.TransferPending)
	if err != nil {
		return false, fmt.Errorf("cancel transfer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListBySource lista traslados salientes de una sucursal, más recientes primero.
func (r *StockTransferRepo) ListBySource(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	return r.listBy(ctx, "source_branch_id", branchID, statuses)
}

// ListByDestination lista traslados entrantes de una sucursal, más recientes primero.
func (r *StockTransferRepo) ListByDestination(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	return r.listBy(ctx, "destination_branch_id", branchID, statuses)
}

func (r *StockTransferRepo) listBy(ctx context.Context, column, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	query := selectTransfer + ` WHERE ` + column + ` = $1`
	args := []any{branchID}
	if len(statuses) > 0 {
		ss := make([]string, len(statuses))
		for i, s := range statuses {
			ss[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, ss)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

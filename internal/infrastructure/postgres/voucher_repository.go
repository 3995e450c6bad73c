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

var _ repository.VoucherRepository = (*VoucherRepo)(nil)

// VoucherRepo implementación de VoucherRepository (usable con pool o tx).
// Ítems, metadatos y anulación se guardan como jsonb.
type VoucherRepo struct {
	q Querier
}

// NewVoucherRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVoucherRepository(q Querier) *VoucherRepo {
	return &VoucherRepo{q: q}
}

const selectVoucher = `
	SELECT id, type, branch_id, created_by, status, items, voucher_date, notes, reference,
	       metadata, created_at, reverses_voucher_id, cancellation
	FROM inventory_vouchers`

func scanVoucher(row pgx.Row) (*entity.Voucher, error) {
	var v entity.Voucher
	var notes, reference, reverses *string
	if err := row.Scan(&v.ID, &v.Type, &v.BranchID, &v.CreatedBy, &v.Status, &v.Items, &v.VoucherDate,
		&notes, &reference, &v.Metadata, &v.CreatedAt, &reverses, &v.Cancellation); err != nil {
		return nil, err
	}
	v.Notes = derefString(notes)
	v.Reference = derefString(reference)
	v.ReversesVoucherID = derefString(reverses)
	return &v, nil
}

func collectVouchers(rows pgx.Rows) ([]*entity.Voucher, error) {
	defer rows.Close()
	var list []*entity.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Create persiste un voucher. El ID es llave primaria: un duplicado es un error.
func (r *VoucherRepo) Create(ctx context.Context, v *entity.Voucher) error {
	query := `
		INSERT INTO inventory_vouchers (id, type, branch_id, created_by, status, items, voucher_date, notes,
			reference, metadata, created_at, reverses_voucher_id, cancellation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		v.ID, v.Type, v.BranchID, v.CreatedBy, v.Status, v.Items, v.VoucherDate, nullString(v.Notes),
		nullString(v.Reference), v.Metadata, v.CreatedAt, nullString(v.ReversesVoucherID), v.Cancellation,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("voucher %s ya existe: %w", v.ID, err)
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// GetByID obtiene un voucher por ID.
func (r *VoucherRepo) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	v, err := scanVoucher(r.q.QueryRow(ctx, selectVoucher+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return v, nil
}

// GetForUpdate obtiene el voucher y bloquea la fila (SELECT FOR UPDATE).
func (r *VoucherRepo) GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error) {
	v, err := scanVoucher(r.q.QueryRow(ctx, selectVoucher+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher for update: %w", err)
	}
	return v, nil
}

// GetByIDs obtiene varios vouchers; los IDs inexistentes no aparecen en el mapa.
func (r *VoucherRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Voucher, error) {
	out := make(map[string]*entity.Voucher, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, selectVoucher+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get vouchers: %w", err)
	}
	list, err := collectVouchers(rows)
	if err != nil {
		return nil, err
	}
	for _, v := range list {
		out[v.ID] = v
	}
	return out, nil
}

// MarkCancelled cambia el estado a CANCELLED solo si seguía COMPLETED.
func (r *VoucherRepo) MarkCancelled(ctx context.Context, id string, info entity.VoucherCancellation) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventory_vouchers SET status = $2, cancellation = $3
		WHERE id = $1 AND status = $4`,
		id, entity.VoucherStatusCancelled, info, entity.VoucherStatusCompleted)
	if err != nil {
		return fmt.Errorf("cancel voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewInvalidStateError("voucher", id, "desconocido", string(entity.VoucherStatusCompleted))
	}
	return nil
}

// List lista vouchers con filtros opcionales, más recientes primero.
func (r *VoucherRepo) List(ctx context.Context, f repository.VoucherFilter) ([]*entity.Voucher, error) {
	query := selectVoucher + ` WHERE 1=1`
	var args []any
	pos := 1
	if f.BranchID != "" {
		query += fmt.Sprintf(" AND branch_id = $%d", pos)
		args = append(args, f.BranchID)
		pos++
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		query += fmt.Sprintf(" AND type = ANY($%d)", pos)
		args = append(args, types)
		pos++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, f.Status)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limitArg(f.Limit), f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return collectVouchers(rows)
}

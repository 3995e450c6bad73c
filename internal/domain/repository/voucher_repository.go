package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// VoucherFilter filtros para listar vouchers.
type VoucherFilter struct {
	BranchID string
	Types    []entity.VoucherType
	Status   entity.VoucherStatus
	Limit    int
	Offset   int
}

// VoucherRepository define el puerto de persistencia de vouchers.
type VoucherRepository interface {
	Create(ctx context.Context, voucher *entity.Voucher) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Voucher, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Voucher, error)
	// MarkCancelled pasa el voucher a CANCELLED con sus metadatos; no modifica líneas.
	MarkCancelled(ctx context.Context, id string, info entity.VoucherCancellation) error
	List(ctx context.Context, filter VoucherFilter) ([]*entity.Voucher, error)
}

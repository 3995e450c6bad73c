package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// StockTransferRepository define el puerto de persistencia de traslados.
type StockTransferRepository interface {
	Create(ctx context.Context, transfer *entity.StockTransfer) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	// Update guarda estado, ítems y sellos de fase.
	Update(ctx context.Context, transfer *entity.StockTransfer) error
	// CancelIfPending cancela en una sola sentencia condicionada a status = PENDING.
	// Devuelve false si el traslado no existe o ya no estaba pendiente.
	CancelIfPending(ctx context.Context, id string, info entity.TransferCancellation) (bool, error)
	ListBySource(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error)
	ListByDestination(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error)
}

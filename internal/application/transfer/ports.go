package transfer

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// DeliveryNoteGenerator genera la remisión (PDF) de un traslado.
type DeliveryNoteGenerator interface {
	GenerateDeliveryNote(ctx context.Context, transfer *entity.StockTransfer) ([]byte, error)
}

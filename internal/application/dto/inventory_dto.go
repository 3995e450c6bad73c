package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// InventoryResponse stock y costo promedio de un SKU en una sucursal.
type InventoryResponse struct {
	SKU           string          `json:"sku"`
	BranchID      string          `json:"branch_id"`
	StockQuantity int64           `json:"stock_quantity"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// ToInventoryResponse mapea la entidad a la respuesta.
func ToInventoryResponse(r *entity.InventoryRecord) InventoryResponse {
	return InventoryResponse{
		SKU:           r.SKU,
		BranchID:      r.BranchID,
		StockQuantity: r.StockQuantity,
		AverageCost:   r.AverageCost,
		LastUpdated:   r.LastUpdated,
	}
}

// LedgerRowResponse fila del libro de inventario.
type LedgerRowResponse struct {
	ID                string           `json:"id"`
	Seq               int64            `json:"seq"`
	VoucherID         string           `json:"voucher_id"`
	SKU               string           `json:"sku"`
	BranchID          string           `json:"branch_id"`
	Delta             int64            `json:"delta"`
	QuantityBefore    int64            `json:"quantity_before"`
	QuantityAfter     int64            `json:"quantity_after"`
	CostAtTransaction decimal.Decimal  `json:"cost_at_transaction"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price,omitempty"`
	UserID            string           `json:"user_id,omitempty"`
	Reason            string           `json:"reason"`
	CreatedAt         time.Time        `json:"created_at"`
}

// ToLedgerRowResponse mapea la fila del libro.
func ToLedgerRowResponse(t *entity.InventoryTransaction) LedgerRowResponse {
	return LedgerRowResponse(*t)
}

// LedgerCheckResponse resultado de la verificación stock == suma de deltas.
type LedgerCheckResponse struct {
	SKU         string `json:"sku"`
	BranchID    string `json:"branch_id"`
	Stock       int64  `json:"stock"`
	SumOfDeltas int64  `json:"sum_of_deltas"`
	Consistent  bool   `json:"consistent"`
}

// EffectivePositionResponse posición recalculada excluyendo vouchers anulados y sus reversiones.
type EffectivePositionResponse struct {
	SKU              string          `json:"sku"`
	BranchID         string          `json:"branch_id"`
	StockQuantity    int64           `json:"stock_quantity"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	RowsApplied      int             `json:"rows_applied"`
	ExcludedVouchers []string        `json:"excluded_vouchers"`
}

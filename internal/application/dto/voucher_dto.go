package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// VoucherItemRequest línea del voucher. Quantity es el delta con signo;
// en ajustes se envía actual_quantity (conteo físico).
type VoucherItemRequest struct {
	SKU            string           `json:"sku" validate:"required,max=64"`
	Quantity       int64            `json:"quantity"`
	ActualQuantity *int64           `json:"actual_quantity,omitempty" validate:"omitempty,min=0"`
	PurchasePrice  *decimal.Decimal `json:"purchase_price,omitempty"`
}

// CreateVoucherRequest body para POST /api/vouchers. La sucursal sale del token si no se envía.
type CreateVoucherRequest struct {
	Type      string               `json:"type" validate:"required,oneof=GOODS_RECEIPT GOODS_ISSUE ADJUSTMENT_STOCKTAKE ADJUSTMENT_DAMAGE ADJUSTMENT_CORRECTION"`
	BranchID  string               `json:"branch_id"`
	Items     []VoucherItemRequest `json:"items" validate:"required,min=1,unique=SKU,dive"`
	Date      *time.Time           `json:"date,omitempty"`
	Notes     string               `json:"notes,omitempty" validate:"max=500"`
	Reference string               `json:"reference,omitempty" validate:"max=100"`
	Metadata  map[string]string    `json:"metadata,omitempty"`
}

// LineItems convierte las líneas del request al tipo de dominio.
func (r CreateVoucherRequest) LineItems() []entity.LineItem {
	items := make([]entity.LineItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = entity.LineItem{
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			ActualQuantity: it.ActualQuantity,
			PurchasePrice:  it.PurchasePrice,
		}
	}
	return items
}

// CancelVoucherRequest body para POST /api/vouchers/:id/cancel.
type CancelVoucherRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// VoucherItemResponse línea aplicada.
type VoucherItemResponse struct {
	SKU               string           `json:"sku"`
	Quantity          int64            `json:"quantity"`
	ActualQuantity    *int64           `json:"actual_quantity,omitempty"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price,omitempty"`
	CostAtTransaction decimal.Decimal  `json:"cost_at_transaction"`
	TransactionID     string           `json:"transaction_id"`
}

// VoucherCancellationResponse metadatos de anulación.
type VoucherCancellationResponse struct {
	UserID            string    `json:"user_id"`
	At                time.Time `json:"at"`
	Reason            string    `json:"reason,omitempty"`
	ReversalVoucherID string    `json:"reversal_voucher_id"`
}

// VoucherResponse respuesta de voucher.
type VoucherResponse struct {
	ID                string                       `json:"id"`
	Type              string                       `json:"type"`
	BranchID          string                       `json:"branch_id"`
	CreatedBy         string                       `json:"created_by"`
	Status            string                       `json:"status"`
	Items             []VoucherItemResponse        `json:"items"`
	VoucherDate       time.Time                    `json:"voucher_date"`
	Notes             string                       `json:"notes,omitempty"`
	Reference         string                       `json:"reference,omitempty"`
	Metadata          map[string]string            `json:"metadata,omitempty"`
	CreatedAt         time.Time                    `json:"created_at"`
	ReversesVoucherID string                       `json:"reverses_voucher_id,omitempty"`
	Cancellation      *VoucherCancellationResponse `json:"cancellation,omitempty"`
}

// CreateVoucherResponse respuesta de POST /api/vouchers. Si no hubo cambios no se crea voucher.
type CreateVoucherResponse struct {
	NoChanges bool             `json:"no_changes"`
	Voucher   *VoucherResponse `json:"voucher,omitempty"`
}

// ToVoucherResponse mapea la entidad a la respuesta.
func ToVoucherResponse(v *entity.Voucher) VoucherResponse {
	out := VoucherResponse{
		ID:                v.ID,
		Type:              string(v.Type),
		BranchID:          v.BranchID,
		CreatedBy:         v.CreatedBy,
		Status:            string(v.Status),
		Items:             make([]VoucherItemResponse, len(v.Items)),
		VoucherDate:       v.VoucherDate,
		Notes:             v.Notes,
		Reference:         v.Reference,
		Metadata:          v.Metadata,
		CreatedAt:         v.CreatedAt,
		ReversesVoucherID: v.ReversesVoucherID,
	}
	for i, it := range v.Items {
		out.Items[i] = VoucherItemResponse(it)
	}
	if v.Cancellation != nil {
		c := VoucherCancellationResponse(*v.Cancellation)
		out.Cancellation = &c
	}
	return out
}

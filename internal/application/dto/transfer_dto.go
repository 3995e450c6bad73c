package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// TransferItemRequest línea del traslado (cantidad sin signo).
type TransferItemRequest struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// CreateTransferRequest body para POST /api/transfers. El origen sale del token si no se envía.
type CreateTransferRequest struct {
	SourceBranchID      string                `json:"source_branch_id"`
	DestinationBranchID string                `json:"destination_branch_id" validate:"required"`
	Items               []TransferItemRequest `json:"items" validate:"required,min=1,unique=SKU,dive"`
	Notes               string                `json:"notes,omitempty" validate:"max=500"`
}

// CancelTransferRequest body para POST /api/transfers/:id/cancel.
type CancelTransferRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TransferItemResponse línea del traslado con el costo capturado al despachar.
type TransferItemResponse struct {
	SKU      string           `json:"sku"`
	Quantity int64            `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

// TransferStampResponse sello de despacho o recepción.
type TransferStampResponse struct {
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
	VoucherID string    `json:"voucher_id"`
}

// TransferCancellationResponse sello de cancelación.
type TransferCancellationResponse struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// TransferResponse respuesta de traslado.
type TransferResponse struct {
	ID                  string                        `json:"id"`
	SourceBranchID      string                        `json:"source_branch_id"`
	DestinationBranchID string                        `json:"destination_branch_id"`
	Items               []TransferItemResponse        `json:"items"`
	Status              string                        `json:"status"`
	Notes               string                        `json:"notes,omitempty"`
	CreatedBy           string                        `json:"created_by"`
	CreatedAt           time.Time                     `json:"created_at"`
	UpdatedAt           time.Time                     `json:"updated_at"`
	DispatchInfo        *TransferStampResponse        `json:"dispatch_info"`
	ReceiptInfo         *TransferStampResponse        `json:"receipt_info"`
	CancellationInfo    *TransferCancellationResponse `json:"cancellation_info"`
}

// ToTransferResponse mapea la entidad a la respuesta.
func ToTransferResponse(t *entity.StockTransfer) TransferResponse {
	out := TransferResponse{
		ID:                  t.ID,
		SourceBranchID:      t.SourceBranchID,
		DestinationBranchID: t.DestinationBranchID,
		Items:               make([]TransferItemResponse, len(t.Items)),
		Status:              string(t.Status),
		Notes:               t.Notes,
		CreatedBy:           t.CreatedBy,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	for i, it := range t.Items {
		out.Items[i] = TransferItemResponse(it)
	}
	if t.DispatchInfo != nil {
		s := TransferStampResponse(*t.DispatchInfo)
		out.DispatchInfo = &s
	}
	if t.ReceiptInfo != nil {
		s := TransferStampResponse(*t.ReceiptInfo)
		out.ReceiptInfo = &s
	}
	if t.CancellationInfo != nil {
		c := TransferCancellationResponse(*t.CancellationInfo)
		out.CancellationInfo = &c
	}
	return out
}

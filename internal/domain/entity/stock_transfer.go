package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estados del traslado entre sucursales.
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferInTransit TransferStatus = "IN_TRANSIT"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferCancelled TransferStatus = "CANCELLED"
)

// Valid reporta si el estado es conocido.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferInTransit, TransferCompleted, TransferCancelled:
		return true
	}
	return false
}

// TransferItem línea del traslado. UnitCost se fija al despachar con el costo promedio del origen.
type TransferItem struct {
	SKU      string           `json:"sku"`
	Quantity int64            `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
}

// TransferStamp registra quién y cuándo ejecutó una fase, y el voucher generado.
type TransferStamp struct {
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
	VoucherID string    `json:"voucher_id"`
}

// TransferCancellation registra la cancelación de un traslado pendiente.
type TransferCancellation struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// StockTransfer traslado en dos fases: despacho (débito en origen) y recepción (crédito en destino).
type StockTransfer struct {
	ID                  string
	SourceBranchID      string
	DestinationBranchID string
	Items               []TransferItem
	Status              TransferStatus
	Notes               string
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DispatchInfo        *TransferStamp
	ReceiptInfo         *TransferStamp
	CancellationInfo    *TransferCancellation
}

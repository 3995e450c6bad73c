package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// VoucherType tipo de comprobante de inventario.
type VoucherType string

// Tipos de voucher. Las reversiones se nombran REVERSAL_<tipo original>.
const (
	VoucherGoodsReceipt         VoucherType = "GOODS_RECEIPT"
	VoucherGoodsIssue           VoucherType = "GOODS_ISSUE"
	VoucherAdjustmentStocktake  VoucherType = "ADJUSTMENT_STOCKTAKE"
	VoucherAdjustmentDamage     VoucherType = "ADJUSTMENT_DAMAGE"
	VoucherAdjustmentCorrection VoucherType = "ADJUSTMENT_CORRECTION"

	reversalPrefix   = "REVERSAL_"
	adjustmentPrefix = "ADJUSTMENT_"
)

// IsAdjustment indica si el tipo recibe cantidades absolutas (conteo físico).
func (t VoucherType) IsAdjustment() bool {
	return strings.HasPrefix(string(t), adjustmentPrefix)
}

// IsReversal indica si el voucher compensa a otro.
func (t VoucherType) IsReversal() bool {
	return strings.HasPrefix(string(t), reversalPrefix)
}

// Reversal devuelve el tipo de la reversión de t.
func (t VoucherType) Reversal() VoucherType {
	return VoucherType(reversalPrefix + string(t))
}

// Valid reporta si el tipo es uno de los conocidos o una reversión de ellos.
func (t VoucherType) Valid() bool {
	base := VoucherType(strings.TrimPrefix(string(t), reversalPrefix))
	switch base {
	case VoucherGoodsReceipt, VoucherGoodsIssue,
		VoucherAdjustmentStocktake, VoucherAdjustmentDamage, VoucherAdjustmentCorrection:
		return true
	}
	return false
}

// VoucherStatus estado del voucher. CANCELLED es terminal.
type VoucherStatus string

const (
	VoucherStatusCompleted VoucherStatus = "COMPLETED"
	VoucherStatusCancelled VoucherStatus = "CANCELLED"
)

// LineItem es la línea de entrada de un voucher.
// Quantity es el delta con signo; en ajustes se usa ActualQuantity (conteo absoluto).
type LineItem struct {
	SKU            string
	Quantity       int64
	ActualQuantity *int64
	PurchasePrice  *decimal.Decimal
}

// VoucherItem es la línea aplicada y guardada en el voucher.
type VoucherItem struct {
	SKU               string           `json:"sku"`
	Quantity          int64            `json:"quantity"` // delta aplicado
	ActualQuantity    *int64           `json:"actual_quantity,omitempty"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price,omitempty"`
	CostAtTransaction decimal.Decimal  `json:"cost_at_transaction"`
	TransactionID     string           `json:"transaction_id"`
}

// VoucherCancellation metadatos de la anulación.
type VoucherCancellation struct {
	UserID            string    `json:"user_id"`
	At                time.Time `json:"at"`
	Reason            string    `json:"reason,omitempty"`
	ReversalVoucherID string    `json:"reversal_voucher_id"`
}

// MetadataTransferID marca los vouchers de un traslado; solo el orquestador los compensa.
const MetadataTransferID = "transfer_id"

// Voucher es el registro auditable de un evento de inventario y sus filas de libro.
type Voucher struct {
	ID                string
	Type              VoucherType
	BranchID          string
	CreatedBy         string
	Status            VoucherStatus
	Items             []VoucherItem
	VoucherDate       time.Time
	Notes             string
	Reference         string
	Metadata          map[string]string
	CreatedAt         time.Time
	ReversesVoucherID string
	Cancellation      *VoucherCancellation
}

// TransferID devuelve el traslado dueño del voucher, o "" si no pertenece a ninguno.
func (v *Voucher) TransferID() string {
	return v.Metadata[MetadataTransferID]
}

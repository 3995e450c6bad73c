package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos registrados en el libro de inventario.
const (
	ReasonVoucher = "VOUCHER"
	ReasonSale    = "SALE"
	ReasonDirect  = "DIRECT"
)

// InventoryTransaction es una fila inmutable del libro de inventario.
// Una sola fila por (VoucherID, SKU, BranchID); nunca se actualiza ni se borra.
// VoucherID guarda el ID del voucher o, para ventas, el ID de la orden.
type InventoryTransaction struct {
	ID                string
	Seq               int64 // secuencia del almacén, usada para reproducir el libro en orden
	VoucherID         string
	SKU               string
	BranchID          string
	Delta             int64
	QuantityBefore    int64
	QuantityAfter     int64
	CostAtTransaction decimal.Decimal  // costo promedio vigente antes de aplicar el movimiento
	PurchasePrice     *decimal.Decimal // precio de entrada, solo si el movimiento lo trajo
	UserID            string
	Reason            string
	CreatedAt         time.Time
}

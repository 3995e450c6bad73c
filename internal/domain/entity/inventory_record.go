package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord representa el stock y el costo promedio de un SKU en una sucursal.
// Clave: SKU + BranchID. Un registro inexistente equivale a stock 0 y costo 0.
type InventoryRecord struct {
	SKU           string
	BranchID      string
	StockQuantity int64
	AverageCost   decimal.Decimal
	LastUpdated   time.Time
}

// EmptyInventoryRecord devuelve el registro en cero para una clave sin historial.
func EmptyInventoryRecord(sku, branchID string) *InventoryRecord {
	return &InventoryRecord{SKU: sku, BranchID: branchID, AverageCost: decimal.Zero}
}

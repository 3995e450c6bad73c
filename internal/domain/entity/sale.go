package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatusCompleted es el único estado de una venta liquidada.
const SaleStatusCompleted = "COMPLETED"

// SaleItem línea finalizada de la venta, con el costo real tomado al descontar stock.
type SaleItem struct {
	SKU            string          `json:"sku"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineSubtotal   decimal.Decimal `json:"line_subtotal"`
	AutoDiscount   decimal.Decimal `json:"auto_discount"`
	ManualDiscount decimal.Decimal `json:"manual_discount"`
	LineTotal      decimal.Decimal `json:"line_total"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	COGS           decimal.Decimal `json:"cogs"`
}

// Sale registro inmutable de la orden liquidada (colección transactions).
type Sale struct {
	ID                  string
	BranchID            string
	CashierID           string
	CustomerID          string
	Items               []SaleItem
	Subtotal            decimal.Decimal
	TotalAutoDiscount   decimal.Decimal
	TotalManualDiscount decimal.Decimal
	GrandTotal          decimal.Decimal
	TotalCOGS           decimal.Decimal
	PromotionRef        string
	PointsEarned        int64
	Status              string
	CreatedAt           time.Time
}

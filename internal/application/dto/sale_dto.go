package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// SaleLineRequest línea del carrito con precio ya resuelto.
type SaleLineRequest struct {
	SKU          string          `json:"sku" validate:"required,max=64"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"gte=0"`
	AutoDiscount decimal.Decimal `json:"auto_discount" validate:"gte=0"`
}

// SettleSaleRequest body para POST /api/sales. La sucursal y el cajero salen del token.
type SettleSaleRequest struct {
	OrderID               string            `json:"order_id,omitempty" validate:"max=64"`
	CustomerID            string            `json:"customer_id,omitempty"`
	Items                 []SaleLineRequest `json:"items" validate:"required,min=1,unique=SKU,dive"`
	ManualDiscountAmount  decimal.Decimal   `json:"manual_discount_amount" validate:"gte=0"`
	ManualDiscountPercent decimal.Decimal   `json:"manual_discount_percent" validate:"gte=0,lte=100"`
	PromotionRef          string            `json:"promotion_ref,omitempty"`
}

// SaleItemResponse línea liquidada.
type SaleItemResponse struct {
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

// SaleResponse venta liquidada.
type SaleResponse struct {
	ID                  string             `json:"id"`
	BranchID            string             `json:"branch_id"`
	CashierID           string             `json:"cashier_id"`
	CustomerID          string             `json:"customer_id,omitempty"`
	Items               []SaleItemResponse `json:"items"`
	Subtotal            decimal.Decimal    `json:"subtotal"`
	TotalAutoDiscount   decimal.Decimal    `json:"total_auto_discount"`
	TotalManualDiscount decimal.Decimal    `json:"total_manual_discount"`
	GrandTotal          decimal.Decimal    `json:"grand_total"`
	TotalCOGS           decimal.Decimal    `json:"total_cogs"`
	PromotionRef        string             `json:"promotion_ref,omitempty"`
	PointsEarned        int64              `json:"points_earned"`
	Status              string             `json:"status"`
	CreatedAt           time.Time          `json:"created_at"`
}

// ToSaleResponse mapea la entidad a la respuesta.
func ToSaleResponse(s *entity.Sale) SaleResponse {
	out := SaleResponse{
		ID:                  s.ID,
		BranchID:            s.BranchID,
		CashierID:           s.CashierID,
		CustomerID:          s.CustomerID,
		Items:               make([]SaleItemResponse, len(s.Items)),
		Subtotal:            s.Subtotal,
		TotalAutoDiscount:   s.TotalAutoDiscount,
		TotalManualDiscount: s.TotalManualDiscount,
		GrandTotal:          s.GrandTotal,
		TotalCOGS:           s.TotalCOGS,
		PromotionRef:        s.PromotionRef,
		PointsEarned:        s.PointsEarned,
		Status:              s.Status,
		CreatedAt:           s.CreatedAt,
	}
	for i, it := range s.Items {
		out.Items[i] = SaleItemResponse(it)
	}
	return out
}

package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// CartItem línea del carrito antes de resolver precios. AutoDiscount es el monto ya calculado
// por el evaluador de promociones para la línea completa.
type CartItem struct {
	SKU          string
	Quantity     int64
	UnitPrice    decimal.Decimal
	AutoDiscount decimal.Decimal
}

// ManualDiscountInput descuento manual del cajero: monto fijo y/o porcentaje sobre el total tras descuentos automáticos.
type ManualDiscountInput struct {
	Amount  decimal.Decimal
	Percent decimal.Decimal
}

// PricedLine línea con precio resuelto.
type PricedLine struct {
	SKU          string
	Quantity     int64
	UnitPrice    decimal.Decimal
	LineSubtotal decimal.Decimal
	AutoDiscount decimal.Decimal
}

// PricedCart carrito resuelto por el evaluador de precios.
type PricedCart struct {
	Items               []PricedLine
	Subtotal            decimal.Decimal
	TotalAutoDiscount   decimal.Decimal
	TotalManualDiscount decimal.Decimal
	GrandTotal          decimal.Decimal
}

// PricingResolver evaluador de precios y promociones (colaborador externo).
type PricingResolver interface {
	ResolveCartPricing(ctx context.Context, items []CartItem, customerID string, manual ManualDiscountInput) (*PricedCart, error)
}

// CustomerStatsUpdater actualiza gasto y puntos del cliente dentro de la transacción de la orden.
type CustomerStatsUpdater interface {
	UpdateCustomerStats(ctx context.Context, customers repository.CustomerRepository, customerID string, amountDelta decimal.Decimal, pointsDelta int64) error
}

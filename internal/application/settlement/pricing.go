package settlement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ListPriceResolver resuelve el carrito con los precios y descuentos automáticos que ya trae
// cada línea. Se usa cuando no hay un evaluador de promociones externo.
type ListPriceResolver struct{}

// ResolveCartPricing calcula subtotales y aplica el descuento manual (monto + porcentaje),
// acotado al total tras descuentos automáticos.
func (ListPriceResolver) ResolveCartPricing(_ context.Context, items []CartItem, _ string, manual ManualDiscountInput) (*PricedCart, error) {
	if manual.Amount.IsNegative() {
		return nil, domain.NewValidationError("manual_discount_amount", "debe ser >= 0")
	}
	if manual.Percent.IsNegative() || manual.Percent.GreaterThan(hundred) {
		return nil, domain.NewValidationError("manual_discount_percent", "debe estar entre 0 y 100")
	}

	cart := &PricedCart{Items: make([]PricedLine, len(items))}
	for i, it := range items {
		if it.UnitPrice.IsNegative() {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "debe ser >= 0")
		}
		if it.AutoDiscount.IsNegative() {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].auto_discount", i), "debe ser >= 0")
		}
		sub := it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)).Round(2)
		auto := decimal.Min(it.AutoDiscount, sub)
		cart.Items[i] = PricedLine{
			SKU:          it.SKU,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			LineSubtotal: sub,
			AutoDiscount: auto,
		}
		cart.Subtotal = cart.Subtotal.Add(sub)
		cart.TotalAutoDiscount = cart.TotalAutoDiscount.Add(auto)
	}

	afterAuto := cart.Subtotal.Sub(cart.TotalAutoDiscount)
	totalManual := manual.Amount.Add(afterAuto.Mul(manual.Percent).Div(hundred)).Round(2)
	cart.TotalManualDiscount = decimal.Min(totalManual, afterAuto)
	cart.GrandTotal = afterAuto.Sub(cart.TotalManualDiscount)
	return cart, nil
}

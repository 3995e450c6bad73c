package inventory

import "github.com/shopspring/decimal"

// CostScale decimales del costo promedio; coincide con NUMERIC(18,6) en PostgreSQL.
const CostScale = 6

// CostCalculator implementa la lógica de costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// redondeado a CostScale decimales, igual en memoria y en PostgreSQL.
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum).Round(CostScale)
}

// Movement es el resultado de aplicar un delta a un registro (stock, costo).
type Movement struct {
	QuantityBefore int64
	QuantityAfter  int64
	CostBefore     decimal.Decimal
	CostAfter      decimal.Decimal
}

// MaxStock tope de unidades por registro. Con |delta| y stock acotados, qty+delta no desborda int64.
const MaxStock int64 = 1_000_000_000_000

// Apply calcula el nuevo stock y costo promedio para un delta con signo.
// Solo los deltas positivos con precio de compra (>= 0) recalculan el costo; el resto lo conserva.
// ok es false si el resultado dejaría el stock en negativo o por encima de MaxStock.
func Apply(qty int64, avgCost decimal.Decimal, delta int64, price *decimal.Decimal) (Movement, bool) {
	m := Movement{
		QuantityBefore: qty,
		QuantityAfter:  qty,
		CostBefore:     avgCost,
		CostAfter:      avgCost,
	}
	if delta > MaxStock || delta < -MaxStock || qty > MaxStock {
		return m, false
	}
	m.QuantityAfter = qty + delta
	if m.QuantityAfter < 0 || m.QuantityAfter > MaxStock {
		return m, false
	}
	if delta > 0 && price != nil && !price.IsNegative() {
		m.CostAfter = CostCalculator(
			decimal.NewFromInt(qty), avgCost,
			decimal.NewFromInt(delta), *price,
		)
	}
	return m, true
}

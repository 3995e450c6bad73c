package inventory

import (
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Position stock y costo resultantes de reproducir el libro.
type Position struct {
	StockQuantity int64
	AverageCost   decimal.Decimal
	Rows          int
}

// Replay reproduce las filas del libro (ordenadas por Seq) con las mismas reglas de costeo,
// omitiendo las que pertenecen a vouchers de skip. No valida stock negativo intermedio:
// al excluir un par anulado el orden resultante puede no haber existido en vivo.
func Replay(rows []*entity.InventoryTransaction, skip map[string]bool) Position {
	pos := Position{AverageCost: decimal.Zero}
	for _, r := range rows {
		if skip[r.VoucherID] {
			continue
		}
		pos.Rows++
		if r.Delta > 0 && r.PurchasePrice != nil && !r.PurchasePrice.IsNegative() {
			pos.AverageCost = CostCalculator(
				decimal.NewFromInt(pos.StockQuantity), pos.AverageCost,
				decimal.NewFromInt(r.Delta), *r.PurchasePrice,
			)
		}
		pos.StockQuantity += r.Delta
	}
	return pos
}

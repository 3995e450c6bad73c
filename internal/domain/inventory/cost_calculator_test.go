package inventory_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/inventory"
)

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	got := inventory.CostCalculator(
		decimal.NewFromInt(10), decimal.NewFromInt(100),
		decimal.NewFromInt(5), decimal.NewFromInt(160),
	)
	assert.True(t, got.Equal(decimal.NewFromInt(120)), "esperado 120, obtenido %s", got)
}

func TestCostCalculator_RedondeaASeisDecimales(t *testing.T) {
	// 2@1 + 1@2 = 4/3
	got := inventory.CostCalculator(
		decimal.NewFromInt(2), decimal.NewFromInt(1),
		decimal.NewFromInt(1), decimal.NewFromInt(2),
	)
	assert.Equal(t, "1.333333", got.String())

	// 1@0 + 2@1 = 2/3, redondeo hacia arriba como NUMERIC
	got = inventory.CostCalculator(decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(2), decimal.NewFromInt(1))
	assert.Equal(t, "0.666667", got.String())
	assert.LessOrEqual(t, -got.Exponent(), int32(inventory.CostScale))
}

func TestCostCalculator_SumaCeroDevuelveCero(t *testing.T) {
	got := inventory.CostCalculator(decimal.Zero, decimal.NewFromInt(50), decimal.Zero, decimal.NewFromInt(80))
	assert.True(t, got.IsZero())
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		qty      int64
		avg      int64
		delta    int64
		price    *decimal.Decimal
		wantOK   bool
		wantQty  int64
		wantCost int64
	}{
		{"entrada desde vacío", 0, 0, 10, price(100), true, 10, 100},
		{"segunda entrada repondera", 10, 100, 5, price(160), true, 15, 120},
		{"salida no repondera", 15, 120, -6, nil, true, 9, 120},
		{"salida con precio tampoco repondera", 15, 120, -10, price(100), true, 5, 120},
		{"entrada sin precio conserva costo", 5, 120, 5, nil, true, 10, 120},
		{"salida que deja negativo", 3, 120, -4, nil, false, -1, 120},
		{"salida exacta a cero", 4, 120, -4, nil, true, 0, 120},
		{"entrada que supera el máximo", inventory.MaxStock - 1, 120, 2, price(100), false, inventory.MaxStock - 1, 120},
		{"delta cercano a MaxInt64 no desborda", 10, 120, math.MaxInt64, price(100), false, 10, 120},
		{"salida cercana a MinInt64", 10, 120, math.MinInt64 + 1, nil, false, 10, 120},
		{"entrada hasta el máximo exacto", inventory.MaxStock - 2, 120, 2, nil, true, inventory.MaxStock, 120},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := inventory.Apply(tc.qty, decimal.NewFromInt(tc.avg), tc.delta, tc.price)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.qty, m.QuantityBefore)
			assert.Equal(t, tc.wantQty, m.QuantityAfter)
			assert.True(t, m.CostAfter.Equal(decimal.NewFromInt(tc.wantCost)),
				"costo esperado %d, obtenido %s", tc.wantCost, m.CostAfter)
		})
	}
}

func TestReplay_OmiteParAnulado(t *testing.T) {
	rows := []*entity.InventoryTransaction{
		{Seq: 1, VoucherID: "GR-1", Delta: 10, PurchasePrice: price(100)},
		{Seq: 2, VoucherID: "GR-2", Delta: 5, PurchasePrice: price(160)},
		{Seq: 3, VoucherID: "REV-1", Delta: -10, PurchasePrice: price(100)},
	}

	live := inventory.Replay(rows, nil)
	assert.Equal(t, int64(5), live.StockQuantity)
	assert.True(t, live.AverageCost.Equal(decimal.NewFromInt(120)))

	effective := inventory.Replay(rows, map[string]bool{"GR-1": true, "REV-1": true})
	assert.Equal(t, int64(5), effective.StockQuantity)
	assert.True(t, effective.AverageCost.Equal(decimal.NewFromInt(160)))
	assert.Equal(t, 1, effective.Rows)
}

func TestNewVoucherID_Prefijos(t *testing.T) {
	cases := map[entity.VoucherType]string{
		entity.VoucherGoodsReceipt:                "GR-",
		entity.VoucherGoodsIssue:                  "GI-",
		entity.VoucherAdjustmentStocktake:         "ADJ-",
		entity.VoucherGoodsReceipt.Reversal():     "REV-",
		entity.VoucherAdjustmentDamage.Reversal(): "REV-",
	}
	for typ, prefix := range cases {
		id := inventory.NewVoucherID(typ)
		assert.True(t, strings.HasPrefix(id, prefix), "%s debe empezar con %s", id, prefix)
		assert.Len(t, id, len(prefix)+16)
	}

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := inventory.NewVoucherID(entity.VoucherGoodsIssue)
		require.False(t, seen[id], "ID repetido: %s", id)
		seen[id] = true
	}
}

func TestNewTransferID_FechaYSufijo(t *testing.T) {
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	id := inventory.NewTransferID(now)
	assert.True(t, strings.HasPrefix(id, "TRF-20261018-"))
	assert.Len(t, id, len("TRF-20261018-")+8)
}

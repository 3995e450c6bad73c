package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

func TestMoney_SeparadorDeMiles(t *testing.T) {
	g := NewMarotoDeliveryNoteGenerator()
	assert.Equal(t, "$25.000", g.money(decimal.NewFromInt(25000)))
	assert.Equal(t, "$1.000.000", g.money(decimal.RequireFromString("999999.6")))
	assert.Equal(t, "$120", g.money(decimal.NewFromInt(120)))
}

func TestGenerateDeliveryNote(t *testing.T) {
	cost := decimal.NewFromInt(100)
	tr := &entity.StockTransfer{
		ID:                  "TRF-20261018-ABCDEF12",
		SourceBranchID:      "B1",
		DestinationBranchID: "B2",
		Items: []entity.TransferItem{
			{SKU: "X", Quantity: 5, UnitCost: &cost},
			{SKU: "Y", Quantity: 2, UnitCost: &cost},
		},
		Status:       entity.TransferInTransit,
		CreatedBy:    "u1",
		CreatedAt:    time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		DispatchInfo: &entity.TransferStamp{UserID: "bod1", At: time.Now(), VoucherID: "GI-1"},
	}

	out, err := NewMarotoDeliveryNoteGenerator().GenerateDeliveryNote(context.Background(), tr)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

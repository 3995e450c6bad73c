package memory

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// Copias profundas: el almacén nunca comparte punteros con los callers.

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneInt(n *int64) *int64 {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

func cloneTransaction(t *entity.InventoryTransaction) *entity.InventoryTransaction {
	c := *t
	c.PurchasePrice = cloneDecimal(t.PurchasePrice)
	return &c
}

func cloneVoucher(v *entity.Voucher) *entity.Voucher {
	c := *v
	c.Items = make([]entity.VoucherItem, len(v.Items))
	for i, it := range v.Items {
		it.ActualQuantity = cloneInt(it.ActualQuantity)
		it.PurchasePrice = cloneDecimal(it.PurchasePrice)
		c.Items[i] = it
	}
	c.Metadata = maps.Clone(v.Metadata)
	if v.Cancellation != nil {
		cc := *v.Cancellation
		c.Cancellation = &cc
	}
	return &c
}

func cloneStamp(s *entity.TransferStamp) *entity.TransferStamp {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneTransfer(t *entity.StockTransfer) *entity.StockTransfer {
	c := *t
	c.Items = make([]entity.TransferItem, len(t.Items))
	for i, it := range t.Items {
		it.UnitCost = cloneDecimal(it.UnitCost)
		c.Items[i] = it
	}
	c.DispatchInfo = cloneStamp(t.DispatchInfo)
	c.ReceiptInfo = cloneStamp(t.ReceiptInfo)
	if t.CancellationInfo != nil {
		cc := *t.CancellationInfo
		c.CancellationInfo = &cc
	}
	return &c
}

func cloneSale(s *entity.Sale) *entity.Sale {
	c := *s
	c.Items = slices.Clone(s.Items)
	return &c
}

package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var (
	_ repository.InventoryRepository            = (*inventoryRepo)(nil)
	_ repository.InventoryTransactionRepository = (*ledgerRepo)(nil)
	_ repository.VoucherRepository              = (*voucherRepo)(nil)
	_ repository.StockTransferRepository        = (*transferRepo)(nil)
	_ repository.SaleRepository                 = (*saleRepo)(nil)
	_ repository.CustomerRepository             = (*customerRepo)(nil)
)

func paginate[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// ---- inventory ----

type inventoryRepo struct{ sc scope }

func (tx *txState) getInventory(sku, branchID string) entity.InventoryRecord {
	key := inventoryKey(sku, branchID)
	if rec, ok := tx.inventory[key]; ok {
		return rec
	}
	tx.store.mu.RLock()
	cur, ok := tx.store.inventory[key]
	tx.store.mu.RUnlock()
	tx.observe(collInventory, key, cur.version)
	if !ok {
		return *entity.EmptyInventoryRecord(sku, branchID)
	}
	return cur.value
}

func (r *inventoryRepo) Get(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error) {
	var out entity.InventoryRecord
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.getInventory(sku, branchID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *inventoryRepo) GetForUpdate(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error) {
	return r.Get(ctx, sku, branchID)
}

func (r *inventoryRepo) GetManyForUpdate(ctx context.Context, branchID string, skus []string) (map[string]*entity.InventoryRecord, error) {
	out := make(map[string]*entity.InventoryRecord, len(skus))
	err := r.sc.do(ctx, func(tx *txState) error {
		for _, sku := range skus {
			rec := tx.getInventory(sku, branchID)
			out[sku] = &rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *inventoryRepo) Upsert(ctx context.Context, rec *entity.InventoryRecord) error {
	if rec.StockQuantity < 0 {
		return fmt.Errorf("upsert inventory %s/%s: %w", rec.SKU, rec.BranchID, domain.ErrInsufficientStock)
	}
	return r.sc.do(ctx, func(tx *txState) error {
		_ = tx.getInventory(rec.SKU, rec.BranchID)
		tx.inventory[inventoryKey(rec.SKU, rec.BranchID)] = *rec
		return nil
	})
}

func (r *inventoryRepo) ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.InventoryRecord, error) {
	var list []*entity.InventoryRecord
	err := r.sc.do(ctx, func(tx *txState) error {
		merged := make(map[string]entity.InventoryRecord)
		tx.store.mu.RLock()
		for key, cur := range tx.store.inventory {
			if cur.value.BranchID == branchID {
				merged[key] = cur.value
			}
		}
		tx.store.mu.RUnlock()
		for key, rec := range tx.inventory {
			if rec.BranchID == branchID {
				merged[key] = rec
			}
		}
		for _, rec := range merged {
			rec := rec
			list = append(list, &rec)
		}
		slices.SortFunc(list, func(a, b *entity.InventoryRecord) int { return cmp.Compare(a.SKU, b.SKU) })
		list = paginate(list, limit, offset)
		return nil
	})
	return list, err
}

// ---- ledger ----

type ledgerRepo struct{ sc scope }

func (r *ledgerRepo) Create(ctx context.Context, t *entity.InventoryTransaction) error {
	return r.sc.do(ctx, func(tx *txState) error {
		key := ledgerKey(t.VoucherID, t.SKU, t.BranchID)
		tx.store.mu.RLock()
		dup := tx.store.ledgerKey[key]
		tx.store.mu.RUnlock()
		for _, row := range tx.ledger {
			if ledgerKey(row.VoucherID, row.SKU, row.BranchID) == key {
				dup = true
			}
		}
		if dup {
			return fmt.Errorf("fila de libro %s/%s/%s: %w", t.VoucherID, t.SKU, t.BranchID, errDuplicate)
		}
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
		tx.ledger = append(tx.ledger, t)
		return nil
	})
}

// rows devuelve copias de las filas confirmadas más las del buffer que cumplan match.
func (tx *txState) ledgerRows(match func(*entity.InventoryTransaction) bool) []*entity.InventoryTransaction {
	var out []*entity.InventoryTransaction
	tx.store.mu.RLock()
	for _, row := range tx.store.ledger {
		if match(row) {
			out = append(out, cloneTransaction(row))
		}
	}
	tx.store.mu.RUnlock()
	for _, row := range tx.ledger {
		if match(row) {
			out = append(out, cloneTransaction(row))
		}
	}
	return out
}

func (r *ledgerRepo) ListByKey(ctx context.Context, sku, branchID string) ([]*entity.InventoryTransaction, error) {
	var out []*entity.InventoryTransaction
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.ledgerRows(func(t *entity.InventoryTransaction) bool {
			return t.SKU == sku && t.BranchID == branchID
		})
		return nil
	})
	return out, err
}

func (r *ledgerRepo) List(ctx context.Context, f repository.TransactionFilter) ([]*entity.InventoryTransaction, error) {
	var out []*entity.InventoryTransaction
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.ledgerRows(func(t *entity.InventoryTransaction) bool {
			switch {
			case f.SKU != "" && t.SKU != f.SKU,
				f.BranchID != "" && t.BranchID != f.BranchID,
				f.VoucherID != "" && t.VoucherID != f.VoucherID,
				f.From != nil && t.CreatedAt.Before(*f.From),
				f.To != nil && t.CreatedAt.After(*f.To):
				return false
			}
			return true
		})
		// más recientes primero; lo que sigue en el buffer aún no tiene Seq y va arriba
		slices.Reverse(out)
		out = paginate(out, f.Limit, f.Offset)
		return nil
	})
	return out, err
}

func (r *ledgerRepo) SumDeltas(ctx context.Context, sku, branchID string) (int64, error) {
	rows, err := r.ListByKey(ctx, sku, branchID)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, row := range rows {
		sum += row.Delta
	}
	return sum, nil
}

// ---- vouchers ----

type voucherRepo struct{ sc scope }

func (tx *txState) getVoucher(id string) *entity.Voucher {
	if v, ok := tx.vouchers[id]; ok {
		return cloneVoucher(v)
	}
	tx.store.mu.RLock()
	cur, ok := tx.store.vouchers[id]
	tx.store.mu.RUnlock()
	tx.observe(collVoucher, id, cur.version)
	if !ok {
		return nil
	}
	return cloneVoucher(cur.value)
}

func (r *voucherRepo) Create(ctx context.Context, v *entity.Voucher) error {
	return r.sc.do(ctx, func(tx *txState) error {
		if tx.getVoucher(v.ID) != nil {
			return fmt.Errorf("voucher %s: %w", v.ID, errDuplicate)
		}
		tx.vouchers[v.ID] = cloneVoucher(v)
		tx.voucherCreates[v.ID] = true
		return nil
	})
}

func (r *voucherRepo) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	var out *entity.Voucher
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.getVoucher(id)
		return nil
	})
	return out, err
}

func (r *voucherRepo) GetForUpdate(ctx context.Context, id string) (*entity.Voucher, error) {
	return r.GetByID(ctx, id)
}

func (r *voucherRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Voucher, error) {
	out := make(map[string]*entity.Voucher, len(ids))
	err := r.sc.do(ctx, func(tx *txState) error {
		for _, id := range ids {
			if v := tx.getVoucher(id); v != nil {
				out[id] = v
			}
		}
		return nil
	})
	return out, err
}

func (r *voucherRepo) MarkCancelled(ctx context.Context, id string, info entity.VoucherCancellation) error {
	return r.sc.do(ctx, func(tx *txState) error {
		v := tx.getVoucher(id)
		if v == nil {
			return domain.NewNotFoundError("voucher", id)
		}
		if v.Status != entity.VoucherStatusCompleted {
			return domain.NewInvalidStateError("voucher", id, string(v.Status), string(entity.VoucherStatusCompleted))
		}
		v.Status = entity.VoucherStatusCancelled
		v.Cancellation = &info
		tx.vouchers[id] = v
		return nil
	})
}

func (r *voucherRepo) List(ctx context.Context, f repository.VoucherFilter) ([]*entity.Voucher, error) {
	var list []*entity.Voucher
	err := r.sc.do(ctx, func(tx *txState) error {
		merged := make(map[string]*entity.Voucher)
		tx.store.mu.RLock()
		for id, cur := range tx.store.vouchers {
			merged[id] = cur.value
		}
		tx.store.mu.RUnlock()
		for id, v := range tx.vouchers {
			merged[id] = v
		}
		for _, v := range merged {
			if f.BranchID != "" && v.BranchID != f.BranchID {
				continue
			}
			if len(f.Types) > 0 && !slices.Contains(f.Types, v.Type) {
				continue
			}
			if f.Status != "" && v.Status != f.Status {
				continue
			}
			list = append(list, cloneVoucher(v))
		}
		slices.SortFunc(list, func(a, b *entity.Voucher) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		list = paginate(list, f.Limit, f.Offset)
		return nil
	})
	return list, err
}

// ---- transfers ----

type transferRepo struct{ sc scope }

func (tx *txState) getTransfer(id string) *entity.StockTransfer {
	if t, ok := tx.transfers[id]; ok {
		return cloneTransfer(t)
	}
	tx.store.mu.RLock()
	cur, ok := tx.store.transfers[id]
	tx.store.mu.RUnlock()
	tx.observe(collTransfer, id, cur.version)
	if !ok {
		return nil
	}
	return cloneTransfer(cur.value)
}

func (r *transferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	return r.sc.do(ctx, func(tx *txState) error {
		if tx.getTransfer(t.ID) != nil {
			return fmt.Errorf("traslado %s: %w", t.ID, errDuplicate)
		}
		tx.transfers[t.ID] = cloneTransfer(t)
		tx.transferCreate[t.ID] = true
		return nil
	})
}

func (r *transferRepo) GetByID(ctx context.Context, id string) (*entity.StockTransfer, error) {
	var out *entity.StockTransfer
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.getTransfer(id)
		return nil
	})
	return out, err
}

func (r *transferRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error) {
	return r.GetByID(ctx, id)
}

func (r *transferRepo) Update(ctx context.Context, t *entity.StockTransfer) error {
	return r.sc.do(ctx, func(tx *txState) error {
		if tx.getTransfer(t.ID) == nil {
			return domain.NewNotFoundError("traslado", t.ID)
		}
		tx.transfers[t.ID] = cloneTransfer(t)
		return nil
	})
}

func (r *transferRepo) CancelIfPending(ctx context.Context, id string, info entity.TransferCancellation) (bool, error) {
	var swapped bool
	err := r.sc.do(ctx, func(tx *txState) error {
		swapped = false
		t := tx.getTransfer(id)
		if t == nil || t.Status != entity.TransferPending {
			return nil
		}
		t.Status = entity.TransferCancelled
		t.CancellationInfo = &info
		t.UpdatedAt = info.At
		tx.transfers[id] = t
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *transferRepo) ListBySource(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	return r.list(ctx, statuses, func(t *entity.StockTransfer) bool { return t.SourceBranchID == branchID })
}

func (r *transferRepo) ListByDestination(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	return r.list(ctx, statuses, func(t *entity.StockTransfer) bool { return t.DestinationBranchID == branchID })
}

func (r *transferRepo) list(ctx context.Context, statuses []entity.TransferStatus, match func(*entity.StockTransfer) bool) ([]*entity.StockTransfer, error) {
	var list []*entity.StockTransfer
	err := r.sc.do(ctx, func(tx *txState) error {
		merged := make(map[string]*entity.StockTransfer)
		tx.store.mu.RLock()
		for id, cur := range tx.store.transfers {
			merged[id] = cur.value
		}
		tx.store.mu.RUnlock()
		for id, t := range tx.transfers {
			merged[id] = t
		}
		for _, t := range merged {
			if !match(t) || (len(statuses) > 0 && !slices.Contains(statuses, t.Status)) {
				continue
			}
			list = append(list, cloneTransfer(t))
		}
		slices.SortFunc(list, func(a, b *entity.StockTransfer) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		return nil
	})
	return list, err
}

// ---- sales ----

type saleRepo struct{ sc scope }

func (tx *txState) getSale(id string) *entity.Sale {
	if s, ok := tx.sales[id]; ok {
		return cloneSale(s)
	}
	tx.store.mu.RLock()
	cur, ok := tx.store.sales[id]
	tx.store.mu.RUnlock()
	tx.observe(collSale, id, cur.version)
	if !ok {
		return nil
	}
	return cloneSale(cur.value)
}

func (r *saleRepo) Create(ctx context.Context, s *entity.Sale) error {
	return r.sc.do(ctx, func(tx *txState) error {
		if tx.getSale(s.ID) != nil {
			return fmt.Errorf("orden %s: %w", s.ID, errDuplicate)
		}
		tx.sales[s.ID] = cloneSale(s)
		return nil
	})
}

func (r *saleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	var out *entity.Sale
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.getSale(id)
		return nil
	})
	return out, err
}

// ---- customers ----

type customerRepo struct{ sc scope }

func (tx *txState) getCustomer(id string) *entity.Customer {
	if c, ok := tx.customers[id]; ok {
		return &c
	}
	tx.store.mu.RLock()
	cur, ok := tx.store.customers[id]
	tx.store.mu.RUnlock()
	tx.observe(collCustomer, id, cur.version)
	if !ok {
		return nil
	}
	c := cur.value
	return &c
}

func (r *customerRepo) Create(ctx context.Context, c *entity.Customer) error {
	return r.sc.do(ctx, func(tx *txState) error {
		if tx.getCustomer(c.ID) != nil {
			return fmt.Errorf("cliente %s: %w", c.ID, errDuplicate)
		}
		tx.customers[c.ID] = *c
		tx.customerCreate[c.ID] = true
		return nil
	})
}

func (r *customerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var out *entity.Customer
	err := r.sc.do(ctx, func(tx *txState) error {
		out = tx.getCustomer(id)
		return nil
	})
	return out, err
}

func (r *customerRepo) UpdateStats(ctx context.Context, id string, amountDelta decimal.Decimal, pointsDelta int64) error {
	return r.sc.do(ctx, func(tx *txState) error {
		c := tx.getCustomer(id)
		if c == nil {
			return domain.NewNotFoundError("cliente", id)
		}
		c.TotalSpent = c.TotalSpent.Add(amountDelta)
		c.LoyaltyPoints += pointsDelta
		c.UpdatedAt = time.Now().UTC()
		tx.customers[id] = *c
		return nil
	})
}

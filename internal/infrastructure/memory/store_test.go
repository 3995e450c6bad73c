package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

func TestStore_RunConfirmaYDescarta(t *testing.T) {
	ctx := context.Background()
	s := NewStore(3)

	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Inventory.Upsert(ctx, &entity.InventoryRecord{SKU: "A", BranchID: "B1", StockQuantity: 5, AverageCost: decimal.NewFromInt(10)})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Inventory.Upsert(ctx, &entity.InventoryRecord{SKU: "A", BranchID: "B1", StockQuantity: 99}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := s.Repos().Inventory.Get(ctx, "A", "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.StockQuantity)
	assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(10)))
}

func TestStore_RegistroInexistenteEsCero(t *testing.T) {
	rec, err := NewStore(0).Repos().Inventory.Get(context.Background(), "X", "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.StockQuantity)
	assert.True(t, rec.AverageCost.IsZero())
}

func TestStore_EscriturasConcurrentesNoSePierden(t *testing.T) {
	ctx := context.Background()
	s := NewStore(50)
	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
				rec, err := r.Inventory.GetForUpdate(ctx, "A", "B1")
				if err != nil {
					return err
				}
				rec.StockQuantity++
				return r.Inventory.Upsert(ctx, rec)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := s.Repos().Inventory.Get(ctx, "A", "B1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), rec.StockQuantity)
}

func TestStore_ReintentosAgotadosDevuelveStoreConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore(3)
	calls := 0

	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		calls++
		rec, err := r.Inventory.Get(ctx, "A", "B1")
		if err != nil {
			return err
		}
		// otra escritura confirma sobre la misma clave antes de nuestro commit
		if err := s.Repos().Inventory.Upsert(ctx, &entity.InventoryRecord{SKU: "A", BranchID: "B1", StockQuantity: int64(calls)}); err != nil {
			return err
		}
		rec.StockQuantity = 100
		return r.Inventory.Upsert(ctx, rec)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreConflict)
	var conflict *domain.StoreConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 3, conflict.Attempts)
	assert.Equal(t, 3, calls)

	rec, _ := s.Repos().Inventory.Get(ctx, "A", "B1")
	assert.Equal(t, int64(3), rec.StockQuantity)
}

func TestStore_FilaDeLibroDuplicada(t *testing.T) {
	ctx := context.Background()
	s := NewStore(1)
	row := func() *entity.InventoryTransaction {
		return &entity.InventoryTransaction{VoucherID: "GR-1", SKU: "A", BranchID: "B1", Delta: 1, Reason: entity.ReasonVoucher}
	}
	require.NoError(t, s.Repos().Ledger.Create(ctx, row()))
	err := s.Repos().Ledger.Create(ctx, row())
	assert.ErrorIs(t, err, errDuplicate)

	rows, err := s.Repos().Ledger.ListByKey(ctx, "A", "B1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Seq)
}

func TestStore_CancelIfPendingUnaSolaVez(t *testing.T) {
	ctx := context.Background()
	s := NewStore(3)
	repos := s.Repos()
	now := time.Now().UTC()
	require.NoError(t, repos.Transfers.Create(ctx, &entity.StockTransfer{
		ID: "TRF-1", SourceBranchID: "B1", DestinationBranchID: "B2", Status: entity.TransferPending, CreatedAt: now,
		Items: []entity.TransferItem{{SKU: "A", Quantity: 1}},
	}))

	ok, err := repos.Transfers.CancelIfPending(ctx, "TRF-1", entity.TransferCancellation{UserID: "u1", At: now, Reason: "x"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Transfers.CancelIfPending(ctx, "TRF-1", entity.TransferCancellation{UserID: "u2", At: now})
	require.NoError(t, err)
	assert.False(t, ok)

	tr, err := repos.Transfers.GetByID(ctx, "TRF-1")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, tr.Status)
	assert.Equal(t, "u1", tr.CancellationInfo.UserID)

	ok, err = repos.Transfers.CancelIfPending(ctx, "NO-EXISTE", entity.TransferCancellation{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DevuelveCopias(t *testing.T) {
	ctx := context.Background()
	s := NewStore(1)
	price := decimal.NewFromInt(7)
	require.NoError(t, s.Repos().Vouchers.Create(ctx, &entity.Voucher{
		ID: "GR-1", Type: entity.VoucherGoodsReceipt, Status: entity.VoucherStatusCompleted,
		Items: []entity.VoucherItem{{SKU: "A", Quantity: 1, PurchasePrice: &price}},
	}))

	v, err := s.Repos().Vouchers.GetByID(ctx, "GR-1")
	require.NoError(t, err)
	v.Items[0].Quantity = 999
	v.Status = entity.VoucherStatusCancelled

	again, err := s.Repos().Vouchers.GetByID(ctx, "GR-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Items[0].Quantity)
	assert.Equal(t, entity.VoucherStatusCompleted, again.Status)
}

func TestStore_LecturaSeRepiteSiOtraTransaccionConfirma(t *testing.T) {
	ctx := context.Background()
	s := NewStore(5)
	require.NoError(t, s.Repos().Inventory.Upsert(ctx, &entity.InventoryRecord{SKU: "A", BranchID: "B1", StockQuantity: 1}))

	calls := 0
	var first, second int64
	err := s.Run(ctx, func(ctx context.Context, r repository.Repos) error {
		calls++
		rec, err := r.Inventory.Get(ctx, "A", "B1")
		if err != nil {
			return err
		}
		first = rec.StockQuantity
		if calls == 1 {
			// un escritor confirma entre las dos lecturas del primer intento
			if err := s.Repos().Inventory.Upsert(ctx, &entity.InventoryRecord{SKU: "A", BranchID: "B1", StockQuantity: 2}); err != nil {
				return err
			}
		}
		again, err := s.Repos().Inventory.Get(ctx, "A", "B1")
		if err != nil {
			return err
		}
		second = again.StockQuantity
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), first)
}

package transfer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

type fakeNotes struct{ calls int }

func (f *fakeNotes) GenerateDeliveryNote(_ context.Context, t *entity.StockTransfer) ([]byte, error) {
	f.calls++
	return []byte("%PDF-" + t.ID), nil
}

type fixture struct {
	orch    *transfer.Orchestrator
	engine  *ledger.VoucherEngine
	queries *ledger.QueryService
	events  *events.Recorder
	notes   *fakeNotes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(20)
	rec := &events.Recorder{}
	notes := &fakeNotes{}
	log := logger.Nop()
	engine := ledger.NewVoucherEngine(store, rec, log)
	return &fixture{
		orch:    transfer.NewOrchestrator(store, store.Repos(), engine, rec, notes, log),
		engine:  engine,
		queries: ledger.NewQueryService(store, store.Repos(), nil, 0, log),
		events:  rec,
		notes:   notes,
	}
}

func (f *fixture) seed(t *testing.T, branch, sku string, qty, price int64) {
	t.Helper()
	p := decimal.NewFromInt(price)
	_, err := f.engine.CreateVoucher(context.Background(), ledger.CreateVoucherInput{
		Type: entity.VoucherGoodsReceipt, BranchID: branch, UserID: "seed",
		Items: []entity.LineItem{{SKU: sku, Quantity: qty, PurchasePrice: &p}},
	})
	require.NoError(t, err)
}

func (f *fixture) position(t *testing.T, branch, sku string) (int64, decimal.Decimal) {
	t.Helper()
	rec, err := f.queries.GetInventory(context.Background(), sku, branch)
	require.NoError(t, err)
	return rec.StockQuantity, rec.AverageCost
}

func (f *fixture) create(t *testing.T, qty int64) *entity.StockTransfer {
	t.Helper()
	tr, err := f.orch.CreateTransferRequest(context.Background(), transfer.CreateTransferInput{
		SourceBranchID: "B1", DestinationBranchID: "B2", UserID: "u1",
		Items: []entity.TransferItem{{SKU: "X", Quantity: qty}},
	})
	require.NoError(t, err)
	return tr
}

func TestTransfer_CicloCompleto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "B1", "X", 10, 100)
	f.seed(t, "B2", "X", 5, 160)

	tr := f.create(t, 5)
	assert.Equal(t, entity.TransferPending, tr.Status)
	assert.True(t, strings.HasPrefix(tr.ID, "TRF-"))
	assert.Nil(t, tr.DispatchInfo)
	qty, _ := f.position(t, "B1", "X")
	assert.Equal(t, int64(10), qty, "crear no mueve stock")

	tr, err := f.orch.Dispatch(ctx, tr.ID, "bod1")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, tr.Status)
	require.NotNil(t, tr.DispatchInfo)
	assert.Equal(t, "bod1", tr.DispatchInfo.UserID)
	require.NotNil(t, tr.Items[0].UnitCost)
	assert.True(t, tr.Items[0].UnitCost.Equal(decimal.NewFromInt(100)))
	qty, cost := f.position(t, "B1", "X")
	assert.Equal(t, int64(5), qty)
	assert.True(t, cost.Equal(decimal.NewFromInt(100)))

	issue, err := f.queries.GetVoucher(ctx, tr.DispatchInfo.VoucherID)
	require.NoError(t, err)
	assert.Equal(t, entity.VoucherGoodsIssue, issue.Type)
	assert.Equal(t, tr.ID, issue.Reference)

	tr, err = f.orch.Receive(ctx, tr.ID, "bod2")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, tr.Status)
	require.NotNil(t, tr.ReceiptInfo)
	qty, cost = f.position(t, "B2", "X")
	assert.Equal(t, int64(10), qty)
	assert.True(t, cost.Equal(decimal.NewFromInt(130)), "5@160 + 5@100 = 130, obtenido %s", cost)

	_, err = f.orch.Dispatch(ctx, tr.ID, "bod1")
	var stateErr *domain.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, string(entity.TransferCompleted), stateErr.Current)

	_, err = f.orch.Cancel(ctx, tr.ID, "sup1", "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.Equal(t, []string{
		events.VoucherCreated, events.VoucherCreated,
		events.TransferCreated,
		events.VoucherCreated, events.TransferDispatched,
		events.VoucherCreated, events.TransferReceived,
	}, f.events.Types())
}

func TestTransfer_VouchersDelTrasladoNoSeAnulanSueltos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "B1", "X", 10, 100)
	tr := f.create(t, 5)

	tr, err := f.orch.Dispatch(ctx, tr.ID, "bod1")
	require.NoError(t, err)
	issue, err := f.queries.GetVoucher(ctx, tr.DispatchInfo.VoucherID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, issue.TransferID())

	_, err = f.engine.CancelVoucher(ctx, tr.DispatchInfo.VoucherID, "sup", "error de despacho")
	var stateErr *domain.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Contains(t, stateErr.Current, tr.ID)
	b1, _ := f.position(t, "B1", "X")
	assert.Equal(t, int64(5), b1, "el despacho sigue vigente")

	tr, err = f.orch.Receive(ctx, tr.ID, "bod2")
	require.NoError(t, err)
	_, err = f.engine.CancelVoucher(ctx, tr.ReceiptInfo.VoucherID, "sup", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	b1, _ = f.position(t, "B1", "X")
	b2, _ := f.position(t, "B2", "X")
	assert.Equal(t, int64(10), b1+b2, "la red conserva las unidades sembradas")

	for _, id := range []string{tr.DispatchInfo.VoucherID, tr.ReceiptInfo.VoucherID} {
		v, err := f.queries.GetVoucher(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, entity.VoucherStatusCompleted, v.Status)
	}
}

func TestTransfer_MetadataDeTrasladoReservada(t *testing.T) {
	f := newFixture(t)
	p := decimal.NewFromInt(10)
	_, err := f.engine.CreateVoucher(context.Background(), ledger.CreateVoucherInput{
		Type: entity.VoucherGoodsReceipt, BranchID: "B1", UserID: "u1",
		Items:    []entity.LineItem{{SKU: "X", Quantity: 1, PurchasePrice: &p}},
		Metadata: map[string]string{entity.MetadataTransferID: "TRF-falso"},
	})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "metadata.transfer_id", verr.Field)
}

func TestTransfer_RecibirRequiereEnTransito(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "B1", "X", 10, 100)
	tr := f.create(t, 3)

	_, err := f.orch.Receive(context.Background(), tr.ID, "bod2")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	qty, _ := f.position(t, "B2", "X")
	assert.Equal(t, int64(0), qty)
}

func TestTransfer_DespachoSinStockNoCambiaNada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "B1", "X", 2, 100)
	tr := f.create(t, 5)

	_, err := f.orch.Dispatch(ctx, tr.ID, "bod1")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	got, err := f.orch.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferPending, got.Status)
	assert.Nil(t, got.DispatchInfo)
	assert.Nil(t, got.Items[0].UnitCost)
	qty, _ := f.position(t, "B1", "X")
	assert.Equal(t, int64(2), qty)
}

func TestTransfer_Cancelar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "B1", "X", 10, 100)

	tr := f.create(t, 5)
	got, err := f.orch.Cancel(ctx, tr.ID, "sup1", "pedido duplicado")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCancelled, got.Status)
	require.NotNil(t, got.CancellationInfo)
	assert.Equal(t, "pedido duplicado", got.CancellationInfo.Reason)

	_, err = f.orch.Cancel(ctx, tr.ID, "sup1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.orch.Dispatch(ctx, tr.ID, "bod1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.orch.Cancel(ctx, "TRF-NOEXISTE", "sup1", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inTransit := f.create(t, 1)
	_, err = f.orch.Dispatch(ctx, inTransit.ID, "bod1")
	require.NoError(t, err)
	_, err = f.orch.Cancel(ctx, inTransit.ID, "sup1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "en tránsito debe recibirse")
}

func TestTransfer_CancelarYDespacharEnCarrera(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "B1", "X", 10, 100)
	tr := f.create(t, 4)

	var wg sync.WaitGroup
	var dispatchErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, dispatchErr = f.orch.Dispatch(ctx, tr.ID, "bod1")
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = f.orch.Cancel(ctx, tr.ID, "sup1", "")
	}()
	wg.Wait()

	require.True(t, (dispatchErr == nil) != (cancelErr == nil), "exactamente una transición debe ganar: %v / %v", dispatchErr, cancelErr)
	got, err := f.orch.Get(ctx, tr.ID)
	require.NoError(t, err)
	qty, _ := f.position(t, "B1", "X")
	if dispatchErr == nil {
		assert.Equal(t, entity.TransferInTransit, got.Status)
		assert.Nil(t, got.CancellationInfo)
		assert.Equal(t, int64(6), qty)
	} else {
		assert.Equal(t, entity.TransferCancelled, got.Status)
		assert.Nil(t, got.DispatchInfo)
		assert.Equal(t, int64(10), qty)
	}
}

func TestCreateTransferRequest_Validaciones(t *testing.T) {
	f := newFixture(t)
	base := func() transfer.CreateTransferInput {
		return transfer.CreateTransferInput{
			SourceBranchID: "B1", DestinationBranchID: "B2", UserID: "u1",
			Items: []entity.TransferItem{{SKU: "X", Quantity: 1}},
		}
	}
	tests := []struct {
		name  string
		mut   func(*transfer.CreateTransferInput)
		field string
	}{
		{"misma sucursal", func(in *transfer.CreateTransferInput) { in.DestinationBranchID = "B1" }, "destination_branch_id"},
		{"sin origen", func(in *transfer.CreateTransferInput) { in.SourceBranchID = "" }, "source_branch_id"},
		{"sin líneas", func(in *transfer.CreateTransferInput) { in.Items = nil }, "items"},
		{"cantidad cero", func(in *transfer.CreateTransferInput) { in.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"sku repetido", func(in *transfer.CreateTransferInput) {
			in.Items = append(in.Items, entity.TransferItem{SKU: "X", Quantity: 2})
		}, "items[1].sku"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base()
			tc.mut(&in)
			_, err := f.orch.CreateTransferRequest(context.Background(), in)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "se esperaba ValidationError, obtenido %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestTransfer_ListadosPorSucursal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "B1", "X", 10, 100)
	first := f.create(t, 1)
	second := f.create(t, 2)
	_, err := f.orch.Dispatch(ctx, second.ID, "bod1")
	require.NoError(t, err)

	out, err := f.orch.ListOutgoing(ctx, "B1", nil)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	in, err := f.orch.ListIncoming(ctx, "B2", []entity.TransferStatus{entity.TransferInTransit})
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, second.ID, in[0].ID)

	pending, err := f.orch.ListOutgoing(ctx, "B1", []entity.TransferStatus{entity.TransferPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	_, err = f.orch.ListIncoming(ctx, "B2", []entity.TransferStatus{"PERDIDO"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransfer_Remision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, 1)

	pdf, err := f.orch.DeliveryNote(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-"+tr.ID, string(pdf))
	assert.Equal(t, 1, f.notes.calls)

	_, err = f.orch.Cancel(ctx, tr.ID, "sup1", "")
	require.NoError(t, err)
	_, err = f.orch.DeliveryNote(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.orch.DeliveryNote(ctx, "TRF-X")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

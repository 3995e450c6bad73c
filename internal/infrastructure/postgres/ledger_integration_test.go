//go:build integration

package postgres_test

// Pruebas contra PostgreSQL real (testcontainers). Ejecutar con:
//   go test -tags integration ./internal/infrastructure/...

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/application/settlement"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-ledger/pkg/config"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

type pgEnv struct {
	pool    *pgxpool.Pool
	tx      repository.TxRunner
	repos   repository.Repos
	engine  *ledger.VoucherEngine
	queries *ledger.QueryService
	events  *events.Recorder
}

func setupPostgres(t *testing.T) *pgEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("ledger_test"),
		tcPostgres.WithUsername("ledger"),
		tcPostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.ApplySchema(ctx, pool))
	// Idempotente.
	require.NoError(t, postgres.ApplySchema(ctx, pool))

	log := logger.Nop()
	rec := &events.Recorder{}
	tx := postgres.NewTxRunner(pool, 20)
	repos := postgres.NewRepos(pool)
	return &pgEnv{
		pool:    pool,
		tx:      tx,
		repos:   repos,
		engine:  ledger.NewVoucherEngine(tx, rec, log),
		queries: ledger.NewQueryService(tx, repos, nil, 0, log),
		events:  rec,
	}
}

func (e *pgEnv) receipt(t *testing.T, branch, sku string, qty, price int64) *entity.Voucher {
	t.Helper()
	p := decimal.NewFromInt(price)
	res, err := e.engine.CreateVoucher(context.Background(), ledger.CreateVoucherInput{
		Type: entity.VoucherGoodsReceipt, BranchID: branch, UserID: "u1",
		Items: []entity.LineItem{{SKU: sku, Quantity: qty, PurchasePrice: &p}},
	})
	require.NoError(t, err)
	return res.Voucher
}

func TestPostgres_Ledger(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	t.Run("costo promedio y anulación", func(t *testing.T) {
		first := env.receipt(t, "B1", "A", 10, 100)
		env.receipt(t, "B1", "A", 5, 160)

		rec, err := env.queries.GetInventory(ctx, "A", "B1")
		require.NoError(t, err)
		assert.Equal(t, int64(15), rec.StockQuantity)
		assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(120)), "costo %s", rec.AverageCost)

		reversal, err := env.engine.CancelVoucher(ctx, first.ID, "sup", "duplicado")
		require.NoError(t, err)
		assert.Equal(t, first.ID, reversal.ReversesVoucherID)

		orig, err := env.queries.GetVoucher(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.VoucherStatusCancelled, orig.Status)
		require.NotNil(t, orig.Cancellation)
		assert.Equal(t, reversal.ID, orig.Cancellation.ReversalVoucherID)

		check, err := env.queries.VerifyLedger(ctx, "A", "B1")
		require.NoError(t, err)
		assert.True(t, check.Consistent)
		assert.Equal(t, int64(5), check.Stock)

		eff, err := env.queries.EffectivePosition(ctx, "A", "B1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), eff.StockQuantity)
		assert.True(t, eff.AverageCost.Equal(decimal.NewFromInt(160)))
	})

	t.Run("stock insuficiente no deja rastro", func(t *testing.T) {
		env.receipt(t, "B1", "B", 2, 50)
		_, err := env.engine.CreateVoucher(ctx, ledger.CreateVoucherInput{
			Type: entity.VoucherGoodsIssue, BranchID: "B1", UserID: "u1",
			Items: []entity.LineItem{{SKU: "B", Quantity: -1}, {SKU: "B", Quantity: -5}},
		})
		require.Error(t, err)

		_, err = env.engine.CreateVoucher(ctx, ledger.CreateVoucherInput{
			Type: entity.VoucherGoodsIssue, BranchID: "B1", UserID: "u1",
			Items: []entity.LineItem{{SKU: "B", Quantity: -3}},
		})
		var stock *domain.InsufficientStockError
		require.ErrorAs(t, err, &stock)
		assert.Equal(t, int64(2), stock.Available)

		rows, err := env.queries.ListTransactions(ctx, repository.TransactionFilter{SKU: "B", BranchID: "B1"})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("salidas concurrentes serializan", func(t *testing.T) {
		env.receipt(t, "B1", "C", 10, 100)

		var (
			wg           sync.WaitGroup
			mu           sync.Mutex
			ok, rejected int
		)
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.engine.UpdateInventory(ctx, "C", "B1", -1, "ORD", "caj", entity.ReasonSale)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrInsufficientStock):
					rejected++
				default:
					t.Errorf("error inesperado: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, ok)
		assert.Equal(t, 2, rejected)

		check, err := env.queries.VerifyLedger(ctx, "C", "B1")
		require.NoError(t, err)
		assert.True(t, check.Consistent)
		assert.Equal(t, int64(0), check.Stock)
	})
}

func TestPostgres_TransferAndSale(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()
	log := logger.Nop()

	env.receipt(t, "B1", "X", 10, 100)
	env.receipt(t, "B2", "X", 5, 160)

	orch := transfer.NewOrchestrator(env.tx, env.repos, env.engine, env.events, nil, log)
	tr, err := orch.CreateTransferRequest(ctx, transfer.CreateTransferInput{
		SourceBranchID: "B1", DestinationBranchID: "B2", UserID: "u1",
		Items: []entity.TransferItem{{SKU: "X", Quantity: 5}},
	})
	require.NoError(t, err)
	_, err = orch.Dispatch(ctx, tr.ID, "u1")
	require.NoError(t, err)
	done, err := orch.Receive(ctx, tr.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, done.Status)

	b2, err := env.queries.GetInventory(ctx, "X", "B2")
	require.NoError(t, err)
	assert.Equal(t, int64(10), b2.StockQuantity)
	assert.True(t, b2.AverageCost.Equal(decimal.NewFromInt(130)), "costo %s", b2.AverageCost)

	incoming, err := orch.ListIncoming(ctx, "B2", []entity.TransferStatus{entity.TransferCompleted})
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	require.NotNil(t, incoming[0].Items[0].UnitCost)
	assert.True(t, incoming[0].Items[0].UnitCost.Equal(decimal.NewFromInt(100)))

	require.NoError(t, env.repos.Customers.Create(ctx, &entity.Customer{ID: "C1", Name: "Ana", TotalSpent: decimal.Zero}))
	svc := settlement.NewService(env.tx, env.repos, env.engine, nil, nil, 100, env.events, log)
	sale, err := svc.Checkout(ctx, settlement.CheckoutInput{
		OrderID: "ORD-PG-1", BranchID: "B2", CashierID: "caj", CustomerID: "C1",
		Items: []settlement.CartItem{{SKU: "X", Quantity: 2, UnitPrice: decimal.NewFromInt(300)}},
	})
	require.NoError(t, err)
	assert.True(t, sale.TotalCOGS.Equal(decimal.NewFromInt(260)), "cogs %s", sale.TotalCOGS)
	assert.Equal(t, int64(6), sale.PointsEarned)

	stored, err := svc.GetSale(ctx, "ORD-PG-1")
	require.NoError(t, err)
	assert.True(t, stored.GrandTotal.Equal(decimal.NewFromInt(600)))

	cust, err := env.repos.Customers.GetByID(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), cust.LoyaltyPoints)
	assert.True(t, cust.TotalSpent.Equal(decimal.NewFromInt(600)))

	_, err = svc.Checkout(ctx, settlement.CheckoutInput{
		OrderID: "ORD-PG-1", BranchID: "B2", CashierID: "caj",
		Items: []settlement.CartItem{{SKU: "X", Quantity: 1, UnitPrice: decimal.NewFromInt(300)}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

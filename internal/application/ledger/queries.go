package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// StockCache caché de lectura de registros de inventario. Las escrituras no la invalidan:
// el TTL corto acota cuánto puede atrasarse una lectura.
type StockCache interface {
	Get(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, bool, error)
	Set(ctx context.Context, rec *entity.InventoryRecord, ttl time.Duration) error
}

// QueryService lecturas del libro: stock, filas, vouchers, verificación y posición efectiva.
type QueryService struct {
	tx    repository.TxRunner
	repos repository.Repos
	cache StockCache
	ttl   time.Duration
	log   *logger.Logger
}

// NewQueryService construye el servicio. repos son los repositorios fuera de transacción (pool);
// cache puede ser nil.
func NewQueryService(tx repository.TxRunner, repos repository.Repos, cache StockCache, ttl time.Duration, log *logger.Logger) *QueryService {
	return &QueryService{tx: tx, repos: repos, cache: cache, ttl: ttl, log: log.Component("ledger-queries")}
}

// GetInventory lee el registro pasando por la caché. Un error de caché no falla la lectura.
func (q *QueryService) GetInventory(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error) {
	if sku == "" || branchID == "" {
		return nil, domain.NewValidationError("sku", "sku y sucursal son obligatorios")
	}
	if q.cache != nil {
		rec, ok, err := q.cache.Get(ctx, sku, branchID)
		if err != nil {
			q.log.Warn().Err(err).Str("sku", sku).Str("branch_id", branchID).Msg("caché de stock no disponible")
		} else if ok {
			return rec, nil
		}
	}
	rec, err := q.repos.Inventory.Get(ctx, sku, branchID)
	if err != nil {
		return nil, err
	}
	if q.cache != nil {
		if err := q.cache.Set(ctx, rec, q.ttl); err != nil {
			q.log.Warn().Err(err).Str("sku", sku).Msg("no se pudo guardar en caché")
		}
	}
	return rec, nil
}

// ListBranchInventory lista el inventario de una sucursal.
func (q *QueryService) ListBranchInventory(ctx context.Context, branchID string, limit, offset int) ([]*entity.InventoryRecord, error) {
	if branchID == "" {
		return nil, domain.NewValidationError("branch_id", "es obligatorio")
	}
	return q.repos.Inventory.ListByBranch(ctx, branchID, limit, offset)
}

// ListTransactions lista filas del libro, más recientes primero.
func (q *QueryService) ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]*entity.InventoryTransaction, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.NewValidationError("to", "debe ser posterior a from")
	}
	return q.repos.Ledger.List(ctx, f)
}

// GetVoucher obtiene un voucher o NotFoundError.
func (q *QueryService) GetVoucher(ctx context.Context, id string) (*entity.Voucher, error) {
	v, err := q.repos.Vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, domain.NewNotFoundError("voucher", id)
	}
	return v, nil
}

// ListVouchers lista vouchers filtrados.
func (q *QueryService) ListVouchers(ctx context.Context, f repository.VoucherFilter) ([]*entity.Voucher, error) {
	for _, t := range f.Types {
		if !t.Valid() {
			return nil, domain.NewValidationError("type", "tipo de voucher desconocido")
		}
	}
	return q.repos.Vouchers.List(ctx, f)
}

// LedgerCheck compara el stock guardado con la suma de deltas del libro.
type LedgerCheck struct {
	SKU         string
	BranchID    string
	Stock       int64
	SumOfDeltas int64
	Consistent  bool
}

// VerifyLedger lee registro y suma en la misma transacción para comparar una foto consistente.
func (q *QueryService) VerifyLedger(ctx context.Context, sku, branchID string) (*LedgerCheck, error) {
	var check *LedgerCheck
	err := q.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		rec, err := repos.Inventory.Get(ctx, sku, branchID)
		if err != nil {
			return err
		}
		sum, err := repos.Ledger.SumDeltas(ctx, sku, branchID)
		if err != nil {
			return err
		}
		check = &LedgerCheck{
			SKU: sku, BranchID: branchID, Stock: rec.StockQuantity, SumOfDeltas: sum,
			Consistent: rec.StockQuantity == sum,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !check.Consistent {
		q.log.Error().Str("sku", sku).Str("branch_id", branchID).Int64("stock", check.Stock).
			Int64("sum_deltas", check.SumOfDeltas).Msg("libro inconsistente con el stock")
	}
	return check, nil
}

// EffectivePosition posición reproducida desde el libro excluyendo vouchers anulados y sus reversiones.
type EffectivePosition struct {
	SKU              string
	BranchID         string
	StockQuantity    int64
	AverageCost      decimal.Decimal
	RowsApplied      int
	ExcludedVouchers []string
}

// EffectivePosition reproduce el libro de la clave en orden, como si los pares anulados nunca
// hubieran existido. El costo vivo no se toca: es una vista de reporte.
func (q *QueryService) EffectivePosition(ctx context.Context, sku, branchID string) (*EffectivePosition, error) {
	rows, err := q.repos.Ledger.ListByKey(ctx, sku, branchID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range rows {
		if !slices.Contains(ids, r.VoucherID) {
			ids = append(ids, r.VoucherID)
		}
	}
	vouchers, err := q.repos.Vouchers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool)
	for id, v := range vouchers {
		if v.Status != entity.VoucherStatusCancelled {
			continue
		}
		skip[id] = true
		if v.Cancellation != nil && v.Cancellation.ReversalVoucherID != "" {
			skip[v.Cancellation.ReversalVoucherID] = true
		}
	}
	excluded := make([]string, 0, len(skip))
	for id := range skip {
		excluded = append(excluded, id)
	}
	slices.Sort(excluded)

	pos := inventory.Replay(rows, skip)
	return &EffectivePosition{
		SKU:              sku,
		BranchID:         branchID,
		StockQuantity:    pos.StockQuantity,
		AverageCost:      pos.AverageCost,
		RowsApplied:      pos.Rows,
		ExcludedVouchers: excluded,
	}, nil
}

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/pos-ledger/internal/application/ledger")

// VoucherEngine crea vouchers y sus filas de libro en una sola transacción y mantiene
// el costo promedio ponderado por SKU y sucursal.
type VoucherEngine struct {
	tx     repository.TxRunner
	events events.Publisher
	log    *logger.Logger
	now    func() time.Time
}

// NewVoucherEngine construye el motor. pub puede ser nil (no se publican eventos).
func NewVoucherEngine(tx repository.TxRunner, pub events.Publisher, log *logger.Logger) *VoucherEngine {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &VoucherEngine{tx: tx, events: pub, log: log.Component("ledger"), now: func() time.Time { return time.Now().UTC() }}
}

// WithClock fija el reloj (tests).
func (e *VoucherEngine) WithClock(now func() time.Time) *VoucherEngine {
	e.now = now
	return e
}

// CreateVoucherInput entrada de CreateVoucher. Date vacío = ahora.
type CreateVoucherInput struct {
	Type      entity.VoucherType
	BranchID  string
	UserID    string
	Items     []entity.LineItem
	Date      time.Time
	Notes     string
	Reference string
	Metadata  map[string]string

	reversesVoucherID string
}

// VoucherResult resultado de CreateVoucher. NoChanges indica un ajuste sin diferencias: no se creó voucher.
type VoucherResult struct {
	Voucher   *entity.Voucher
	NoChanges bool
}

// CreateVoucher valida, aplica todas las líneas y guarda el voucher en una transacción.
func (e *VoucherEngine) CreateVoucher(ctx context.Context, in CreateVoucherInput) (_ *VoucherResult, err error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateVoucher", trace.WithAttributes(
		attribute.String("voucher.type", string(in.Type)),
		attribute.String("branch.id", in.BranchID),
		attribute.Int("voucher.items", len(in.Items)),
	))
	defer func() { endSpan(span, err) }()

	if err := validateVoucherInput(in); err != nil {
		return nil, err
	}
	if _, ok := in.Metadata[entity.MetadataTransferID]; ok {
		return nil, domain.NewValidationError("metadata."+entity.MetadataTransferID, "clave reservada para traslados")
	}

	var res *VoucherResult
	err = e.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		res, err = e.applyVoucher(ctx, repos, in)
		return err
	})
	if err != nil {
		e.log.WithTrace(ctx).Warn().Err(err).Str("type", string(in.Type)).Str("branch_id", in.BranchID).Msg("voucher rechazado")
		return nil, err
	}
	if res.NoChanges {
		e.log.WithTrace(ctx).Info().Str("type", string(in.Type)).Str("branch_id", in.BranchID).Msg("ajuste sin cambios; voucher no creado")
		return res, nil
	}

	span.SetAttributes(attribute.String("voucher.id", res.Voucher.ID))
	e.log.WithTrace(ctx).Info().Str("voucher_id", res.Voucher.ID).Str("type", string(res.Voucher.Type)).
		Str("branch_id", res.Voucher.BranchID).Int("items", len(res.Voucher.Items)).Msg("voucher creado")
	events.Emit(ctx, e.events, e.log, voucherEvent(events.VoucherCreated, res.Voucher))
	return res, nil
}

// CreateVoucherInTx igual que CreateVoucher pero dentro de la transacción del caller.
// El caller publica los eventos después de confirmar.
func (e *VoucherEngine) CreateVoucherInTx(ctx context.Context, repos repository.Repos, in CreateVoucherInput) (*VoucherResult, error) {
	if err := validateVoucherInput(in); err != nil {
		return nil, err
	}
	return e.applyVoucher(ctx, repos, in)
}

type plannedLine struct {
	item  entity.LineItem
	delta int64
	rec   *entity.InventoryRecord
	mv    inventory.Movement
}

// applyVoucher: lee en lote todas las claves, calcula cada movimiento y solo entonces escribe.
func (e *VoucherEngine) applyVoucher(ctx context.Context, repos repository.Repos, in CreateVoucherInput) (*VoucherResult, error) {
	skus := make([]string, len(in.Items))
	for i, it := range in.Items {
		skus[i] = it.SKU
	}
	records, err := repos.Inventory.GetManyForUpdate(ctx, in.BranchID, skus)
	if err != nil {
		return nil, err
	}

	plan := make([]plannedLine, 0, len(in.Items))
	for i, it := range in.Items {
		rec := records[it.SKU]
		if rec == nil {
			rec = entity.EmptyInventoryRecord(it.SKU, in.BranchID)
		}
		delta := it.Quantity
		if in.Type.IsAdjustment() {
			delta = *it.ActualQuantity - rec.StockQuantity
			if delta == 0 {
				continue
			}
		}
		mv, ok := inventory.Apply(rec.StockQuantity, rec.AverageCost, delta, it.PurchasePrice)
		if !ok && delta > 0 {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("el stock de %s superaría el máximo de %d", it.SKU, inventory.MaxStock))
		}
		if !ok {
			return nil, &domain.InsufficientStockError{
				SKU: it.SKU, BranchID: in.BranchID, Available: rec.StockQuantity, Requested: -delta,
			}
		}
		plan = append(plan, plannedLine{item: it, delta: delta, rec: rec, mv: mv})
	}
	if len(plan) == 0 {
		return &VoucherResult{NoChanges: true}, nil
	}

	now := e.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	voucher := &entity.Voucher{
		ID:                inventory.NewVoucherID(in.Type),
		Type:              in.Type,
		BranchID:          in.BranchID,
		CreatedBy:         in.UserID,
		Status:            entity.VoucherStatusCompleted,
		Items:             make([]entity.VoucherItem, 0, len(plan)),
		VoucherDate:       date,
		Notes:             in.Notes,
		Reference:         in.Reference,
		Metadata:          in.Metadata,
		CreatedAt:         now,
		ReversesVoucherID: in.reversesVoucherID,
	}

	for _, p := range plan {
		p.rec.StockQuantity = p.mv.QuantityAfter
		p.rec.AverageCost = p.mv.CostAfter
		p.rec.LastUpdated = now
		if err := repos.Inventory.Upsert(ctx, p.rec); err != nil {
			return nil, err
		}
		row := &entity.InventoryTransaction{
			ID:                uuid.New().String(),
			VoucherID:         voucher.ID,
			SKU:               p.item.SKU,
			BranchID:          in.BranchID,
			Delta:             p.delta,
			QuantityBefore:    p.mv.QuantityBefore,
			QuantityAfter:     p.mv.QuantityAfter,
			CostAtTransaction: p.mv.CostBefore,
			PurchasePrice:     p.item.PurchasePrice,
			UserID:            in.UserID,
			Reason:            entity.ReasonVoucher,
			CreatedAt:         now,
		}
		if err := repos.Ledger.Create(ctx, row); err != nil {
			return nil, err
		}
		voucher.Items = append(voucher.Items, entity.VoucherItem{
			SKU:               p.item.SKU,
			Quantity:          p.delta,
			ActualQuantity:    p.item.ActualQuantity,
			PurchasePrice:     p.item.PurchasePrice,
			CostAtTransaction: p.mv.CostBefore,
			TransactionID:     row.ID,
		})
	}
	if err := repos.Vouchers.Create(ctx, voucher); err != nil {
		return nil, err
	}
	return &VoucherResult{Voucher: voucher}, nil
}

// CancelVoucher anula un voucher creando su reversión (deltas negados, mismo precio de compra)
// y marcando el original como CANCELLED, todo en una transacción. Devuelve el voucher de reversión.
func (e *VoucherEngine) CancelVoucher(ctx context.Context, voucherID, userID, reason string) (_ *entity.Voucher, err error) {
	ctx, span := tracer.Start(ctx, "ledger.CancelVoucher", trace.WithAttributes(attribute.String("voucher.id", voucherID)))
	defer func() { endSpan(span, err) }()

	if voucherID == "" {
		return nil, domain.NewValidationError("voucher_id", "es obligatorio")
	}
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "es obligatorio")
	}

	var original, reversal *entity.Voucher
	err = e.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		v, err := repos.Vouchers.GetForUpdate(ctx, voucherID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.NewNotFoundError("voucher", voucherID)
		}
		if v.Status == entity.VoucherStatusCancelled {
			return domain.NewInvalidStateError("voucher", voucherID, string(v.Status), string(entity.VoucherStatusCompleted))
		}
		if v.Type.IsReversal() {
			return domain.NewInvalidStateError("voucher", voucherID, string(v.Type), "voucher no reversión")
		}
		if tid := v.TransferID(); tid != "" {
			return domain.NewInvalidStateError("voucher", voucherID, "traslado "+tid, "voucher sin traslado")
		}

		items := make([]entity.LineItem, len(v.Items))
		for i, it := range v.Items {
			items[i] = entity.LineItem{SKU: it.SKU, Quantity: -it.Quantity, PurchasePrice: it.PurchasePrice}
		}
		res, err := e.applyVoucher(ctx, repos, CreateVoucherInput{
			Type:              v.Type.Reversal(),
			BranchID:          v.BranchID,
			UserID:            userID,
			Items:             items,
			Notes:             reason,
			Reference:         v.ID,
			reversesVoucherID: v.ID,
		})
		if err != nil {
			return err
		}
		info := entity.VoucherCancellation{
			UserID:            userID,
			At:                res.Voucher.CreatedAt,
			Reason:            reason,
			ReversalVoucherID: res.Voucher.ID,
		}
		if err := repos.Vouchers.MarkCancelled(ctx, v.ID, info); err != nil {
			return err
		}
		v.Status = entity.VoucherStatusCancelled
		v.Cancellation = &info
		original, reversal = v, res.Voucher
		return nil
	})
	if err != nil {
		e.log.WithTrace(ctx).Warn().Err(err).Str("voucher_id", voucherID).Msg("anulación rechazada")
		return nil, err
	}

	e.log.WithTrace(ctx).Info().Str("voucher_id", original.ID).Str("reversal_id", reversal.ID).Str("user_id", userID).Msg("voucher anulado")
	events.Emit(ctx, e.events, e.log,
		voucherEvent(events.VoucherCreated, reversal),
		voucherEvent(events.VoucherCancelled, original),
	)
	return reversal, nil
}

// UpdateInventory aplica un delta a un único SKU con una fila de libro y sin voucher.
// Devuelve el costo promedio vigente al momento de la llamada. delta == 0 es solo lectura.
func (e *VoucherEngine) UpdateInventory(ctx context.Context, sku, branchID string, delta int64, refID, userID, reason string) (_ decimal.Decimal, err error) {
	ctx, span := tracer.Start(ctx, "ledger.UpdateInventory", trace.WithAttributes(
		attribute.String("sku", sku), attribute.String("branch.id", branchID), attribute.Int64("delta", delta),
	))
	defer func() { endSpan(span, err) }()

	var cost decimal.Decimal
	err = e.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		cost, err = e.UpdateInventoryInTx(ctx, repos, sku, branchID, delta, refID, userID, reason)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return cost, nil
}

// UpdateInventoryInTx igual que UpdateInventory dentro de la transacción del caller (liquidación de órdenes).
func (e *VoucherEngine) UpdateInventoryInTx(ctx context.Context, repos repository.Repos, sku, branchID string, delta int64, refID, userID, reason string) (decimal.Decimal, error) {
	return e.UpdateInventoryPricedInTx(ctx, repos, InventoryUpdate{
		SKU: sku, BranchID: branchID, Delta: delta, RefID: refID, UserID: userID, Reason: reason,
	})
}

// InventoryUpdate movimiento de un SKU sin voucher. PurchasePrice solo aplica a entradas.
type InventoryUpdate struct {
	SKU           string
	BranchID      string
	Delta         int64
	RefID         string
	UserID        string
	Reason        string
	PurchasePrice *decimal.Decimal
}

// UpdateInventoryPricedInTx variante con precio de compra para flujos de entrada.
func (e *VoucherEngine) UpdateInventoryPricedInTx(ctx context.Context, repos repository.Repos, u InventoryUpdate) (decimal.Decimal, error) {
	switch {
	case u.SKU == "":
		return decimal.Zero, domain.NewValidationError("sku", "es obligatorio")
	case u.BranchID == "":
		return decimal.Zero, domain.NewValidationError("branch_id", "es obligatorio")
	case u.RefID == "":
		return decimal.Zero, domain.NewValidationError("ref_id", "es obligatorio")
	case u.PurchasePrice != nil && u.PurchasePrice.IsNegative():
		return decimal.Zero, domain.NewValidationError("purchase_price", "debe ser >= 0")
	}

	rec, err := repos.Inventory.GetForUpdate(ctx, u.SKU, u.BranchID)
	if err != nil {
		return decimal.Zero, err
	}
	if u.Delta == 0 {
		return rec.AverageCost, nil
	}
	mv, ok := inventory.Apply(rec.StockQuantity, rec.AverageCost, u.Delta, u.PurchasePrice)
	if !ok && u.Delta > 0 {
		return decimal.Zero, domain.NewValidationError("delta", fmt.Sprintf("el stock superaría el máximo de %d", inventory.MaxStock))
	}
	if !ok {
		return decimal.Zero, &domain.InsufficientStockError{
			SKU: u.SKU, BranchID: u.BranchID, Available: rec.StockQuantity, Requested: -u.Delta,
		}
	}

	now := e.now()
	rec.StockQuantity = mv.QuantityAfter
	rec.AverageCost = mv.CostAfter
	rec.LastUpdated = now
	if err := repos.Inventory.Upsert(ctx, rec); err != nil {
		return decimal.Zero, err
	}
	reason := u.Reason
	if reason == "" {
		reason = entity.ReasonDirect
	}
	row := &entity.InventoryTransaction{
		ID:                uuid.New().String(),
		VoucherID:         u.RefID,
		SKU:               u.SKU,
		BranchID:          u.BranchID,
		Delta:             u.Delta,
		QuantityBefore:    mv.QuantityBefore,
		QuantityAfter:     mv.QuantityAfter,
		CostAtTransaction: mv.CostBefore,
		PurchasePrice:     u.PurchasePrice,
		UserID:            u.UserID,
		Reason:            reason,
		CreatedAt:         now,
	}
	if err := repos.Ledger.Create(ctx, row); err != nil {
		return decimal.Zero, err
	}
	return mv.CostBefore, nil
}

func voucherEvent(typ string, v *entity.Voucher) events.Event {
	at := v.CreatedAt
	if v.Cancellation != nil {
		at = v.Cancellation.At
	}
	return events.Event{Type: typ, Key: v.ID, OccurredAt: at, Payload: dto.ToVoucherResponse(v)}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

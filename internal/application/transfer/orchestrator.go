// Package transfer orquesta los traslados entre sucursales: despacho y recepción
// se componen de dos vouchers del motor de inventario.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/pos-ledger/internal/application/transfer")

// ErrNoDeliveryNote: no hay generador de remisiones configurado.
var ErrNoDeliveryNote = errors.New("generador de remisiones no configurado")

// Orchestrator máquina de estados del traslado:
// PENDING -> IN_TRANSIT -> COMPLETED, o PENDING -> CANCELLED.
type Orchestrator struct {
	tx     repository.TxRunner
	repos  repository.Repos
	engine *ledger.VoucherEngine
	events events.Publisher
	notes  DeliveryNoteGenerator
	log    *logger.Logger
	now    func() time.Time
}

// NewOrchestrator construye el orquestador. repos son los repositorios fuera de transacción;
// pub y notes pueden ser nil.
func NewOrchestrator(tx repository.TxRunner, repos repository.Repos, engine *ledger.VoucherEngine, pub events.Publisher, notes DeliveryNoteGenerator, log *logger.Logger) *Orchestrator {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Orchestrator{
		tx:     tx,
		repos:  repos,
		engine: engine,
		events: pub,
		notes:  notes,
		log:    log.Component("transfer"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fija el reloj (tests).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// CreateTransferInput solicitud de traslado.
type CreateTransferInput struct {
	SourceBranchID      string
	DestinationBranchID string
	Items               []entity.TransferItem
	Notes               string
	UserID              string
}

func validateCreate(in CreateTransferInput) error {
	switch {
	case in.SourceBranchID == "":
		return domain.NewValidationError("source_branch_id", "es obligatorio")
	case in.DestinationBranchID == "":
		return domain.NewValidationError("destination_branch_id", "es obligatorio")
	case in.SourceBranchID == in.DestinationBranchID:
		return domain.NewValidationError("destination_branch_id", "debe ser distinta de la sucursal origen")
	case in.UserID == "":
		return domain.NewValidationError("user_id", "es obligatorio")
	case len(in.Items) == 0:
		return domain.NewValidationError("items", "el traslado no tiene líneas")
	}
	seen := make(map[string]bool, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.SKU == "" {
			return domain.NewValidationError(field+".sku", "es obligatorio")
		}
		if seen[it.SKU] {
			return domain.NewValidationError(field+".sku", fmt.Sprintf("SKU %s repetido en el traslado", it.SKU))
		}
		seen[it.SKU] = true
		if it.Quantity <= 0 {
			return domain.NewValidationError(field+".quantity", "debe ser > 0")
		}
	}
	return nil
}

// CreateTransferRequest registra un traslado PENDING. No mueve stock.
func (o *Orchestrator) CreateTransferRequest(ctx context.Context, in CreateTransferInput) (*entity.StockTransfer, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	now := o.now()
	items := make([]entity.TransferItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = entity.TransferItem{SKU: it.SKU, Quantity: it.Quantity}
	}
	t := &entity.StockTransfer{
		ID:                  inventory.NewTransferID(now),
		SourceBranchID:      in.SourceBranchID,
		DestinationBranchID: in.DestinationBranchID,
		Items:               items,
		Status:              entity.TransferPending,
		Notes:               in.Notes,
		CreatedBy:           in.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := o.repos.Transfers.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("crear traslado: %w", err)
	}
	o.log.WithTrace(ctx).Info().Str("transfer_id", t.ID).Str("source", t.SourceBranchID).
		Str("destination", t.DestinationBranchID).Int("items", len(t.Items)).Msg("traslado creado")
	events.Emit(ctx, o.events, o.log, transferEvent(events.TransferCreated, t, t.CreatedAt))
	return t, nil
}

// Dispatch descuenta el stock en origen (GOODS_ISSUE) y fija el costo unitario de cada línea.
func (o *Orchestrator) Dispatch(ctx context.Context, id, userID string) (_ *entity.StockTransfer, err error) {
	ctx, span := tracer.Start(ctx, "transfer.Dispatch", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return nil, domain.NewValidationError("user_id", "es obligatorio")
	}

	var t *entity.StockTransfer
	var voucher *entity.Voucher
	err = o.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		t, err = loadForUpdate(ctx, repos, id, entity.TransferPending)
		if err != nil {
			return err
		}
		items := make([]entity.LineItem, len(t.Items))
		for i, it := range t.Items {
			items[i] = entity.LineItem{SKU: it.SKU, Quantity: -it.Quantity}
		}
		res, err := o.engine.CreateVoucherInTx(ctx, repos, ledger.CreateVoucherInput{
			Type:      entity.VoucherGoodsIssue,
			BranchID:  t.SourceBranchID,
			UserID:    userID,
			Items:     items,
			Notes:     "Despacho de traslado " + t.ID,
			Reference: t.ID,
			Metadata:  map[string]string{entity.MetadataTransferID: t.ID},
		})
		if err != nil {
			return err
		}
		voucher = res.Voucher

		costs := make(map[string]entity.VoucherItem, len(voucher.Items))
		for _, vi := range voucher.Items {
			costs[vi.SKU] = vi
		}
		for i := range t.Items {
			cost := costs[t.Items[i].SKU].CostAtTransaction
			t.Items[i].UnitCost = &cost
		}
		now := o.now()
		t.DispatchInfo = &entity.TransferStamp{UserID: userID, At: now, VoucherID: voucher.ID}
		t.Status = entity.TransferInTransit
		t.UpdatedAt = now
		return repos.Transfers.Update(ctx, t)
	})
	if err != nil {
		o.log.WithTrace(ctx).Warn().Err(err).Str("transfer_id", id).Msg("despacho rechazado")
		return nil, err
	}

	o.log.WithTrace(ctx).Info().Str("transfer_id", t.ID).Str("voucher_id", voucher.ID).Str("user_id", userID).Msg("traslado despachado")
	events.Emit(ctx, o.events, o.log,
		events.Event{Type: events.VoucherCreated, Key: voucher.ID, OccurredAt: voucher.CreatedAt, Payload: dto.ToVoucherResponse(voucher)},
		transferEvent(events.TransferDispatched, t, t.DispatchInfo.At),
	)
	return t, nil
}

// Receive acredita el stock en destino (GOODS_RECEIPT) al costo capturado en el despacho.
func (o *Orchestrator) Receive(ctx context.Context, id, userID string) (_ *entity.StockTransfer, err error) {
	ctx, span := tracer.Start(ctx, "transfer.Receive", trace.WithAttributes(attribute.String("transfer.id", id)))
	defer func() { endSpan(span, err) }()

	if userID == "" {
		return nil, domain.NewValidationError("user_id", "es obligatorio")
	}

	var t *entity.StockTransfer
	var voucher *entity.Voucher
	err = o.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		var err error
		t, err = loadForUpdate(ctx, repos, id, entity.TransferInTransit)
		if err != nil {
			return err
		}
		items := make([]entity.LineItem, len(t.Items))
		for i, it := range t.Items {
			items[i] = entity.LineItem{SKU: it.SKU, Quantity: it.Quantity, PurchasePrice: it.UnitCost}
		}
		res, err := o.engine.CreateVoucherInTx(ctx, repos, ledger.CreateVoucherInput{
			Type:      entity.VoucherGoodsReceipt,
			BranchID:  t.DestinationBranchID,
			UserID:    userID,
			Items:     items,
			Notes:     "Recepción de traslado " + t.ID,
			Reference: t.ID,
			Metadata:  map[string]string{entity.MetadataTransferID: t.ID},
		})
		if err != nil {
			return err
		}
		voucher = res.Voucher

		now := o.now()
		t.ReceiptInfo = &entity.TransferStamp{UserID: userID, At: now, VoucherID: voucher.ID}
		t.Status = entity.TransferCompleted
		t.UpdatedAt = now
		return repos.Transfers.Update(ctx, t)
	})
	if err != nil {
		o.log.WithTrace(ctx).Warn().Err(err).Str("transfer_id", id).Msg("recepción rechazada")
		return nil, err
	}

	o.log.WithTrace(ctx).Info().Str("transfer_id", t.ID).Str("voucher_id", voucher.ID).Str("user_id", userID).Msg("traslado recibido")
	events.Emit(ctx, o.events, o.log,
		events.Event{Type: events.VoucherCreated, Key: voucher.ID, OccurredAt: voucher.CreatedAt, Payload: dto.ToVoucherResponse(voucher)},
		transferEvent(events.TransferReceived, t, t.ReceiptInfo.At),
	)
	return t, nil
}

// Cancel cancela un traslado PENDING con una sola escritura condicionada al estado;
// un despacho concurrente gana o pierde completo.
func (o *Orchestrator) Cancel(ctx context.Context, id, userID, reason string) (*entity.StockTransfer, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "es obligatorio")
	}
	info := entity.TransferCancellation{UserID: userID, At: o.now(), Reason: reason}
	ok, err := o.repos.Transfers.CancelIfPending(ctx, id, info)
	if err != nil {
		return nil, fmt.Errorf("cancelar traslado: %w", err)
	}
	t, err := o.repos.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewNotFoundError("traslado", id)
	}
	if !ok {
		return nil, domain.NewInvalidStateError("traslado", id, string(t.Status), string(entity.TransferPending))
	}

	o.log.WithTrace(ctx).Info().Str("transfer_id", id).Str("user_id", userID).Str("reason", reason).Msg("traslado cancelado")
	events.Emit(ctx, o.events, o.log, transferEvent(events.TransferCancelled, t, info.At))
	return t, nil
}

// Get obtiene un traslado o NotFoundError.
func (o *Orchestrator) Get(ctx context.Context, id string) (*entity.StockTransfer, error) {
	t, err := o.repos.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewNotFoundError("traslado", id)
	}
	return t, nil
}

// ListOutgoing traslados con origen en la sucursal, más recientes primero.
func (o *Orchestrator) ListOutgoing(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	if err := validateListing(branchID, statuses); err != nil {
		return nil, err
	}
	return o.repos.Transfers.ListBySource(ctx, branchID, statuses)
}

// ListIncoming traslados con destino en la sucursal, más recientes primero.
func (o *Orchestrator) ListIncoming(ctx context.Context, branchID string, statuses []entity.TransferStatus) ([]*entity.StockTransfer, error) {
	if err := validateListing(branchID, statuses); err != nil {
		return nil, err
	}
	return o.repos.Transfers.ListByDestination(ctx, branchID, statuses)
}

// DeliveryNote genera la remisión en PDF. Un traslado cancelado no tiene remisión.
func (o *Orchestrator) DeliveryNote(ctx context.Context, id string) ([]byte, error) {
	if o.notes == nil {
		return nil, ErrNoDeliveryNote
	}
	t, err := o.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == entity.TransferCancelled {
		return nil, domain.NewInvalidStateError("traslado", id, string(t.Status), "")
	}
	return o.notes.GenerateDeliveryNote(ctx, t)
}

func validateListing(branchID string, statuses []entity.TransferStatus) error {
	if branchID == "" {
		return domain.NewValidationError("branch_id", "es obligatorio")
	}
	for _, s := range statuses {
		if !s.Valid() {
			return domain.NewValidationError("status", fmt.Sprintf("estado desconocido %q", s))
		}
	}
	return nil
}

func loadForUpdate(ctx context.Context, repos repository.Repos, id string, required entity.TransferStatus) (*entity.StockTransfer, error) {
	t, err := repos.Transfers.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewNotFoundError("traslado", id)
	}
	if t.Status != required {
		return nil, domain.NewInvalidStateError("traslado", id, string(t.Status), string(required))
	}
	return t, nil
}

func transferEvent(typ string, t *entity.StockTransfer, at time.Time) events.Event {
	return events.Event{Type: typ, Key: t.ID, OccurredAt: at, Payload: dto.ToTransferResponse(t)}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

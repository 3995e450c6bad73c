// Package settlement liquida órdenes del POS: descuenta stock con el primitivo del libro,
// reparte el descuento manual, calcula el costo de ventas y registra la venta en una transacción.
package settlement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/pos-ledger/internal/application/settlement")

// Service adaptador de liquidación de órdenes.
type Service struct {
	tx             repository.TxRunner
	repos          repository.Repos
	engine         *ledger.VoucherEngine
	pricing        PricingResolver
	stats          CustomerStatsUpdater
	amountPerPoint int64
	events         events.Publisher
	log            *logger.Logger
	now            func() time.Time
}

// NewService construye el servicio. pricing y stats nil usan ListPriceResolver y LoyaltyStatsUpdater.
func NewService(
	tx repository.TxRunner,
	repos repository.Repos,
	engine *ledger.VoucherEngine,
	pricing PricingResolver,
	stats CustomerStatsUpdater,
	amountPerPoint int64,
	pub events.Publisher,
	log *logger.Logger,
) *Service {
	if pricing == nil {
		pricing = ListPriceResolver{}
	}
	if stats == nil {
		stats = LoyaltyStatsUpdater{}
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		tx:             tx,
		repos:          repos,
		engine:         engine,
		pricing:        pricing,
		stats:          stats,
		amountPerPoint: amountPerPoint,
		events:         pub,
		log:            log.Component("settlement"),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fija el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SettleOrderInput orden con el carrito ya resuelto. OrderID vacío genera uno nuevo.
type SettleOrderInput struct {
	OrderID      string
	BranchID     string
	CashierID    string
	CustomerID   string
	Cart         PricedCart
	PromotionRef string
}

// CheckoutInput orden con el carrito sin resolver; pasa por PricingResolver antes de liquidar.
type CheckoutInput struct {
	OrderID        string
	BranchID       string
	CashierID      string
	CustomerID     string
	Items          []CartItem
	ManualDiscount ManualDiscountInput
	PromotionRef   string
}

// Checkout resuelve precios y liquida la orden.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*entity.Sale, error) {
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("items", "el carrito está vacío")
	}
	cart, err := s.pricing.ResolveCartPricing(ctx, in.Items, in.CustomerID, in.ManualDiscount)
	if err != nil {
		return nil, err
	}
	return s.SettleOrder(ctx, SettleOrderInput{
		OrderID:      in.OrderID,
		BranchID:     in.BranchID,
		CashierID:    in.CashierID,
		CustomerID:   in.CustomerID,
		Cart:         *cart,
		PromotionRef: in.PromotionRef,
	})
}

func validateSettle(in SettleOrderInput) error {
	switch {
	case in.BranchID == "":
		return domain.NewValidationError("branch_id", "es obligatorio")
	case in.CashierID == "":
		return domain.NewValidationError("cashier_id", "es obligatorio")
	case len(in.Cart.Items) == 0:
		return domain.NewValidationError("items", "la orden no tiene líneas")
	case in.Cart.TotalManualDiscount.IsNegative():
		return domain.NewValidationError("total_manual_discount", "debe ser >= 0")
	case in.Cart.GrandTotal.IsNegative():
		return domain.NewValidationError("grand_total", "debe ser >= 0")
	}
	seen := make(map[string]bool, len(in.Cart.Items))
	for i, it := range in.Cart.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.SKU == "":
			return domain.NewValidationError(field+".sku", "es obligatorio")
		case seen[it.SKU]:
			return domain.NewValidationError(field+".sku", fmt.Sprintf("SKU %s repetido en la orden", it.SKU))
		case it.Quantity <= 0:
			return domain.NewValidationError(field+".quantity", "debe ser > 0")
		case it.AutoDiscount.IsNegative():
			return domain.NewValidationError(field+".auto_discount", "debe ser >= 0")
		}
		seen[it.SKU] = true
	}
	return nil
}

// SettleOrder descuenta el stock de cada línea, toma el costo promedio vigente como costo de ventas,
// actualiza al cliente y guarda la venta. Cualquier fallo revierte la orden completa.
func (s *Service) SettleOrder(ctx context.Context, in SettleOrderInput) (_ *entity.Sale, err error) {
	ctx, span := tracer.Start(ctx, "settlement.SettleOrder", trace.WithAttributes(
		attribute.String("branch.id", in.BranchID),
		attribute.Int("order.items", len(in.Cart.Items)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := validateSettle(in); err != nil {
		return nil, err
	}
	orderID := in.OrderID
	if orderID == "" {
		orderID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("order.id", orderID))

	bases := make([]decimal.Decimal, len(in.Cart.Items))
	skus := make([]string, len(in.Cart.Items))
	for i, it := range in.Cart.Items {
		bases[i] = it.LineSubtotal.Sub(it.AutoDiscount)
		skus[i] = it.SKU
	}
	manual := apportion(bases, in.Cart.TotalManualDiscount)
	points := int64(0)
	if in.CustomerID != "" {
		points = pointsFor(in.Cart.GrandTotal, s.amountPerPoint)
	}

	var sale *entity.Sale
	err = s.tx.Run(ctx, func(ctx context.Context, repos repository.Repos) error {
		existing, err := repos.Sales.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.NewInvalidStateError("orden", orderID, existing.Status, "no liquidada")
		}
		if _, err := repos.Inventory.GetManyForUpdate(ctx, in.BranchID, skus); err != nil {
			return err
		}

		now := s.now()
		sale = &entity.Sale{
			ID:                  orderID,
			BranchID:            in.BranchID,
			CashierID:           in.CashierID,
			CustomerID:          in.CustomerID,
			Items:               make([]entity.SaleItem, len(in.Cart.Items)),
			Subtotal:            in.Cart.Subtotal,
			TotalAutoDiscount:   in.Cart.TotalAutoDiscount,
			TotalManualDiscount: in.Cart.TotalManualDiscount,
			GrandTotal:          in.Cart.GrandTotal,
			TotalCOGS:           decimal.Zero,
			PromotionRef:        in.PromotionRef,
			PointsEarned:        points,
			Status:              entity.SaleStatusCompleted,
			CreatedAt:           now,
		}
		for i, it := range in.Cart.Items {
			cost, err := s.engine.UpdateInventoryInTx(ctx, repos, it.SKU, in.BranchID, -it.Quantity, orderID, in.CashierID, entity.ReasonSale)
			if err != nil {
				return err
			}
			cogs := cost.Mul(decimal.NewFromInt(it.Quantity))
			sale.Items[i] = entity.SaleItem{
				SKU:            it.SKU,
				Quantity:       it.Quantity,
				UnitPrice:      it.UnitPrice,
				LineSubtotal:   it.LineSubtotal,
				AutoDiscount:   it.AutoDiscount,
				ManualDiscount: manual[i],
				LineTotal:      bases[i].Sub(manual[i]),
				UnitCost:       cost,
				COGS:           cogs,
			}
			sale.TotalCOGS = sale.TotalCOGS.Add(cogs)
		}

		if in.CustomerID != "" {
			if err := s.stats.UpdateCustomerStats(ctx, repos.Customers, in.CustomerID, in.Cart.GrandTotal, points); err != nil {
				return err
			}
		}
		return repos.Sales.Create(ctx, sale)
	})
	if err != nil {
		s.log.WithTrace(ctx).Warn().Err(err).Str("order_id", orderID).Str("branch_id", in.BranchID).Msg("liquidación rechazada")
		return nil, err
	}

	s.log.WithTrace(ctx).Info().Str("order_id", sale.ID).Str("branch_id", sale.BranchID).Str("cashier_id", sale.CashierID).
		Str("grand_total", sale.GrandTotal.StringFixed(2)).Str("cogs", sale.TotalCOGS.StringFixed(2)).Msg("orden liquidada")
	events.Emit(ctx, s.events, s.log, events.Event{
		Type: events.SaleSettled, Key: sale.ID, OccurredAt: sale.CreatedAt, Payload: dto.ToSaleResponse(sale),
	})
	return sale, nil
}

// GetSale obtiene una venta liquidada o NotFoundError.
func (s *Service) GetSale(ctx context.Context, id string) (*entity.Sale, error) {
	sale, err := s.repos.Sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.NewNotFoundError("venta", id)
	}
	return sale, nil
}

// apportion reparte total entre las bases de forma proporcional a 2 decimales (resto mayor):
// cada parte se trunca al centavo y los centavos sobrantes van a las líneas con mayor fracción
// descartada; en empate, a la última. Las partes suman total y ninguna queda negativa.
func apportion(bases []decimal.Decimal, total decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(bases))
	sum := decimal.Zero
	for i, b := range bases {
		shares[i] = decimal.Zero
		sum = sum.Add(b)
	}
	if sum.IsZero() || total.IsZero() {
		return shares
	}

	cent := decimal.New(1, -2)
	rest := make([]decimal.Decimal, len(bases))
	order := make([]int, 0, len(bases))
	assigned := decimal.Zero
	for i, b := range bases {
		if b.IsZero() {
			continue
		}
		exact := b.Mul(total).Div(sum)
		shares[i] = exact.RoundFloor(2)
		rest[i] = exact.Sub(shares[i])
		assigned = assigned.Add(shares[i])
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		if c := rest[order[a]].Cmp(rest[order[b]]); c != 0 {
			return c > 0
		}
		return order[a] > order[b]
	})

	residue := total.Sub(assigned)
	for k := 0; residue.GreaterThanOrEqual(cent) && len(order) > 0; k = (k + 1) % len(order) {
		shares[order[k]] = shares[order[k]].Add(cent)
		residue = residue.Sub(cent)
	}
	// total con más de 2 decimales: la fracción restante va a la primera del orden
	if residue.IsPositive() && len(order) > 0 {
		shares[order[0]] = shares[order[0]].Add(residue)
	}
	return shares
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo persiste ventas liquidadas en la tabla transactions (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create inserta la venta. Una orden se liquida una sola vez (id = order_id).
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	query := `
		INSERT INTO transactions (id, branch_id, cashier_id, customer_id, items, subtotal, total_auto_discount,
			total_manual_discount, grand_total, total_cogs, promotion_ref, points_earned, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		s.ID, s.BranchID, s.CashierID, nullString(s.CustomerID), s.Items, s.Subtotal, s.TotalAutoDiscount,
		s.TotalManualDiscount, s.GrandTotal, s.TotalCOGS, nullString(s.PromotionRef), s.PointsEarned,
		s.Status, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("orden %s ya liquidada: %w", s.ID, err)
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// GetByID obtiene una venta por ID.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	query := `
		SELECT id, branch_id, cashier_id, customer_id, items, subtotal, total_auto_discount,
		       total_manual_discount, grand_total, total_cogs, promotion_ref, points_earned, status, created_at
		FROM transactions WHERE id = $1`
	var s entity.Sale
	var customerID, promotionRef *string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.BranchID, &s.CashierID, &customerID, &s.Items, &s.Subtotal, &s.TotalAutoDiscount,
		&s.TotalManualDiscount, &s.GrandTotal, &s.TotalCOGS, &promotionRef, &s.PointsEarned, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.CustomerID = derefString(customerID)
	s.PromotionRef = derefString(promotionRef)
	return &s, nil
}

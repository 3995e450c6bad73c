package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// Create persiste un nuevo cliente.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO customers (id, name, total_spent, loyalty_points, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.TotalSpent, c.LoyaltyPoints, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cliente %s ya existe: %w", c.ID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var c entity.Customer
	err := r.q.QueryRow(ctx, `
		SELECT id, name, total_spent, loyalty_points, updated_at
		FROM customers WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.TotalSpent, &c.LoyaltyPoints, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// UpdateStats suma gasto y puntos al cliente. Un cliente inexistente es NotFound.
func (r *CustomerRepo) UpdateStats(ctx context.Context, id string, amountDelta decimal.Decimal, pointsDelta int64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE customers
		SET total_spent = total_spent + $2, loyalty_points = loyalty_points + $3, updated_at = now()
		WHERE id = $1`, id, amountDelta, pointsDelta)
	if err != nil {
		return fmt.Errorf("update customer stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("cliente", id)
	}
	return nil
}

package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// CustomerRepository define el puerto de persistencia para los acumulados del cliente.
type CustomerRepository interface {
	Create(ctx context.Context, customer *entity.Customer) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	// UpdateStats suma los deltas de gasto y puntos.
	UpdateStats(ctx context.Context, id string, amountDelta decimal.Decimal, pointsDelta int64) error
}

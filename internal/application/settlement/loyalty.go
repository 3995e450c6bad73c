package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// LoyaltyStatsUpdater suma gasto y puntos directamente en el registro del cliente.
type LoyaltyStatsUpdater struct{}

// UpdateCustomerStats aplica los deltas; un cliente inexistente aborta la orden.
func (LoyaltyStatsUpdater) UpdateCustomerStats(ctx context.Context, customers repository.CustomerRepository, customerID string, amountDelta decimal.Decimal, pointsDelta int64) error {
	return customers.UpdateStats(ctx, customerID, amountDelta, pointsDelta)
}

// pointsFor un punto por cada amountPerPoint completo del total pagado.
func pointsFor(grandTotal decimal.Decimal, amountPerPoint int64) int64 {
	if amountPerPoint <= 0 || !grandTotal.IsPositive() {
		return 0
	}
	return grandTotal.Div(decimal.NewFromInt(amountPerPoint)).Floor().IntPart()
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer cliente del POS; solo los acumulados que actualiza la liquidación de órdenes.
type Customer struct {
	ID            string
	Name          string
	TotalSpent    decimal.Decimal
	LoyaltyPoints int64
	UpdatedAt     time.Time
}

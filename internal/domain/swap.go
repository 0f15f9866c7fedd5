package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Swap is the history record of one executed conversion between the two
// ledger denominations.
type Swap struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	FromCurrency  Currency
	ToCurrency    Currency
	FromAmount    decimal.Decimal
	ToAmount      decimal.Decimal
	Rate          decimal.Decimal
	Fee           decimal.Decimal
	TransactionID uuid.UUID
	CreatedAt     time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyKZC  Currency = "KZC"
	CurrencyUSDT Currency = "USDT"
)

func (c Currency) IsValid() bool {
	return c == CurrencyKZC || c == CurrencyUSDT
}

// Account holds one denomination of a user's custodial balance. Every
// user owns exactly one KZC and one USDT account. Balances are mutated
// only inside locked transactions and never go below zero.
type Account struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Currency  Currency
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemAddress is the sentinel sender/receiver for system-originated
// movements (mining rewards, referral bonuses, distributions).
const SystemAddress = "SYSTEM"

type TransactionKind string

const (
	TransactionKindSend       TransactionKind = "send"
	TransactionKindMining     TransactionKind = "mining"
	TransactionKindSwap       TransactionKind = "swap"
	TransactionKindReferral   TransactionKind = "referral"
	TransactionKindDistribute TransactionKind = "distribute"
	TransactionKindReversal   TransactionKind = "reversal"
)

type TransactionStatus string

const (
	TransactionStatusSuccess  TransactionStatus = "success"
	TransactionStatusHeld     TransactionStatus = "held"
	TransactionStatusReversed TransactionStatus = "reversed"
)

// Transaction is an immutable log entry, created exactly once per
// economic event. Only the administrative hold/reverse operations may
// touch its status afterwards.
type Transaction struct {
	ID              uuid.UUID
	Hash            string
	Kind            TransactionKind
	SenderAddress   string
	ReceiverAddress string
	Amount          decimal.Decimal
	Fee             decimal.Decimal
	Currency        Currency
	Status          TransactionStatus
	Note            *string
	CreatedAt       time.Time
	HeldAt          *time.Time
	HeldBy          *string
	ReversedAt      *time.Time
	ReversedBy      *string
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
)

// Referral links a referred user to the referrer who supplied the code at
// registration. The pending->completed transition is a one-way latch
// triggered by KYC approval of the referred user; at most one bonus is
// ever paid per relationship.
type Referral struct {
	ID          uuid.UUID
	ReferrerID  uuid.UUID
	ReferredID  uuid.UUID
	BonusAmount decimal.Decimal
	Status      ReferralStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type KYCStatus string

const (
	KYCStatusNotSubmitted KYCStatus = "not_submitted"
	KYCStatusPending      KYCStatus = "pending"
	KYCStatusApproved     KYCStatus = "approved"
	KYCStatusRejected     KYCStatus = "rejected"
)

// Feature is the closed set of restrictable wallet features. Restrictions
// are checked by set membership so an unknown name can never silently
// fail to restrict.
type Feature string

const (
	FeatureMine     Feature = "mine"
	FeatureSwap     Feature = "swap"
	FeatureTransfer Feature = "transfer"
)

func (f Feature) IsValid() bool {
	switch f {
	case FeatureMine, FeatureSwap, FeatureTransfer:
		return true
	default:
		return false
	}
}

type User struct {
	ID            uuid.UUID
	Email         string
	Username      string
	Phone         string
	PasswordHash  string
	WalletAddress string
	WalletPINHash *string
	Role          Role
	Status        UserStatus
	Restrictions  []Feature
	KYCStatus     KYCStatus
	ReferralCode  string
	ReferredBy    *uuid.UUID
	CreatedAt     time.Time
}

func (u *User) IsRestricted(f Feature) bool {
	for _, r := range u.Restrictions {
		if r == f {
			return true
		}
	}
	return false
}

// Gate applies the account-level policy checks shared by every engine:
// status first, then the per-feature restriction.
func (u *User) Gate(f Feature) error {
	switch u.Status {
	case UserStatusBanned:
		return ErrAccountBanned
	case UserStatusSuspended:
		return ErrAccountSuspended
	}
	if u.IsRestricted(f) {
		return ErrFeatureRestricted
	}
	return nil
}

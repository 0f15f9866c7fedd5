package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/wallet"
)

// TestPIN is the plaintext wallet PIN every seeded user gets.
const TestPIN = "1234"

type UserOption func(*domain.User)

func WithStatus(status domain.UserStatus) UserOption {
	return func(u *domain.User) { u.Status = status }
}

func WithRestrictions(features ...domain.Feature) UserOption {
	return func(u *domain.User) { u.Restrictions = features }
}

func WithKYCStatus(status domain.KYCStatus) UserOption {
	return func(u *domain.User) { u.KYCStatus = status }
}

func WithRole(role domain.Role) UserOption {
	return func(u *domain.User) { u.Role = role }
}

func WithReferredBy(referrerID uuid.UUID) UserOption {
	return func(u *domain.User) { u.ReferredBy = &referrerID }
}

func WithoutPIN() UserOption {
	return func(u *domain.User) { u.WalletPINHash = nil }
}

func SeedTestUser(t *testing.T, db *sql.DB, email, username string, opts ...UserOption) *domain.User {
	t.Helper()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(TestPIN), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	pin := string(pinHash)

	u := &domain.User{
		ID:            uuid.New(),
		Email:         email,
		Username:      username,
		PasswordHash:  string(passwordHash),
		WalletAddress: wallet.NewAddress(),
		WalletPINHash: &pin,
		Role:          domain.RoleUser,
		Status:        domain.UserStatusActive,
		KYCStatus:     domain.KYCStatusApproved,
		ReferralCode:  wallet.NewReferralCode(username),
		CreatedAt:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(u)
	}

	restrictions := make([]string, len(u.Restrictions))
	for i, f := range u.Restrictions {
		restrictions[i] = string(f)
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, username, password_hash, wallet_address, wallet_pin_hash,
		                    role, status, restrictions, kyc_status, referral_code, referred_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.WalletAddress, u.WalletPINHash,
		u.Role, u.Status, pq.Array(restrictions), u.KYCStatus, u.ReferralCode, u.ReferredBy, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

func SeedAccount(t *testing.T, db *sql.DB, userID uuid.UUID, currency domain.Currency, balance decimal.Decimal) *domain.Account {
	t.Helper()

	a := &domain.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Balance:   balance,
		Version:   0,
		CreatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, currency, balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, a.Currency, a.Balance, a.Version, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s/%s: %v", userID, currency, err)
	}
	return a
}

type SettingsOption func(*domain.Settings)

func WithTransferFee(fee decimal.Decimal) SettingsOption {
	return func(s *domain.Settings) { s.TransferFee = fee }
}

func WithSwapEnabled(enabled bool) SettingsOption {
	return func(s *domain.Settings) { s.SwapEnabled = enabled }
}

func WithSwapFee(fee decimal.Decimal) SettingsOption {
	return func(s *domain.Settings) { s.SwapFee = fee }
}

func WithMinSwapAmount(amount decimal.Decimal) SettingsOption {
	return func(s *domain.Settings) { s.MinSwapAmount = amount }
}

func WithMiningEnabled(enabled bool) SettingsOption {
	return func(s *domain.Settings) { s.MiningEnabled = enabled }
}

func WithMiningReward(rate decimal.Decimal) SettingsOption {
	return func(s *domain.Settings) { s.MiningRewardRate = rate }
}

func WithMiningSessionHours(hours decimal.Decimal) SettingsOption {
	return func(s *domain.Settings) { s.MiningSessionDurationHours = hours }
}

func WithReferralEnabled(enabled bool) SettingsOption {
	return func(s *domain.Settings) { s.ReferralEnabled = enabled }
}

func WithReferralBonus(bonus decimal.Decimal) SettingsOption {
	return func(s *domain.Settings) { s.ReferralBonus = bonus }
}

func SeedSettings(t *testing.T, db *sql.DB, opts ...SettingsOption) *domain.Settings {
	t.Helper()

	s := &domain.Settings{
		TransferFee:                decimal.NewFromFloat(1.5),
		SwapEnabled:                true,
		SwapFee:                    decimal.NewFromFloat(0.01),
		MinSwapAmount:              decimal.NewFromInt(10),
		MiningEnabled:              true,
		MiningRewardRate:           decimal.NewFromInt(10),
		MiningSessionDurationHours: decimal.NewFromInt(24),
		ReferralEnabled:            true,
		ReferralBonus:              decimal.NewFromInt(50),
		CreatedAt:                  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}

	_, err := db.Exec(
		`INSERT INTO settings (id, transfer_fee, swap_enabled, swap_fee, min_swap_amount,
		                       mining_enabled, mining_reward_rate, mining_session_duration_hours,
		                       referral_enabled, referral_bonus, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New(), s.TransferFee, s.SwapEnabled, s.SwapFee, s.MinSwapAmount,
		s.MiningEnabled, s.MiningRewardRate, s.MiningSessionDurationHours,
		s.ReferralEnabled, s.ReferralBonus, s.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return s
}

func SeedPricePhase(t *testing.T, db *sql.DB, phase *domain.PricePhase) *domain.PricePhase {
	t.Helper()

	if phase.ID == uuid.Nil {
		phase.ID = uuid.New()
	}
	if phase.CreatedAt.IsZero() {
		phase.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO price_phases (id, base_price, target_price, trend, change_percentage,
		                           rising_duration_hours, falling_duration_hours, stable_duration_hours,
		                           stable_fluctuation_range, phase_started_at, phase_ends_at, created_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		phase.ID, phase.BasePrice, phase.TargetPrice, phase.Trend, phase.ChangePercentage,
		phase.RisingDurationHours, phase.FallingDurationHours, phase.StableDurationHours,
		phase.StableFluctuationRange, phase.PhaseStartedAt, phase.PhaseEndsAt, phase.CreatedAt, phase.UpdatedBy,
	)
	if err != nil {
		t.Fatalf("seed price phase: %v", err)
	}
	return phase
}

func GetAccountBalance(t *testing.T, db *sql.DB, userID uuid.UUID, currency domain.Currency) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(
		`SELECT balance FROM accounts WHERE user_id = $1 AND currency = $2`,
		userID, currency,
	).Scan(&balance)
	if err != nil {
		t.Fatalf("get balance %s/%s: %v", userID, currency, err)
	}
	return balance
}

func CountTransactions(t *testing.T, db *sql.DB, address string) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE sender_address = $1 OR receiver_address = $1`,
		address,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", address, err)
	}
	return count
}

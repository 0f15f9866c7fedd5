// Package referral pays the one-time bonus for referring a user whose
// identity verification is later approved. Completion is driven by the
// external KYC review workflow, never polled.
package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/wallet"
)

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
}

type accountRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID, currency domain.Currency) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

type referralRepo interface {
	Create(ctx context.Context, ref *domain.Referral) error
	GetPendingByReferred(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error)
	CompletePending(ctx context.Context, tx *sql.Tx, referredID uuid.UUID, bonus decimal.Decimal, now time.Time) (*domain.Referral, error)
	ListByReferrer(ctx context.Context, referrerID uuid.UUID) ([]domain.Referral, error)
}

type settingsRepo interface {
	GetLatest(ctx context.Context) (*domain.Settings, error)
}

type Service struct {
	users        userRepo
	accounts     accountRepo
	transactions transactionRepo
	referrals    referralRepo
	settings     settingsRepo
	db           *sql.DB

	now func() time.Time
}

func NewService(users userRepo, accounts accountRepo, transactions transactionRepo, referrals referralRepo, settings settingsRepo, db *sql.DB) *Service {
	return &Service{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		referrals:    referrals,
		settings:     settings,
		db:           db,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Link records a pending referral at registration time. An unknown code
// is not an error for the registering user; the caller simply proceeds
// without a referral.
func (s *Service) Link(ctx context.Context, code string, referredID uuid.UUID) (*domain.Referral, error) {
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("Link: %w", err)
	}
	if referrer.ID == referredID {
		return nil, nil
	}

	ref := &domain.Referral{
		ID:          uuid.New(),
		ReferrerID:  referrer.ID,
		ReferredID:  referredID,
		BonusAmount: decimal.Zero,
		Status:      domain.ReferralStatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.referrals.Create(ctx, ref); err != nil {
		return nil, fmt.Errorf("Link: %w", err)
	}
	return ref, nil
}

// Complete pays the referrer's bonus after the referred user's KYC is
// approved. Re-delivery of the approval event is a no-op: the
// pending->completed latch is checked atomically with the credit, so at
// most one bonus is ever paid per relationship.
func (s *Service) Complete(ctx context.Context, referredID uuid.UUID) (*domain.Referral, error) {
	log := logging.FromContext(ctx)

	settings, err := s.settings.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("Complete: %w", err)
	}
	if !settings.ReferralEnabled {
		return nil, nil
	}

	// Quick existence check so the common no-referral case does not
	// open a transaction.
	if _, err := s.referrals.GetPendingByReferred(ctx, referredID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("Complete: %w", err)
	}

	bonus := settings.ReferralBonus
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Complete: begin tx: %w", err)
	}
	defer tx.Rollback()

	ref, err := s.referrals.CompletePending(ctx, tx, referredID, bonus, now)
	if err != nil {
		if errors.Is(err, domain.ErrReferralCompleted) {
			// Lost the latch to a concurrent delivery of the same event.
			return nil, nil
		}
		return nil, fmt.Errorf("Complete: %w", err)
	}

	referrer, err := s.users.GetByID(ctx, ref.ReferrerID)
	if err != nil {
		return nil, fmt.Errorf("Complete: %w", err)
	}

	acct, err := s.accounts.GetForUpdate(ctx, tx, ref.ReferrerID, domain.CurrencyKZC)
	if err != nil {
		return nil, fmt.Errorf("Complete: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, acct.ID, acct.Balance.Add(bonus), acct.Version+1); err != nil {
		return nil, fmt.Errorf("Complete: credit bonus: %w", err)
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            wallet.NewTransactionHash(),
		Kind:            domain.TransactionKindReferral,
		SenderAddress:   domain.SystemAddress,
		ReceiverAddress: referrer.WalletAddress,
		Amount:          bonus,
		Fee:             decimal.Zero,
		Currency:        domain.CurrencyKZC,
		Status:          domain.TransactionStatusSuccess,
		CreatedAt:       now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("Complete: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Complete: commit: %w", err)
	}

	log.Info("referral bonus paid",
		"referrer_id", ref.ReferrerID,
		"referred_id", referredID,
		"bonus", bonus,
	)
	return ref, nil
}

// Stats summarizes a user's referral activity for display.
type Stats struct {
	Total       int
	Completed   int
	Pending     int
	TotalEarned decimal.Decimal
}

func (s *Service) Stats(ctx context.Context, referrerID uuid.UUID) (*Stats, []domain.Referral, error) {
	refs, err := s.referrals.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, nil, fmt.Errorf("Stats: %w", err)
	}

	stats := &Stats{Total: len(refs), TotalEarned: decimal.Zero}
	for _, r := range refs {
		if r.Status == domain.ReferralStatusCompleted {
			stats.Completed++
			stats.TotalEarned = stats.TotalEarned.Add(r.BonusAmount)
		} else {
			stats.Pending++
		}
	}
	return stats, refs, nil
}

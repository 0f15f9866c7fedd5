// Package mining runs the timed mining sessions. All session state is
// computed lazily from stored timestamps; nothing ticks in the
// background.
package mining

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
}

type accountRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID, currency domain.Currency) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

type miningRepo interface {
	Create(ctx context.Context, m *domain.MiningSession) error
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, error)
	ClaimActive(ctx context.Context, tx *sql.Tx, userID uuid.UUID, now time.Time) (*domain.MiningSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.MiningSession, error)
}

type settingsRepo interface {
	GetLatest(ctx context.Context) (*domain.Settings, error)
}

type Service struct {
	users        userRepo
	accounts     accountRepo
	transactions transactionRepo
	sessions     miningRepo
	settings     settingsRepo
	db           *sql.DB

	now func() time.Time
}

func NewService(users userRepo, accounts accountRepo, transactions transactionRepo, sessions miningRepo, settings settingsRepo, db *sql.DB) *Service {
	return &Service{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		sessions:     sessions,
		settings:     settings,
		db:           db,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a new session. The reward is snapshotted from the current
// settings and never recomputed, so a later rate change does not affect
// sessions already running. The unique index on active sessions makes
// duplicate-start a database-level conflict rather than a
// check-then-act race.
func (s *Service) Start(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, error) {
	log := logging.FromContext(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Start: %w", err)
	}
	if err := user.Gate(domain.FeatureMine); err != nil {
		return nil, fmt.Errorf("Start: %w", err)
	}

	settings, err := s.settings.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("Start: %w", err)
	}
	if !settings.MiningEnabled {
		return nil, fmt.Errorf("Start: %w", domain.ErrMiningDisabled)
	}

	now := s.now()
	session := &domain.MiningSession{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: now,
		EndsAt:    now.Add(settings.MiningSessionDuration()),
		Reward:    settings.MiningRewardRate,
		Status:    domain.MiningStatusActive,
		Claimed:   false,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("Start: %w", err)
	}

	log.Info("mining session started",
		"user_id", userID,
		"session_id", session.ID,
		"reward", session.Reward,
		"ends_at", session.EndsAt,
	)
	return session, nil
}

// Status returns the lazily derived view of the user's active session,
// or nil if none exists.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*domain.MiningProgress, error) {
	session, err := s.sessions.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("Status: %w", err)
	}
	progress := session.ProgressAt(s.now())
	return &progress, nil
}

// Claim credits the session reward. The session transition and the
// balance credit commit together; the conditional claim update means
// two concurrent claims produce exactly one credit.
func (s *Service) Claim(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, *domain.Transaction, error) {
	log := logging.FromContext(ctx)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("Claim: %w", err)
	}

	// Reject before mutating anything. The authoritative recheck
	// happens under the conditional update below.
	active, err := s.sessions.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("Claim: %w", domain.ErrNoActiveSession)
		}
		return nil, nil, fmt.Errorf("Claim: %w", err)
	}
	now := s.now()
	if now.Before(active.EndsAt) {
		return nil, nil, fmt.Errorf("Claim: %w", domain.ErrSessionNotComplete)
	}
	if active.Claimed {
		return nil, nil, fmt.Errorf("Claim: %w", domain.ErrAlreadyClaimed)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("Claim: begin tx: %w", err)
	}
	defer tx.Rollback()

	session, err := s.sessions.ClaimActive(ctx, tx, userID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			// The session existed a moment ago; a concurrent claim won.
			return nil, nil, fmt.Errorf("Claim: %w", domain.ErrAlreadyClaimed)
		}
		return nil, nil, fmt.Errorf("Claim: %w", err)
	}

	acct, err := s.accounts.GetForUpdate(ctx, tx, userID, domain.CurrencyKZC)
	if err != nil {
		return nil, nil, fmt.Errorf("Claim: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, acct.ID, acct.Balance.Add(session.Reward), acct.Version+1); err != nil {
		return nil, nil, fmt.Errorf("Claim: credit reward: %w", err)
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            wallet.NewTransactionHash(),
		Kind:            domain.TransactionKindMining,
		SenderAddress:   domain.SystemAddress,
		ReceiverAddress: user.WalletAddress,
		Amount:          session.Reward,
		Fee:             decimal.Zero,
		Currency:        domain.CurrencyKZC,
		Status:          domain.TransactionStatusSuccess,
		CreatedAt:       now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, nil, fmt.Errorf("Claim: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("Claim: commit: %w", err)
	}

	log.Info("mining reward claimed",
		"user_id", userID,
		"session_id", session.ID,
		"reward", session.Reward,
	)
	return session, txn, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.MiningSession, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return sessions, nil
}

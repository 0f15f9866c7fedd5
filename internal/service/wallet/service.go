// Package wallet implements the transfer engine and the administrative
// ledger operations (distribution, hold, reversal). Every mutation runs
// inside a single database transaction with accounts locked in sorted
// order, so a reader can never observe a debit without its matching
// credit or a log entry without the balance change it describes.
package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/auth"
	"github.com/kzclabs/kzc-wallet/internal/domain"
)

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByWalletAddress(ctx context.Context, address string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
	SetWalletPIN(ctx context.Context, id uuid.UUID, pinHash string) error
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID, currency domain.Currency) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Transaction, error)
	ListByAddress(ctx context.Context, address string, limit, offset int) ([]domain.Transaction, int, error)
	Hold(ctx context.Context, id uuid.UUID, heldBy string, now time.Time) error
	MarkReversed(ctx context.Context, tx *sql.Tx, id uuid.UUID, reversedBy string, now time.Time) error
}

type settingsRepo interface {
	GetLatest(ctx context.Context) (*domain.Settings, error)
}

type Service struct {
	users        userRepo
	accounts     accountRepo
	transactions transactionRepo
	settings     settingsRepo
	db           *sql.DB

	now func() time.Time
}

func NewService(users userRepo, accounts accountRepo, transactions transactionRepo, settings settingsRepo, db *sql.DB) *Service {
	return &Service{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		settings:     settings,
		db:           db,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Balances(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Balances: %w", err)
	}
	return accounts, nil
}

func (s *Service) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("Transactions: %w", err)
	}
	txs, total, err := s.transactions.ListByAddress(ctx, user.WalletAddress, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("Transactions: %w", err)
	}
	return txs, total, nil
}

// SetPIN hashes and stores the wallet PIN. Setting a new PIN over an
// existing one is allowed; the caller is already authenticated.
func (s *Service) SetPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return fmt.Errorf("SetPIN: %w", err)
	}
	if err := s.users.SetWalletPIN(ctx, userID, hash); err != nil {
		return fmt.Errorf("SetPIN: %w", err)
	}
	return nil
}

// lockTarget identifies one account to lock inside a transfer
// transaction.
type lockTarget struct {
	userID   uuid.UUID
	currency domain.Currency
}

// lockAccountsInOrder acquires row locks in sorted order so two
// transfers touching the same accounts in opposite directions cannot
// deadlock.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountRepo, targets ...lockTarget) (map[lockTarget]*domain.Account, error) {
	sorted := make([]lockTarget, len(targets))
	copy(sorted, targets)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].userID != sorted[j].userID {
			return sorted[i].userID.String() < sorted[j].userID.String()
		}
		return sorted[i].currency < sorted[j].currency
	})

	result := make(map[lockTarget]*domain.Account, len(targets))
	for _, target := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, target.userID, target.currency)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[target] = acct
	}
	return result, nil
}

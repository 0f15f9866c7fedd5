package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/wallet"
)

type DistributeRequest struct {
	// Username targets a single recipient; empty means all non-banned
	// users.
	Username      string
	Amount        decimal.Decimal
	Note          string
	DistributedBy string
}

// Distribute credits KZC from the system sentinel to one or all users.
// It bypasses the per-user policy gate (an administrative operation)
// but each credit is applied and logged exactly like a user-initiated
// transaction.
func (s *Service) Distribute(ctx context.Context, req DistributeRequest) (int, error) {
	log := logging.FromContext(ctx)

	if !req.Amount.IsPositive() {
		return 0, fmt.Errorf("Distribute: %w", domain.ErrInvalidAmount)
	}

	var targets []uuid.UUID
	if req.Username != "" {
		user, err := s.users.GetByUsername(ctx, req.Username)
		if err != nil {
			return 0, fmt.Errorf("Distribute: %w", err)
		}
		targets = []uuid.UUID{user.ID}
	} else {
		ids, err := s.users.ListActiveIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("Distribute: %w", err)
		}
		targets = ids
	}

	for _, id := range targets {
		if err := s.distributeTo(ctx, id, req.Amount, req.Note); err != nil {
			return 0, fmt.Errorf("Distribute: user %s: %w", id, err)
		}
	}

	log.Info("distribution completed",
		"recipients", len(targets),
		"amount", req.Amount,
		"distributed_by", req.DistributedBy,
	)
	return len(targets), nil
}

func (s *Service) distributeTo(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, note string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("distributeTo: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("distributeTo: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdate(ctx, tx, userID, domain.CurrencyKZC)
	if err != nil {
		return fmt.Errorf("distributeTo: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, acct.ID, acct.Balance.Add(amount), acct.Version+1); err != nil {
		return fmt.Errorf("distributeTo: credit: %w", err)
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            wallet.NewTransactionHash(),
		Kind:            domain.TransactionKindDistribute,
		SenderAddress:   domain.SystemAddress,
		ReceiverAddress: user.WalletAddress,
		Amount:          amount,
		Fee:             decimal.Zero,
		Currency:        domain.CurrencyKZC,
		Status:          domain.TransactionStatusSuccess,
		Note:            &note,
		CreatedAt:       s.now(),
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return fmt.Errorf("distributeTo: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("distributeTo: commit: %w", err)
	}
	return nil
}

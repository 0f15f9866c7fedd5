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

// Hold flags a transaction as held. A held or reversed transaction
// cannot be held again.
func (s *Service) Hold(ctx context.Context, transactionID uuid.UUID, heldBy string) error {
	if err := s.transactions.Hold(ctx, transactionID, heldBy, s.now()); err != nil {
		return fmt.Errorf("Hold: %w", err)
	}
	logging.FromContext(ctx).Info("transaction held", "transaction_id", transactionID, "held_by", heldBy)
	return nil
}

// Reverse undoes a transfer: the sender is re-credited amount+fee, the
// receiver is debited the amount, and the original entry is marked
// reversed. The status guard on the original entry makes the whole
// operation exactly-once; for system-originated credits only the
// receiver side is touched.
func (s *Service) Reverse(ctx context.Context, transactionID uuid.UUID, reversedBy string) error {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Reverse: begin tx: %w", err)
	}
	defer tx.Rollback()

	orig, err := s.transactions.GetForUpdate(ctx, tx, transactionID)
	if err != nil {
		return fmt.Errorf("Reverse: %w", err)
	}
	if orig.Status == domain.TransactionStatusReversed {
		return fmt.Errorf("Reverse: %w", domain.ErrTransactionFinal)
	}

	receiver, err := s.users.GetByWalletAddress(ctx, orig.ReceiverAddress)
	if err != nil {
		return fmt.Errorf("Reverse: receiver: %w", err)
	}

	targets := []lockTarget{{receiver.ID, orig.Currency}}

	var sender *domain.User
	if orig.SenderAddress != domain.SystemAddress {
		sender, err = s.users.GetByWalletAddress(ctx, orig.SenderAddress)
		if err != nil {
			return fmt.Errorf("Reverse: sender: %w", err)
		}
		targets = append(targets, lockTarget{sender.ID, orig.Currency})
	}

	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, targets...)
	if err != nil {
		return fmt.Errorf("Reverse: %w", err)
	}

	receiverAcct := locked[lockTarget{receiver.ID, orig.Currency}]
	if receiverAcct.Balance.LessThan(orig.Amount) {
		return fmt.Errorf("Reverse: receiver: %w", domain.ErrInsufficientFunds)
	}

	now := s.now()

	if err := s.accounts.UpdateBalance(ctx, tx, receiverAcct.ID, receiverAcct.Balance.Sub(orig.Amount), receiverAcct.Version+1); err != nil {
		return fmt.Errorf("Reverse: debit receiver: %w", err)
	}

	if sender != nil {
		senderAcct := locked[lockTarget{sender.ID, orig.Currency}]
		refund := orig.Amount.Add(orig.Fee)
		if err := s.accounts.UpdateBalance(ctx, tx, senderAcct.ID, senderAcct.Balance.Add(refund), senderAcct.Version+1); err != nil {
			return fmt.Errorf("Reverse: credit sender: %w", err)
		}
	}

	if err := s.transactions.MarkReversed(ctx, tx, orig.ID, reversedBy, now); err != nil {
		return fmt.Errorf("Reverse: %w", err)
	}

	note := fmt.Sprintf("reversal of %s", orig.Hash)
	entry := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            wallet.NewTransactionHash(),
		Kind:            domain.TransactionKindReversal,
		SenderAddress:   orig.ReceiverAddress,
		ReceiverAddress: orig.SenderAddress,
		Amount:          orig.Amount,
		Fee:             decimal.Zero,
		Currency:        orig.Currency,
		Status:          domain.TransactionStatusSuccess,
		Note:            &note,
		CreatedAt:       now,
	}
	if err := s.transactions.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("Reverse: create reversal entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Reverse: commit: %w", err)
	}

	log.Info("transaction reversed",
		"transaction_id", transactionID,
		"hash", orig.Hash,
		"reversed_by", reversedBy,
	)
	return nil
}

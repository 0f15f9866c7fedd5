package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/auth"
	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/wallet"
)

type SendRequest struct {
	SenderID        uuid.UUID
	ReceiverAddress string
	Amount          decimal.Decimal
	Currency        domain.Currency
	PIN             string
}

type SendResult struct {
	Transaction      *domain.Transaction
	ReceiverUsername string
}

// Send executes a peer-to-peer transfer. The flat fee is denominated in
// the transfer's own currency and debited from the sender on top of the
// amount; it is burned, never credited to any account, so each transfer
// is a small deflationary step.
func (s *Service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	log := logging.FromContext(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Send: %w", domain.ErrInvalidAmount)
	}
	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("Send: %q: %w", req.Currency, domain.ErrInvalidCurrency)
	}

	sender, err := s.users.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}
	if err := sender.Gate(domain.FeatureTransfer); err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}
	if err := auth.VerifyPIN(req.PIN, sender.WalletPINHash); err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}

	receiver, err := s.users.GetByWalletAddress(ctx, req.ReceiverAddress)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Send: %w", domain.ErrRecipientNotFound)
		}
		return nil, fmt.Errorf("Send: %w", err)
	}
	if receiver.ID == sender.ID {
		return nil, fmt.Errorf("Send: %w", domain.ErrSelfTransfer)
	}

	settings, err := s.settings.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}
	fee := settings.TransferFee
	total := req.Amount.Add(fee)

	txn, err := s.executeSend(ctx, sender, receiver, req.Amount, fee, total, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}

	log.Info("transfer completed",
		"hash", txn.Hash,
		"sender", sender.WalletAddress,
		"receiver", receiver.WalletAddress,
		"amount", req.Amount,
		"fee", fee,
		"currency", req.Currency,
	)

	return &SendResult{Transaction: txn, ReceiverUsername: receiver.Username}, nil
}

func (s *Service) executeSend(ctx context.Context, sender, receiver *domain.User, amount, fee, total decimal.Decimal, currency domain.Currency) (*domain.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeSend: begin tx: %w", err)
	}
	defer tx.Rollback()

	senderTarget := lockTarget{sender.ID, currency}
	receiverTarget := lockTarget{receiver.ID, currency}
	locked, err := lockAccountsInOrder(ctx, tx, s.accounts, senderTarget, receiverTarget)
	if err != nil {
		return nil, fmt.Errorf("executeSend: %w", err)
	}

	senderAcct, receiverAcct := locked[senderTarget], locked[receiverTarget]

	if senderAcct.Balance.LessThan(total) {
		return nil, fmt.Errorf("executeSend: %w", domain.ErrInsufficientFunds)
	}

	now := s.now()

	// Debit amount+fee, credit amount. The fee difference leaves
	// circulation here.
	if err := s.accounts.UpdateBalance(ctx, tx, senderAcct.ID, senderAcct.Balance.Sub(total), senderAcct.Version+1); err != nil {
		return nil, fmt.Errorf("executeSend: debit sender: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, receiverAcct.ID, receiverAcct.Balance.Add(amount), receiverAcct.Version+1); err != nil {
		return nil, fmt.Errorf("executeSend: credit receiver: %w", err)
	}

	txn := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            wallet.NewTransactionHash(),
		Kind:            domain.TransactionKindSend,
		SenderAddress:   sender.WalletAddress,
		ReceiverAddress: receiver.WalletAddress,
		Amount:          amount,
		Fee:             fee,
		Currency:        currency,
		Status:          domain.TransactionStatusSuccess,
		CreatedAt:       now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("executeSend: create transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeSend: commit: %w", err)
	}
	return txn, nil
}

// Package swap converts between the two ledger denominations at the
// simulator's live price. The rate is read at execution time; quotes
// shown earlier are estimates, not locks.
package swap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kzclabs/kzc-wallet/internal/auth"
	"github.com/kzclabs/kzc-wallet/internal/domain"
	"github.com/kzclabs/kzc-wallet/internal/logging"
	"github.com/kzclabs/kzc-wallet/internal/service/price"
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

type swapRepo interface {
	Create(ctx context.Context, tx *sql.Tx, s *domain.Swap) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Swap, error)
}

type settingsRepo interface {
	GetLatest(ctx context.Context) (*domain.Settings, error)
}

type priceReader interface {
	Current(ctx context.Context) (*price.LivePrice, error)
}

type Service struct {
	users        userRepo
	accounts     accountRepo
	transactions transactionRepo
	swaps        swapRepo
	settings     settingsRepo
	price        priceReader
	db           *sql.DB

	now func() time.Time
}

func NewService(users userRepo, accounts accountRepo, transactions transactionRepo, swaps swapRepo, settings settingsRepo, priceSim priceReader, db *sql.DB) *Service {
	return &Service{
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		swaps:        swaps,
		settings:     settings,
		price:        priceSim,
		db:           db,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type ExecuteRequest struct {
	UserID       uuid.UUID
	FromCurrency domain.Currency
	ToCurrency   domain.Currency
	Amount       decimal.Decimal
	PIN          string
}

// Execute performs the conversion. The percentage fee is taken out of
// the output, unlike the transfer engine's flat input-side fee; the
// asymmetry is deliberate and the two must not be unified.
func (s *Service) Execute(ctx context.Context, req ExecuteRequest) (*domain.Swap, error) {
	log := logging.FromContext(ctx)

	if err := validatePair(req.FromCurrency, req.ToCurrency); err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("Execute: %w", domain.ErrInvalidAmount)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	if err := user.Gate(domain.FeatureSwap); err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	// Verification is a hard precondition for swaps, not a restriction
	// flag.
	if user.KYCStatus != domain.KYCStatusApproved {
		return nil, fmt.Errorf("Execute: %w", domain.ErrKYCRequired)
	}
	if err := auth.VerifyPIN(req.PIN, user.WalletPINHash); err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}

	settings, err := s.settings.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	if !settings.SwapEnabled {
		return nil, fmt.Errorf("Execute: %w", domain.ErrSwapDisabled)
	}
	// The minimum applies to the pre-fee input amount in the source
	// currency.
	if req.Amount.LessThan(settings.MinSwapAmount) {
		return nil, fmt.Errorf("Execute: %w", domain.ErrBelowMinSwapAmount)
	}

	// Rate is read here, at execution time. No quote locking.
	live, err := s.price.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	rate := live.Price
	if req.FromCurrency == domain.CurrencyUSDT {
		rate = decimal.NewFromInt(1).Div(live.Price)
	}

	gross := req.Amount.Mul(rate)
	fee := gross.Mul(settings.SwapFee)
	received := gross.Sub(fee)

	swap, err := s.executeSwap(ctx, user, req, rate, fee, received)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}

	log.Info("swap executed",
		"user_id", user.ID,
		"from", req.FromCurrency,
		"to", req.ToCurrency,
		"from_amount", req.Amount,
		"to_amount", received,
		"rate", rate,
	)
	return swap, nil
}

func (s *Service) executeSwap(ctx context.Context, user *domain.User, req ExecuteRequest, rate, fee, received decimal.Decimal) (*domain.Swap, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("executeSwap: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Both accounts belong to the same user; lock in currency order so
	// concurrent swaps in opposite directions cannot deadlock.
	first, second := req.FromCurrency, req.ToCurrency
	if second < first {
		first, second = second, first
	}
	firstAcct, err := s.accounts.GetForUpdate(ctx, tx, user.ID, first)
	if err != nil {
		return nil, fmt.Errorf("executeSwap: %w", err)
	}
	secondAcct, err := s.accounts.GetForUpdate(ctx, tx, user.ID, second)
	if err != nil {
		return nil, fmt.Errorf("executeSwap: %w", err)
	}

	source, dest := firstAcct, secondAcct
	if source.Currency != req.FromCurrency {
		source, dest = secondAcct, firstAcct
	}

	// The fee is deducted from the output, so holding the input amount
	// is sufficient.
	if source.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("executeSwap: %w", domain.ErrInsufficientFunds)
	}

	now := s.now()

	if err := s.accounts.UpdateBalance(ctx, tx, source.ID, source.Balance.Sub(req.Amount), source.Version+1); err != nil {
		return nil, fmt.Errorf("executeSwap: debit source: %w", err)
	}
	if err := s.accounts.UpdateBalance(ctx, tx, dest.ID, dest.Balance.Add(received), dest.Version+1); err != nil {
		return nil, fmt.Errorf("executeSwap: credit destination: %w", err)
	}

	note := fmt.Sprintf("%s -> %s @ %s", req.FromCurrency, req.ToCurrency, rate)
	txn := &domain.Transaction{
		ID:              uuid.New(),
		Hash:            wallet.NewTransactionHash(),
		Kind:            domain.TransactionKindSwap,
		SenderAddress:   user.WalletAddress,
		ReceiverAddress: user.WalletAddress,
		Amount:          received,
		Fee:             fee,
		Currency:        req.ToCurrency,
		Status:          domain.TransactionStatusSuccess,
		Note:            &note,
		CreatedAt:       now,
	}
	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("executeSwap: create transaction: %w", err)
	}

	swap := &domain.Swap{
		ID:            uuid.New(),
		UserID:        user.ID,
		FromCurrency:  req.FromCurrency,
		ToCurrency:    req.ToCurrency,
		FromAmount:    req.Amount,
		ToAmount:      received,
		Rate:          rate,
		Fee:           fee,
		TransactionID: txn.ID,
		CreatedAt:     now,
	}
	if err := s.swaps.Create(ctx, tx, swap); err != nil {
		return nil, fmt.Errorf("executeSwap: create swap record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("executeSwap: commit: %w", err)
	}
	return swap, nil
}

// RateQuote is the display-only view of the current conversion terms.
// The executed rate may differ from a previously quoted one.
type RateQuote struct {
	SwapEnabled      bool
	MinSwapAmount    decimal.Decimal
	SwapFee          decimal.Decimal
	KZCToUSDT        decimal.Decimal
	USDTToKZC        decimal.Decimal
	Trend            domain.Trend
	ChangePercentage decimal.Decimal
	Progress         decimal.Decimal
}

func (s *Service) Quote(ctx context.Context) (*RateQuote, error) {
	settings, err := s.settings.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}
	live, err := s.price.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}

	return &RateQuote{
		SwapEnabled:      settings.SwapEnabled,
		MinSwapAmount:    settings.MinSwapAmount,
		SwapFee:          settings.SwapFee,
		KZCToUSDT:        live.Price,
		USDTToKZC:        decimal.NewFromInt(1).Div(live.Price),
		Trend:            live.Trend,
		ChangePercentage: live.ChangePercentage,
		Progress:         live.Progress,
	}, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Swap, error) {
	swaps, err := s.swaps.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return swaps, nil
}

func validatePair(from, to domain.Currency) error {
	if !from.IsValid() || !to.IsValid() {
		return domain.ErrInvalidCurrency
	}
	if from == to {
		return domain.ErrInvalidCurrencyPair
	}
	return nil
}
